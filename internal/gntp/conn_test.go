package gntp

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wifimgr/internal/gntp/gntptest"
)

func newServer(t *testing.T) *gntptest.Server {
	t.Helper()
	srv, err := gntptest.NewServer()
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close() })
	return srv
}

func TestProbeRegisterNotify(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	c := NewHostConnection(Host{Addr: srv.Addr(), Port: srv.Port()})
	assert.False(t, c.Available())

	require.NoError(t, c.Probe(ctx, time.Second))
	assert.True(t, c.Available())

	require.NoError(t, c.Register(ctx, "WiFiManager", "", []NotificationType{{Name: "WiFi Connected", Enabled: true}}))
	require.NoError(t, c.Notify(ctx, Notify{App: "WiFiManager", Name: "WiFi Connected", Title: "WiFi Connected", Text: "Connected to CafeWifi"}))
	assert.True(t, c.Available())

	reqs := srv.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "REGISTER", reqs[0].Action)
	assert.Equal(t, "1", reqs[0].Headers["Notifications-Count"])
	assert.Equal(t, "NOTIFY", reqs[1].Action)
	assert.Equal(t, "Connected to CafeWifi", reqs[1].Headers["Notification-Text"])
}

func TestRejectedNotifyMarksUnavailable(t *testing.T) {
	srv := newServer(t)
	ctx := context.Background()
	c := NewHostConnection(Host{Addr: srv.Addr(), Port: srv.Port()})
	require.NoError(t, c.Probe(ctx, time.Second))

	srv.Reject.Store(true)
	err := c.Notify(ctx, Notify{App: "a", Name: "n"})
	require.ErrorIs(t, err, ErrRejected)
	var gerr *Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, "notify", gerr.Op)
	assert.False(t, c.Available())
}

func TestProbeFailure(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	c := NewHostConnection(Host{Addr: "127.0.0.1", Port: port})
	require.Error(t, c.Probe(context.Background(), 200*time.Millisecond))
	assert.False(t, c.Available())
}

func TestProbeTimeout(t *testing.T) {
	c := NewHostConnection(Host{Addr: "10.255.255.1", Port: 23053})
	c.dial = func(ctx context.Context, network, addr string) (net.Conn, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	start := time.Now()
	err := c.Probe(context.Background(), 50*time.Millisecond)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
	assert.False(t, c.Available())
}

func TestIsLoopback(t *testing.T) {
	for addr, want := range map[string]bool{
		"127.0.0.1": true, "localhost": true, "::1": true, "LOCALHOST": true,
		"192.168.1.10": false, "growl.lan": false,
	} {
		c := NewHostConnection(Host{Addr: addr})
		assert.Equal(t, want, c.IsLoopback(), addr)
	}
}

func TestHostString(t *testing.T) {
	assert.Equal(t, "127.0.0.1:23053", Host{Addr: "127.0.0.1"}.String())
	assert.Equal(t, "10.0.0.2:1234 (desk)", Host{Addr: "10.0.0.2", Port: 1234, Name: "desk"}.String())
}
