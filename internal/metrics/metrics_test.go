package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "wifimgr/pkg/logx"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()
	r.Event("connected")
	r.Event("connected")
	r.Send("gntp:10.0.0.5:23053", true)
	r.Send("gntp:10.0.0.6:23053", false)
	r.Send("popup", true)
	r.HostsAvailable(2)
	r.ScanSize(7)
	r.TickError()
	r.Restart("monitor", nil)

	ts := httptest.NewServer(NewServer(r, logx.Nop()).handler(false))
	defer ts.Close()
	body := get(t, ts.URL+"/metrics", http.StatusOK)

	for _, line := range []string{
		`wifimgr_events_total{kind="connected"} 2`,
		`wifimgr_sends_total{channel="gntp",result="ok"} 1`,
		`wifimgr_sends_total{channel="gntp",result="fail"} 1`,
		`wifimgr_sends_total{channel="popup",result="ok"} 1`,
		`wifimgr_gntp_hosts_available 2`,
		`wifimgr_visible_networks 7`,
		`wifimgr_adapter_errors_total 1`,
		`wifimgr_goroutine_restarts_total{name="monitor"} 1`,
	} {
		assert.Contains(t, body, line)
	}
}

func TestHandler(t *testing.T) {
	rec := NewRecorder()
	rec.Event("new_network")
	s := NewServer(rec, logx.Nop())

	ts := httptest.NewServer(s.handler(false))
	defer ts.Close()

	body := get(t, ts.URL+"/metrics", http.StatusOK)
	assert.Contains(t, body, `wifimgr_events_total{kind="new_network"} 1`)
	assert.Equal(t, "ok", get(t, ts.URL+"/healthz", http.StatusOK))
	get(t, ts.URL+"/debug/pprof/", http.StatusNotFound)

	ts2 := httptest.NewServer(s.handler(true))
	defer ts2.Close()
	get(t, ts2.URL+"/debug/pprof/", http.StatusOK)
}

func TestServerLifecycle(t *testing.T) {
	s := NewServer(NewRecorder(), logx.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.Reconfigure(ctx, Config{Enabled: true, Addr: "127.0.0.1:0"})
	require.Eventually(t, func() bool { return s.Addr() != "" }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "ok", get(t, "http://"+s.Addr()+"/healthz", http.StatusOK))

	sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer scancel()
	s.Reconfigure(sctx, Config{Enabled: false})
	assert.Empty(t, s.Addr())
}

func TestIsLoopbackAddr(t *testing.T) {
	assert.True(t, isLoopbackAddr("127.0.0.1:9310"))
	assert.True(t, isLoopbackAddr("localhost:9310"))
	assert.True(t, isLoopbackAddr("[::1]:9310"))
	assert.False(t, isLoopbackAddr(":9310"))
	assert.False(t, isLoopbackAddr("0.0.0.0:9310"))
}

func get(t *testing.T, url string, want int) string {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, want, resp.StatusCode, url)
	return strings.TrimSpace(string(b))
}
