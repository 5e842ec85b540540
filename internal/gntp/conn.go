package gntp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// responseLimit bounds how much of a reply is read.
const responseLimit = 1024

var ErrRejected = errors.New("response lacks success marker")

// Error describes a failed probe/register/notify against one host.
type Error struct {
	Op   string
	Host string
	Err  error
}

func (e *Error) Error() string { return "gntp " + e.Op + " " + e.Host + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

// Host identifies a remote GNTP endpoint.
type Host struct {
	Addr string
	Port int
	Name string
}

func (h Host) HostPort() string {
	port := h.Port
	if port <= 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(h.Addr, strconv.Itoa(port))
}

func (h Host) String() string {
	if h.Name != "" {
		return h.HostPort() + " (" + h.Name + ")"
	}
	return h.HostPort()
}

// HostConnection owns one remote endpoint. Connections are never pooled:
// every call dials a fresh session and closes it before returning.
//
// available starts false, becomes true after a successful probe and
// registration, and drops to false on any I/O or protocol error. Nothing
// in this type sets it back; recovery means building a new HostConnection.
type HostConnection struct {
	host      Host
	available atomic.Bool

	// IOTimeout bounds a whole register/notify session (default 5s).
	IOTimeout time.Duration

	dial DialFunc
}

// DialFunc opens a transport connection; it matches net.Dialer.DialContext.
type DialFunc func(ctx context.Context, network, addr string) (net.Conn, error)

func NewHostConnection(h Host) *HostConnection {
	var d net.Dialer
	return &HostConnection{host: h, IOTimeout: 5 * time.Second, dial: d.DialContext}
}

// SetDialer replaces the dialer used for every session. nil restores the default.
func (c *HostConnection) SetDialer(d DialFunc) {
	if d == nil {
		var nd net.Dialer
		d = nd.DialContext
	}
	c.dial = d
}

func (c *HostConnection) Host() Host      { return c.host }
func (c *HostConnection) Available() bool { return c.available.Load() }

// MarkUnavailable excludes the host from further delivery.
func (c *HostConnection) MarkUnavailable() { c.available.Store(false) }

// IsLoopback reports whether the host is on this machine.
func (c *HostConnection) IsLoopback() bool {
	a := strings.ToLower(strings.TrimSpace(c.host.Addr))
	if a == "localhost" {
		return true
	}
	ip := net.ParseIP(a)
	return ip != nil && ip.IsLoopback()
}

// Probe checks that a TCP connection completes within timeout.
func (c *HostConnection) Probe(ctx context.Context, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = time.Second
	}
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := c.dial(pctx, "tcp", c.host.HostPort())
	if err != nil {
		c.available.Store(false)
		return &Error{Op: "probe", Host: c.host.String(), Err: err}
	}
	_ = conn.Close()
	c.available.Store(true)
	return nil
}

// Register announces the application and its notification types.
func (c *HostConnection) Register(ctx context.Context, app, appIcon string, types []NotificationType) error {
	if err := c.roundTrip(ctx, EncodeRegister(app, appIcon, types)); err != nil {
		c.available.Store(false)
		return &Error{Op: "register", Host: c.host.String(), Err: err}
	}
	c.available.Store(true)
	return nil
}

// Notify sends one notification. A failure marks the host unavailable.
func (c *HostConnection) Notify(ctx context.Context, n Notify) error {
	if err := c.roundTrip(ctx, EncodeNotify(n)); err != nil {
		c.available.Store(false)
		return &Error{Op: "notify", Host: c.host.String(), Err: err}
	}
	return nil
}

func (c *HostConnection) roundTrip(ctx context.Context, msg []byte) error {
	timeout := c.IOTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	conn, err := c.dial(ctx, "tcp", c.host.HostPort())
	if err != nil {
		return err
	}
	defer conn.Close()

	if dl, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(dl)
	}
	// Unblock I/O if the caller cancels early.
	stop := context.AfterFunc(ctx, func() { _ = conn.SetDeadline(time.Now()) })
	defer stop()

	if _, err := conn.Write(msg); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	resp, err := readResponse(conn)
	if err != nil && len(resp) == 0 {
		return fmt.Errorf("read: %w", err)
	}
	if !IsSuccess(resp) {
		return ErrRejected
	}
	return nil
}

// readResponse reads until the header block ends, the peer closes, or
// responseLimit bytes have arrived.
func readResponse(r io.Reader) ([]byte, error) {
	buf := make([]byte, responseLimit)
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if bytes.Contains(buf[:n], []byte(crlf+crlf)) {
			return buf[:n], nil
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return buf[:n], nil
			}
			return buf[:n], err
		}
	}
	return buf[:n], nil
}
