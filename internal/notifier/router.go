package notifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"wifimgr/internal/config"
	"wifimgr/internal/eventbus"
	"wifimgr/internal/gntp"
	logx "wifimgr/pkg/logx"
)

// Router owns every delivery channel and fans events out to them.
//
// It is safe for concurrent use.
type Router struct {
	log   logx.Logger
	bus   eventbus.Bus
	rec   Recorder
	popup Popup
	sinks []sinkEntry

	iconDirs []string
	dial     gntp.DialFunc

	// initMu serializes Start, Reinitialize and Close.
	initMu sync.Mutex
	base   context.Context

	// mu is the dispatch lock. It also guards the fields below, which are
	// swapped as a unit on (re)initialization.
	mu     sync.Mutex
	cfg    *config.Config
	hosts  []*gntp.HostConnection
	icon   *Icon
	pool   *pool
	closed bool
}

type sinkEntry struct {
	sink    Sink
	limiter *rate.Limiter
}

type Option func(*Router)

func WithLogger(log logx.Logger) Option { return func(r *Router) { r.log = log } }

func WithBus(bus eventbus.Bus) Option { return func(r *Router) { r.bus = bus } }

func WithRecorder(rec Recorder) Option { return func(r *Router) { r.rec = rec } }

// WithSinks adds extra channels. A RatedSink is paced with a token bucket;
// others get one call per second with a small burst.
func WithSinks(sinks ...Sink) Option {
	return func(r *Router) {
		for _, s := range sinks {
			if s == nil {
				continue
			}
			perSec := 1.0
			if rs, ok := s.(RatedSink); ok && rs.RatePerSec() > 0 {
				perSec = rs.RatePerSec()
			}
			burst := max(int(perSec), 3)
			r.sinks = append(r.sinks, sinkEntry{sink: s, limiter: rate.NewLimiter(rate.Limit(perSec), burst)})
		}
	}
}

// WithIconDirs overrides where conventional icon files are looked up.
func WithIconDirs(dirs ...string) Option { return func(r *Router) { r.iconDirs = dirs } }

// WithDialer replaces the TCP dialer used for every host.
func WithDialer(d gntp.DialFunc) Option { return func(r *Router) { r.dial = d } }

// New builds a router. popup may be nil. Call Start before Dispatch.
func New(cfg *config.Config, popup Popup, opts ...Option) *Router {
	r := &Router{cfg: cfg, popup: popup, iconDirs: DefaultIconDirs()}
	for _, o := range opts {
		o(r)
	}
	if r.log.IsZero() {
		r.log = logx.Nop()
	}
	if r.bus == nil {
		r.bus = eventbus.Nop{}
	}
	if r.rec == nil {
		r.rec = nopRecorder{}
	}
	if r.cfg == nil {
		r.cfg = config.Defaults()
	}
	return r
}

// Start resolves the icon, probes and registers every enabled host and
// starts the sender pool. It blocks for up to one connection timeout per
// unreachable host. ctx also bounds the lifetime of the sender pool.
func (r *Router) Start(ctx context.Context) {
	r.initMu.Lock()
	defer r.initMu.Unlock()

	r.base = ctx
	r.mu.Lock()
	cfg := r.cfg
	r.mu.Unlock()
	r.install(r.build(ctx, cfg))
}

// Reinitialize drops every host and the cached icon, then repeats Start
// with cfg. It is the only way a failed host comes back. It does nothing
// once Close has run.
func (r *Router) Reinitialize(ctx context.Context, cfg *config.Config) {
	if cfg == nil {
		return
	}
	r.initMu.Lock()
	defer r.initMu.Unlock()
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		r.log.Debug("reinitialize after close ignored")
		return
	}
	if r.base == nil {
		r.base = ctx
	}

	old := r.teardown()
	if old != nil {
		// In-flight sends to the old hosts are abandoned.
		sctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		old.stop(sctx)
		cancel()
	}
	r.log.Info("reinitializing notification channels")
	r.install(r.build(ctx, cfg))
}

// Close stops intake and drains queued sends until ctx is done.
func (r *Router) Close(ctx context.Context) {
	r.initMu.Lock()
	defer r.initMu.Unlock()

	r.mu.Lock()
	r.closed = true
	p := r.pool
	r.pool = nil
	r.hosts = nil
	r.mu.Unlock()
	if p != nil {
		p.stop(ctx)
	}
}

type state struct {
	cfg   *config.Config
	hosts []*gntp.HostConnection
	icon  *Icon
	pool  *pool
}

func (r *Router) build(ctx context.Context, cfg *config.Config) state {
	n := cfg.Notifications
	st := state{cfg: cfg}
	st.icon = ResolveIcon(n.IconPath, r.iconDirs, r.log)

	switch {
	case !n.EnableGrowl:
		r.log.Info("GNTP: DISABLED (turned off in config)")
	default:
		st.hosts = r.connectAll(ctx, cfg, st.icon)
		if len(st.hosts) == 0 {
			r.log.Info("GNTP: DISABLED (no reachable host)")
		} else {
			r.log.Info(fmt.Sprintf("GNTP: ENABLED (%d host(s))", len(st.hosts)))
		}
	}
	if n.EnablePopup && r.popup != nil {
		r.log.Info("popup: ENABLED")
	} else {
		r.log.Info("popup: DISABLED")
	}

	base := r.base
	if base == nil {
		base = context.Background()
	}
	lanes := make([]string, 0, len(st.hosts)+len(r.sinks))
	for _, h := range st.hosts {
		lanes = append(lanes, hostKey(h))
	}
	for _, se := range r.sinks {
		lanes = append(lanes, sinkKey(se.sink))
	}
	st.pool = newPool(base, n.Workers, n.QueueSize, r.log.With(logx.String("comp", "sender")), lanes...)
	return st
}

func hostKey(h *gntp.HostConnection) string { return "gntp:" + h.Host().HostPort() }

func sinkKey(s Sink) string { return "sink:" + s.Name() }

// connectAll probes then registers each enabled host in order. Hosts that
// fail either step are dropped.
func (r *Router) connectAll(ctx context.Context, cfg *config.Config, icon *Icon) []*gntp.HostConnection {
	var out []*gntp.HostConnection
	types := registrationTypes()
	app := cfg.Notifications.AppName
	for _, hc := range cfg.Notifications.GrowlHosts {
		if !hc.Enabled {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		c := gntp.NewHostConnection(gntp.Host{Addr: hc.Host, Port: hc.Port, Name: hc.Name})
		c.IOTimeout = cfg.SendTimeout()
		if r.dial != nil {
			c.SetDialer(r.dial)
		}
		log := r.log.With(logx.String("host", c.Host().String()))

		if err := c.Probe(ctx, cfg.ConnectionTimeout()); err != nil {
			log.Warn("GNTP host unreachable", logx.Err(err))
			continue
		}
		appIcon := icon.URIFor(c.IsLoopback())
		if err := c.Register(ctx, app, appIcon, withIcon(types, appIcon)); err != nil {
			log.Warn("GNTP registration failed", logx.Err(err))
			continue
		}
		log.Info("GNTP host registered")
		out = append(out, c)
	}
	return out
}

func registrationTypes() []gntp.NotificationType {
	kinds := Kinds()
	out := make([]gntp.NotificationType, 0, len(kinds))
	for _, k := range kinds {
		out = append(out, gntp.NotificationType{Name: k.Title(), Enabled: true})
	}
	return out
}

func withIcon(types []gntp.NotificationType, uri string) []gntp.NotificationType {
	out := make([]gntp.NotificationType, len(types))
	for i, t := range types {
		t.Icon = uri
		out[i] = t
	}
	return out
}

func (r *Router) install(st state) {
	r.mu.Lock()
	r.cfg = st.cfg
	r.hosts = st.hosts
	r.icon = st.icon
	r.pool = st.pool
	r.closed = false
	r.mu.Unlock()
	r.rec.HostsAvailable(countAvailable(st.hosts))
}

func (r *Router) teardown() *pool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.pool
	r.pool = nil
	r.hosts = nil
	r.icon = nil
	return p
}

// Dispatch delivers ev to the popup synchronously and queues one send per
// available host and per sink. It never waits on the network.
func (r *Router) Dispatch(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}

	msg := resolve(r.cfg, ev)
	r.rec.Event(ev.Kind.String())
	r.bus.Publish(eventbus.Event{Type: eventbus.TypeNotification, Time: msg.At, Data: msg})

	if r.cfg.Notifications.EnablePopup {
		r.showPopup(msg.Title, msg.Body)
	}
	if r.pool == nil {
		return
	}

	hosts := r.hosts
	for _, h := range hosts {
		if !h.Available() {
			continue
		}
		n := gntp.Notify{
			App:      r.cfg.Notifications.AppName,
			Name:     ev.Kind.Title(),
			Title:    msg.Title,
			Text:     msg.Body,
			Priority: msg.Priority,
			Sticky:   msg.Sticky,
			Icon:     r.icon.URIFor(h.IsLoopback()),
		}
		if n.Name == "" {
			n.Name = msg.Title
		}
		r.enqueue(job{
			key: hostKey(h),
			run: func(ctx context.Context) { r.sendHost(ctx, h, n, hosts) },
		})
	}
	for _, se := range r.sinks {
		r.enqueue(job{
			key: sinkKey(se.sink),
			run: func(ctx context.Context) { r.sendSink(ctx, se, msg) },
		})
	}
}

func resolve(cfg *config.Config, ev Event) Message {
	n := cfg.Notifications
	title := ev.Title
	if title == "" {
		title = ev.Kind.Title()
	}
	sticky, ok := n.Sticky[title]
	if !ok {
		sticky = n.DefaultSticky
	}
	return Message{
		Kind:     ev.Kind.String(),
		Title:    title,
		Body:     ev.Body,
		Priority: n.Priorities[title],
		Sticky:   sticky,
		At:       time.Now(),
	}
}

func (r *Router) enqueue(j job) {
	if err := r.pool.submit(j); err != nil {
		r.log.Warn("notification send dropped", logx.String("channel", j.key), logx.Err(err))
		r.rec.Send(j.key, false)
	}
}

// showPopup never fails: a popup error falls back to a beep, and a beep
// error is only logged.
func (r *Router) showPopup(title, body string) {
	if r.popup == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.log.Warn("popup panicked", logx.Any("panic", p))
		}
	}()
	iconPath := ""
	if r.icon != nil {
		iconPath = r.icon.Path
	}
	err := r.popup.Show(title, body, iconPath)
	r.rec.Send("popup", err == nil)
	if err == nil {
		return
	}
	r.log.Debug("popup failed; beeping", logx.Err(err))
	if err := r.popup.Beep(); err != nil {
		r.log.Debug("beep failed", logx.Err(err))
	}
}

func (r *Router) sendHost(ctx context.Context, h *gntp.HostConnection, n gntp.Notify, snapshot []*gntp.HostConnection) {
	// Another job may have failed this host since it was queued.
	if !h.Available() {
		return
	}
	name := h.Host().String()
	err := h.Notify(ctx, n)
	if err != nil && ctx.Err() != nil {
		r.log.Debug("send abandoned", logx.String("host", name))
		return
	}
	r.rec.Send("gntp", err == nil)
	res := eventbus.SendResult{Channel: "gntp:" + name, OK: err == nil}
	if err != nil {
		res.Error = err.Error()
		r.log.Warn("GNTP host failed; skipping until reinitialize", logx.String("host", name), logx.Err(err))
		r.bus.Publish(eventbus.Event{Type: eventbus.TypeHostDown, Data: name})
		r.rec.HostsAvailable(countAvailable(snapshot))
	}
	r.bus.Publish(eventbus.Event{Type: eventbus.TypeSend, Data: res})
}

func (r *Router) sendSink(ctx context.Context, se sinkEntry, m Message) {
	if err := se.limiter.Wait(ctx); err != nil {
		return
	}
	name := se.sink.Name()
	err := se.sink.Send(ctx, m)
	if err != nil && ctx.Err() != nil {
		return
	}
	r.rec.Send(name, err == nil)
	res := eventbus.SendResult{Channel: name, OK: err == nil}
	if err != nil {
		res.Error = err.Error()
		r.log.Warn("sink send failed", logx.String("sink", name), logx.Err(err))
	}
	r.bus.Publish(eventbus.Event{Type: eventbus.TypeSend, Data: res})
}

// Hosts reports the hosts kept after the last initialization.
func (r *Router) Hosts() []HostStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]HostStatus, 0, len(r.hosts))
	for _, h := range r.hosts {
		out = append(out, HostStatus{Host: h.Host().String(), Loopback: h.IsLoopback(), Available: h.Available()})
	}
	return out
}

// Icon returns the cached icon, or nil.
func (r *Router) Icon() *Icon {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.icon
}

// Test sends a test notification through the popup, every available host
// and every sink, waiting for each. Failed hosts are marked unavailable
// like any other send.
func (r *Router) Test(ctx context.Context) []TestResult {
	r.mu.Lock()
	cfg := r.cfg
	hosts := append([]*gntp.HostConnection(nil), r.hosts...)
	icon := r.icon
	sinks := append([]sinkEntry(nil), r.sinks...)
	r.mu.Unlock()

	var out []TestResult
	if cfg.Notifications.EnablePopup && r.popup != nil {
		iconPath := ""
		if icon != nil {
			iconPath = icon.Path
		}
		err := r.popup.Show(config.TitleTest, "Desktop notification is working!", iconPath)
		out = append(out, TestResult{Channel: "popup", Err: err})
	}
	for _, h := range hosts {
		name := h.Host().String()
		if !h.Available() {
			out = append(out, TestResult{Channel: "gntp:" + name, Err: errors.New("host unavailable")})
			continue
		}
		msg := resolve(cfg, NewEvent(Test, "GNTP notification from "+h.Host().Addr+" is working!"))
		err := h.Notify(ctx, gntp.Notify{
			App:      cfg.Notifications.AppName,
			Name:     Test.Title(),
			Title:    msg.Title,
			Text:     msg.Body,
			Priority: msg.Priority,
			Sticky:   msg.Sticky,
			Icon:     icon.URIFor(h.IsLoopback()),
		})
		out = append(out, TestResult{Channel: "gntp:" + name, Err: err})
	}
	for _, se := range sinks {
		msg := resolve(cfg, NewEvent(Test, se.sink.Name()+" notification is working!"))
		out = append(out, TestResult{Channel: se.sink.Name(), Err: se.sink.Send(ctx, msg)})
	}
	return out
}

func countAvailable(hosts []*gntp.HostConnection) int {
	n := 0
	for _, h := range hosts {
		if h.Available() {
			n++
		}
	}
	return n
}
