// Package monitor polls a wireless adapter and turns what changed into
// notifier events.
//
// One Monitor owns its State; nothing here is global, so several monitors
// can run side by side (tests do).
package monitor

import (
	"context"
	"fmt"
	"time"

	"wifimgr/internal/config"
	"wifimgr/internal/eventbus"
	"wifimgr/internal/notifier"
	"wifimgr/internal/wlan"
	logx "wifimgr/pkg/logx"
)

// Thresholds are signal deltas in percentage points.
type Thresholds struct {
	Trend      int // log a trend line for the connected network
	Notify     int // emit SignalChanged for the connected network
	Background int // log a trend line for any other network
	ScanEvery  int // scan on every Nth tick
}

func DefaultThresholds() Thresholds {
	return Thresholds{Trend: 5, Notify: 10, Background: 15, ScanEvery: 3}
}

// ThresholdsFrom reads thresholds from config, keeping defaults for zeros.
func ThresholdsFrom(c config.MonitorConfig) Thresholds {
	t := DefaultThresholds()
	if c.TrendThreshold > 0 {
		t.Trend = c.TrendThreshold
	}
	if c.NotifyThreshold > 0 {
		t.Notify = c.NotifyThreshold
	}
	if c.BackgroundThreshold > 0 {
		t.Background = c.BackgroundThreshold
	}
	if c.ScanEvery > 0 {
		t.ScanEvery = c.ScanEvery
	}
	return t
}

// Dispatcher receives classified events. *notifier.Router implements it.
type Dispatcher interface {
	Dispatch(ev notifier.Event)
}

// Recorder receives monitor metrics.
type Recorder interface {
	ScanSize(n int)
	TickError()
}

type nopRecorder struct{}

func (nopRecorder) ScanSize(int) {}
func (nopRecorder) TickError()   {}

// State is what the monitor remembers between ticks. Known and Seen are
// keyed by wlan.Key (case-folded SSID).
type State struct {
	Last  *wlan.ConnectionStatus
	Known map[string]int
	Seen  map[string]struct{}
}

type Monitor struct {
	adapter  wlan.Adapter
	out      Dispatcher
	th       Thresholds
	interval time.Duration

	log logx.Logger
	bus eventbus.Bus
	rec Recorder

	state State
	ticks int
}

type Option func(*Monitor)

func WithLogger(log logx.Logger) Option   { return func(m *Monitor) { m.log = log } }
func WithBus(bus eventbus.Bus) Option     { return func(m *Monitor) { m.bus = bus } }
func WithRecorder(rec Recorder) Option    { return func(m *Monitor) { m.rec = rec } }
func WithThresholds(t Thresholds) Option  { return func(m *Monitor) { m.th = t } }
func WithInterval(d time.Duration) Option { return func(m *Monitor) { m.interval = d } }

func New(adapter wlan.Adapter, out Dispatcher, opts ...Option) *Monitor {
	m := &Monitor{
		adapter:  adapter,
		out:      out,
		th:       DefaultThresholds(),
		interval: 5 * time.Second,
	}
	for _, o := range opts {
		o(m)
	}
	if m.log.IsZero() {
		m.log = logx.Nop()
	}
	if m.bus == nil {
		m.bus = eventbus.Nop{}
	}
	if m.rec == nil {
		m.rec = nopRecorder{}
	}
	if m.th.ScanEvery <= 0 {
		m.th.ScanEvery = 1
	}
	m.reset()
	return m
}

func (m *Monitor) reset() {
	m.state = State{Known: map[string]int{}, Seen: map[string]struct{}{}}
	m.ticks = 0
}

// State returns a copy of the current state.
func (m *Monitor) State() State {
	out := State{Known: make(map[string]int, len(m.state.Known)), Seen: make(map[string]struct{}, len(m.state.Seen))}
	if m.state.Last != nil {
		last := *m.state.Last
		out.Last = &last
	}
	for k, v := range m.state.Known {
		out.Known[k] = v
	}
	for k := range m.state.Seen {
		out.Seen[k] = struct{}{}
	}
	return out
}

// Init seeds the state from one status query and one scan. Nothing is
// dispatched: networks visible at startup are not "new".
func (m *Monitor) Init(ctx context.Context) {
	m.reset()

	st, err := m.adapter.Current(ctx)
	if err != nil {
		m.tickError("status", err)
	} else {
		m.state.Last = st
	}

	nets := m.scan(ctx)
	for _, n := range nets {
		k := wlan.Key(n.SSID)
		m.state.Seen[k] = struct{}{}
		m.state.Known[k] = n.Signal
	}

	fields := []logx.Field{logx.Int("visible", len(nets))}
	if st != nil {
		fields = append(fields, logx.String("ssid", st.SSID), logx.Int("signal", st.Signal))
	}
	m.log.Info("monitor initialized", fields...)
}

// Tick runs one poll. An adapter error means "no change" for that step.
func (m *Monitor) Tick(ctx context.Context) {
	m.ticks++

	st, err := m.adapter.Current(ctx)
	if err != nil {
		m.tickError("status", err)
	} else {
		m.compare(m.state.Last, st)
		m.state.Last = st
	}

	if m.ticks%m.th.ScanEvery == 0 {
		m.scanTick(ctx)
	}
}

// Run initializes then ticks every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) error {
	m.Init(ctx)
	m.log.Info("monitoring started", logx.Duration("interval", m.interval))

	t := time.NewTimer(m.interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.log.Info("monitoring stopped")
			return nil
		case <-t.C:
		}
		m.Tick(ctx)
		if ctx.Err() != nil {
			m.log.Info("monitoring stopped")
			return nil
		}
		t.Reset(m.interval)
	}
}

func (m *Monitor) compare(old, cur *wlan.ConnectionStatus) {
	switch {
	case old == nil && cur == nil:
	case old == nil:
		m.emit(notifier.Connected, "Connected to "+cur.SSID)
	case cur == nil:
		m.emit(notifier.Disconnected, "Disconnected from "+old.SSID)
	case !wlan.SameSSID(old.SSID, cur.SSID):
		// A new association; its signal is not compared with the old one.
		m.emit(notifier.Changed, "Switched to "+cur.SSID)
	default:
		diff := abs(cur.Signal - old.Signal)
		if diff >= m.th.Trend {
			m.trend(cur.SSID, old.Signal, cur.Signal, false)
		}
		if diff >= m.th.Notify {
			m.emit(notifier.SignalChanged, fmt.Sprintf("%s: %d%% → %d%% (%s)", cur.SSID, old.Signal, cur.Signal, direction(old.Signal, cur.Signal)))
		}
	}
}

func (m *Monitor) scanTick(ctx context.Context) {
	nets := m.scan(ctx)
	cur := m.state.Last
	fresh := 0
	for _, n := range nets {
		k := wlan.Key(n.SSID)
		if _, seen := m.state.Seen[k]; !seen {
			m.state.Seen[k] = struct{}{}
			m.state.Known[k] = n.Signal
			fresh++
			m.emit(notifier.NewNetwork, fmt.Sprintf("%s (%d%%)", n.SSID, n.Signal))
			continue
		}
		if old, ok := m.state.Known[k]; ok {
			active := cur != nil && wlan.SameSSID(cur.SSID, n.SSID)
			if !active && abs(n.Signal-old) >= m.th.Background {
				m.trend(n.SSID, old, n.Signal, true)
			}
		}
		m.state.Known[k] = n.Signal
	}
	m.bus.Publish(eventbus.Event{Type: eventbus.TypeScan, Data: eventbus.ScanSummary{Visible: len(nets), New: fresh}})
}

// scan never fails: errors are logged and yield an empty list.
func (m *Monitor) scan(ctx context.Context) []wlan.Network {
	nets, err := m.adapter.Scan(ctx)
	if err != nil {
		m.tickError("scan", err)
		return nil
	}
	nets = wlan.Dedupe(nets)
	m.rec.ScanSize(len(nets))
	return nets
}

func (m *Monitor) emit(k notifier.Kind, body string) {
	m.log.Info(k.Title(), logx.String("body", body))
	m.out.Dispatch(notifier.NewEvent(k, body))
}

func (m *Monitor) trend(ssid string, from, to int, background bool) {
	m.log.Info("signal trend",
		logx.String("ssid", ssid),
		logx.Int("from", from),
		logx.Int("to", to),
		logx.String("trend", direction(from, to)),
		logx.Bool("background", background),
	)
	m.bus.Publish(eventbus.Event{Type: eventbus.TypeTrend, Data: eventbus.Trend{SSID: ssid, From: from, To: to, Background: background}})
}

func (m *Monitor) tickError(op string, err error) {
	m.log.Warn("adapter query failed", logx.String("op", op), logx.Err(err))
	m.rec.TickError()
	m.bus.Publish(eventbus.Event{Type: eventbus.TypeTickError, Data: op + ": " + err.Error()})
}

func direction(from, to int) string {
	if to > from {
		return "improved"
	}
	return "degraded"
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
