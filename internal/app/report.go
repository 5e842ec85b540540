package app

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"wifimgr/internal/config"
	"wifimgr/internal/notifier"
	"wifimgr/internal/wlan"
	logx "wifimgr/pkg/logx"
)

const reportTimeout = 10 * time.Second

// Reporter dispatches a periodic "WiFi Status" summary on a cron schedule.
type Reporter struct {
	mu     sync.Mutex
	log    logx.Logger
	parser cron.Parser
	c      *cron.Cron
	spec   string

	adapter wlan.Adapter
	units   wlan.UnitFunc
	hosts   func() []notifier.HostStatus
	out     interface{ Dispatch(notifier.Event) }
}

// units may be nil.
func NewReporter(adapter wlan.Adapter, units wlan.UnitFunc, hosts func() []notifier.HostStatus, out interface{ Dispatch(notifier.Event) }, log logx.Logger) *Reporter {
	return &Reporter{
		units:   units,
		log:     log,
		parser:  cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor),
		adapter: adapter,
		hosts:   hosts,
		out:     out,
	}
}

// Reconfigure starts, stops or reschedules the reporter. A nil or disabled
// cfg stops it.
func (r *Reporter) Reconfigure(cfg *config.ReportConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	spec := ""
	if cfg != nil && cfg.Enabled {
		spec = strings.TrimSpace(cfg.Schedule)
	}
	if spec == r.spec {
		return nil
	}
	if spec != "" {
		if _, err := r.parser.Parse(spec); err != nil {
			return fmt.Errorf("report.schedule: %w", err)
		}
	}

	r.stopLocked()
	r.spec = spec
	if spec == "" {
		return nil
	}
	r.c = cron.New(cron.WithParser(r.parser))
	if _, err := r.c.AddFunc(spec, r.Report); err != nil {
		r.c = nil
		return fmt.Errorf("report.schedule: %w", err)
	}
	r.c.Start()
	r.log.Info("status report scheduled", logx.String("schedule", spec))
	return nil
}

// Report dispatches one summary now.
func (r *Reporter) Report() {
	ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
	defer cancel()
	r.out.Dispatch(notifier.NewEvent(notifier.Status, StatusSummary(ctx, r.adapter, r.units, r.hosts())))
}

func (r *Reporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopLocked()
	r.spec = ""
}

func (r *Reporter) stopLocked() {
	if r.c != nil {
		<-r.c.Stop().Done()
		r.c = nil
	}
}

// StatusSummary renders the current association, the backend service state
// (when units is set) and GNTP host health.
func StatusSummary(ctx context.Context, adapter wlan.Adapter, units wlan.UnitFunc, hosts []notifier.HostStatus) string {
	var b strings.Builder
	cur, err := adapter.Current(ctx)
	switch {
	case err != nil:
		fmt.Fprintf(&b, "Adapter error: %v", err)
	case cur == nil:
		b.WriteString("Not connected")
	default:
		fmt.Fprintf(&b, "Connected to %s (%d%%)", cur.SSID, cur.Signal)
	}

	if units != nil {
		if u, err := units(ctx, wlan.BackendUnit); err == nil {
			b.WriteString("\n" + u.String())
		}
	}

	up := 0
	for _, h := range hosts {
		if h.Available {
			up++
		}
	}
	if len(hosts) > 0 {
		fmt.Fprintf(&b, "\nGNTP hosts: %d/%d available", up, len(hosts))
	}
	return b.String()
}
