package app

import (
	"context"
	"errors"
	"io"
	"runtime"
	"strings"
	"time"

	"wifimgr/internal/config"
	"wifimgr/internal/eventbus"
	"wifimgr/internal/gntp"
	"wifimgr/internal/metrics"
	"wifimgr/internal/monitor"
	"wifimgr/internal/notifier"
	"wifimgr/internal/notifier/popup"
	rtsup "wifimgr/internal/runtime/supervisor"
	"wifimgr/internal/storage"
	"wifimgr/internal/wlan"
	logx "wifimgr/pkg/logx"
)

const shutdownTimeout = 5 * time.Second

// Deps overrides collaborators that are normally built from the config.
// Zero values mean "build the default".
type Deps struct {
	Adapter  wlan.Adapter
	Popup    notifier.Popup
	Sinks    []notifier.Sink
	IconDirs []string
	Dialer   gntp.DialFunc
	Logger   logx.Logger
	// Units reports the backend service state; nil queries systemd when
	// the nmcli driver is in use.
	Units wlan.UnitFunc
	// Overlay is applied to every reloaded config.
	Overlay func(*config.Config)
}

type App struct {
	cfgm *config.Manager

	log  logx.Logger
	logs *logx.Service
	bus  eventbus.Bus

	journal  storage.Journal
	rec      *metrics.Recorder
	metrics  *metrics.Server
	adapter  wlan.Adapter
	units    wlan.UnitFunc
	router   *notifier.Router
	monitor  *monitor.Monitor
	reporter *Reporter
	sd       *sdNotifier

	closers []io.Closer
	sup     *rtsup.Supervisor
}

// New wires every component from cfg. Nothing is started; cfgPath may be
// empty, in which case the config file is not watched.
func New(cfgPath string, cfg *config.Config, deps Deps) (*App, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}

	var (
		logs *logx.Service
		log  logx.Logger
	)
	if deps.Logger.IsZero() {
		logs, log = logx.New(mapLogConfig(cfg))
	} else {
		log = deps.Logger
	}
	log = log.With(logx.String("comp", "app"))

	cfgm := config.NewManager(cfgPath, cfg)
	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	if deps.Overlay != nil {
		cfgm.SetOverlay(deps.Overlay)
	}

	bus := eventbus.New()

	journal, err := OpenJournal(cfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	adapter := deps.Adapter
	if adapter == nil {
		ad, err := NewAdapter(cfg.Adapter)
		if err != nil {
			closeJournal(journal, log)
			return nil, err
		}
		adapter = ad
	}

	units := deps.Units
	if units == nil && deps.Adapter == nil {
		units = UnitsFor(cfg.Adapter)
	}

	var pop notifier.Popup = deps.Popup
	if pop == nil {
		pop = popup.New(runtime.GOOS == "linux")
	}

	rec := metrics.NewRecorder()

	sinks, closers := buildSinks(cfg, log.With(logx.String("comp", "sinks")))
	sinks = append(sinks, deps.Sinks...)

	ropts := []notifier.Option{
		notifier.WithLogger(log.With(logx.String("comp", "notifier"))),
		notifier.WithBus(bus),
		notifier.WithRecorder(rec),
		notifier.WithSinks(sinks...),
	}
	if deps.IconDirs != nil {
		ropts = append(ropts, notifier.WithIconDirs(deps.IconDirs...))
	}
	if deps.Dialer != nil {
		ropts = append(ropts, notifier.WithDialer(deps.Dialer))
	}
	router := notifier.New(cfg, pop, ropts...)

	mon := monitor.New(adapter, router,
		monitor.WithLogger(log.With(logx.String("comp", "monitor"))),
		monitor.WithBus(bus),
		monitor.WithRecorder(rec),
		monitor.WithThresholds(monitor.ThresholdsFrom(cfg.Monitor)),
		monitor.WithInterval(cfg.PollInterval()),
	)

	return &App{
		cfgm:     cfgm,
		log:      log,
		logs:     logs,
		bus:      bus,
		journal:  journal,
		rec:      rec,
		metrics:  metrics.NewServer(rec, log.With(logx.String("comp", "metrics"))),
		adapter:  adapter,
		units:    units,
		router:   router,
		monitor:  mon,
		reporter: NewReporter(adapter, units, router.Hosts, router, log.With(logx.String("comp", "report"))),
		sd:       newSDNotifier(log.With(logx.String("comp", "systemd"))),
		closers:  closers,
	}, nil
}

func (a *App) Adapter() wlan.Adapter       { return a.adapter }
func (a *App) Router() *notifier.Router    { return a.router }
func (a *App) Journal() storage.Journal    { return a.journal }
func (a *App) Bus() eventbus.Bus           { return a.bus }
func (a *App) Recorder() *metrics.Recorder { return a.rec }

// Run starts every component and blocks until ctx is canceled, then shuts
// down in reverse order.
func (a *App) Run(ctx context.Context) error {
	a.sup = rtsup.New(ctx,
		rtsup.WithLogger(a.log),
		rtsup.WithCancelOnError(false),
		rtsup.WithRestartHook(a.rec.Restart),
	)
	sctx := a.sup.Context()
	cfg := a.cfgm.Get()

	a.router.Start(sctx)
	a.metrics.Reconfigure(sctx, mapMetricsConfig(cfg))
	if err := a.reporter.Reconfigure(cfg.Report); err != nil {
		a.log.Warn("status report disabled", logx.Err(err))
	}

	if a.journal != nil {
		a.sup.GoRestart("storage.record", func(c context.Context) error {
			return storage.Record(c, a.bus, a.journal, a.log.With(logx.String("comp", "storage")))
		})
	}

	events, unsub := a.bus.Subscribe(128)
	a.sup.Go0("eventbus.log", func(c context.Context) {
		defer unsub()
		for {
			select {
			case <-c.Done():
				return
			case e, ok := <-events:
				if !ok {
					return
				}
				a.log.Debug("event", logx.String("type", e.Type), logx.Any("data", e.Data))
			}
		}
	})

	if strings.TrimSpace(a.cfgm.Path()) != "" {
		a.sup.GoRestart("config.watch", a.cfgm.Watch)
	}
	sub := a.cfgm.Subscribe(8)
	a.sup.Go0("config.reload", func(c context.Context) {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(c, sub)
	})

	a.sup.GoRestart("monitor", a.monitor.Run, rtsup.WithRestartBackoff(time.Second, time.Minute))

	a.sd.Ready()
	a.sup.Go0("systemd.watchdog", a.sd.Watchdog)

	<-sctx.Done()
	a.log.Info("shutting down")
	a.sd.Stopping()
	return a.shutdown()
}

func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: keep only the latest config.
		drain:
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					break drain
				}
			}
			a.apply(ctx, lastApplied, newCfg)
			lastApplied = newCfg
		}
	}
}

// restartOnly lists sections that are read once at startup.
var restartOnly = map[string]bool{
	"monitor":  true,
	"adapter":  true,
	"telegram": true,
	"nats":     true,
	"storage":  true,
}

func (a *App) apply(ctx context.Context, oldCfg, newCfg *config.Config) {
	sections, attrs := config.SummarizeChange(oldCfg, newCfg)
	if len(sections) > 0 {
		fields := append([]logx.Field{logx.String("changed", strings.Join(sections, ","))}, attrs...)
		a.log.Info("config change summary", fields...)
	} else {
		a.log.Debug("config reload received, but no effective changes detected")
	}

	if a.logs != nil {
		a.logs.Apply(mapLogConfig(newCfg))
	}
	// Reinitializing is also how failed hosts are retried.
	a.router.Reinitialize(ctx, newCfg)
	a.metrics.Reconfigure(ctx, mapMetricsConfig(newCfg))
	if err := a.reporter.Reconfigure(newCfg.Report); err != nil {
		a.log.Warn("status report not updated", logx.Err(err))
	}

	for _, s := range sections {
		if restartOnly[s] {
			a.log.Warn("config section changed; restart required to apply", logx.String("section", s))
		}
	}
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	a.reporter.Stop()
	a.router.Close(ctx)
	a.metrics.Stop(ctx)
	if err := a.sup.Stop(ctx); errors.Is(err, context.DeadlineExceeded) {
		errs = append(errs, err)
	}
	errs = append(errs, a.closeResources()...)
	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return errors.Join(errs...)
}

// Close releases resources for an App that was built but never Run.
func (a *App) Close() error {
	errs := a.closeResources()
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return errors.Join(errs...)
}

func (a *App) closeResources() []error {
	var errs []error
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			errs = append(errs, err)
		}
		a.journal = nil
	}
	return errs
}

// Test starts the notification channels, sends one test notification to
// each of them and stops again.
func (a *App) Test(ctx context.Context) []notifier.TestResult {
	a.router.Start(ctx)
	defer func() {
		cctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.router.Close(cctx)
	}()
	return a.router.Test(ctx)
}

// Status renders the same summary the scheduled report sends.
func (a *App) Status(ctx context.Context) string {
	return StatusSummary(ctx, a.adapter, a.units, a.router.Hosts())
}

func closeJournal(j storage.Journal, log logx.Logger) {
	if j == nil {
		return
	}
	if err := j.Close(); err != nil {
		log.Warn("journal close failed", logx.Err(err))
	}
}
