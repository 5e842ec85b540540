package app

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "wifimgr/pkg/logx"
)

// sdNotifier reports lifecycle to systemd. Every call is a no-op when not
// running under a Type=notify unit.
type sdNotifier struct {
	log      logx.Logger
	notify   func(unsetEnvironment bool, state string) (bool, error)
	watchdog func(unsetEnvironment bool) (time.Duration, error)
}

func newSDNotifier(log logx.Logger) *sdNotifier {
	return &sdNotifier{log: log, notify: daemon.SdNotify, watchdog: daemon.SdWatchdogEnabled}
}

func (s *sdNotifier) send(state string) {
	sent, err := s.notify(false, state)
	switch {
	case err != nil:
		s.log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
	case sent:
		s.log.Debug("sd_notify sent", logx.String("state", state))
	}
}

func (s *sdNotifier) Ready()    { s.send(daemon.SdNotifyReady) }
func (s *sdNotifier) Stopping() { s.send(daemon.SdNotifyStopping) }

// Watchdog pings at half the configured WatchdogSec until ctx is done.
func (s *sdNotifier) Watchdog(ctx context.Context) {
	interval, err := s.watchdog(false)
	if err != nil {
		s.log.Warn("systemd watchdog misconfigured", logx.Err(err))
		return
	}
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval / 2)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			s.send(daemon.SdNotifyWatchdog)
		}
	}
}
