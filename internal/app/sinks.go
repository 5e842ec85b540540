package app

import (
	"io"
	"os"
	"strings"

	"wifimgr/internal/config"
	"wifimgr/internal/notifier"
	"wifimgr/internal/notifier/natspub"
	"wifimgr/internal/notifier/telegram"
	logx "wifimgr/pkg/logx"
)

// buildSinks creates the optional extra channels. A sink that cannot be
// created is logged and left out; it never stops startup.
func buildSinks(cfg *config.Config, log logx.Logger) ([]notifier.Sink, []io.Closer) {
	var (
		sinks   []notifier.Sink
		closers []io.Closer
	)

	if tc := cfg.Telegram; tc != nil && tc.Enabled {
		s, err := telegram.New(telegram.Config{
			Token:      tc.Token,
			ChatID:     tc.ChatID,
			ThreadID:   tc.ThreadID,
			RatePerSec: tc.RatePerSec,
		})
		if err != nil {
			log.Warn("telegram sink disabled", logx.Err(err))
		} else {
			sinks = append(sinks, s)
			log.Info("telegram sink enabled", logx.Int64("chat_id", tc.ChatID))
		}
	}

	if nc := cfg.NATS; nc != nil && nc.Enabled {
		host, _ := os.Hostname()
		s, err := natspub.Connect(strings.TrimSpace(nc.URL), nc.Subject, host)
		if err != nil {
			log.Warn("nats sink disabled", logx.Err(err))
		} else {
			sinks = append(sinks, s)
			closers = append(closers, s)
			log.Info("nats sink enabled", logx.String("subject", nc.Subject))
		}
	}
	return sinks, closers
}
