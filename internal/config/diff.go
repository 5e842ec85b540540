package config

import (
	"reflect"

	logx "wifimgr/pkg/logx"
)

// SummarizeChange returns the changed top-level sections and safe structured
// attrs for logging (never includes secrets such as the Telegram token).
func SummarizeChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 8)
	attrs := make([]logx.Field, 0, 16)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}
	if !reflect.DeepEqual(oldCfg.Notifications, newCfg.Notifications) {
		n := newCfg.Notifications
		enabled := 0
		for _, h := range n.GrowlHosts {
			if h.Enabled {
				enabled++
			}
		}
		changed = append(changed, "notifications")
		attrs = append(attrs,
			logx.Bool("notifications.popup", n.EnablePopup),
			logx.Bool("notifications.growl", n.EnableGrowl),
			logx.Int("notifications.hosts_enabled", enabled),
			logx.String("notifications.connection_timeout", n.ConnectionTimeout),
		)
	}
	if !reflect.DeepEqual(oldCfg.Monitor, newCfg.Monitor) {
		changed = append(changed, "monitor")
		attrs = append(attrs, logx.String("monitor.interval", newCfg.Monitor.Interval))
	}
	if !reflect.DeepEqual(oldCfg.Adapter, newCfg.Adapter) {
		changed = append(changed, "adapter")
	}
	if !reflect.DeepEqual(redactTelegram(oldCfg.Telegram), redactTelegram(newCfg.Telegram)) ||
		tokenSet(oldCfg.Telegram) != tokenSet(newCfg.Telegram) {
		changed = append(changed, "telegram")
		attrs = append(attrs, logx.Bool("telegram.token_set", tokenSet(newCfg.Telegram)))
	}
	if !reflect.DeepEqual(oldCfg.NATS, newCfg.NATS) {
		changed = append(changed, "nats")
	}
	if !reflect.DeepEqual(oldCfg.Storage, newCfg.Storage) {
		changed = append(changed, "storage")
	}
	if !reflect.DeepEqual(oldCfg.Metrics, newCfg.Metrics) {
		changed = append(changed, "metrics")
	}
	if !reflect.DeepEqual(oldCfg.Report, newCfg.Report) {
		changed = append(changed, "report")
	}
	return changed, attrs
}

func redactTelegram(t *TelegramConfig) *TelegramConfig {
	if t == nil {
		return nil
	}
	cp := *t
	cp.Token = ""
	return &cp
}

func tokenSet(t *TelegramConfig) bool { return t != nil && t.Token != "" }
