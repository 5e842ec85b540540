package config

// Config is the on-disk configuration (JSON or YAML).
//
// Durations are Go duration strings (e.g. "500ms", "5s").
// Fields omitted from the file keep their Defaults() value; maps are merged
// key by key, lists replace the default list.
type Config struct {
	Logging       LoggingConfig       `json:"logging"`
	Notifications NotificationsConfig `json:"notifications"`
	Monitor       MonitorConfig       `json:"monitor"`
	Adapter       AdapterConfig       `json:"adapter"`

	Telegram *TelegramConfig `json:"telegram,omitempty"`
	NATS     *NATSConfig     `json:"nats,omitempty"`
	Storage  *StorageConfig  `json:"storage,omitempty"`
	Metrics  *MetricsConfig  `json:"metrics,omitempty"`
	Report   *ReportConfig   `json:"report,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// NotificationsConfig controls the popup and GNTP channels.
type NotificationsConfig struct {
	AppName     string       `json:"app_name"`
	EnablePopup bool         `json:"enable_popup"`
	EnableGrowl bool         `json:"enable_growl"`
	GrowlHosts  []HostConfig `json:"growl_hosts"`
	IconPath    string       `json:"icon_path,omitempty"`

	// ConnectionTimeout bounds each host's liveness probe at startup.
	ConnectionTimeout string `json:"connection_timeout"`
	// SendTimeout bounds one register/notify session.
	SendTimeout string `json:"send_timeout"`

	// Priorities and Sticky are keyed by notification title.
	Priorities    map[string]int  `json:"priorities"`
	Sticky        map[string]bool `json:"sticky"`
	DefaultSticky bool            `json:"default_sticky"`

	Workers   int `json:"workers"`
	QueueSize int `json:"queue_size"`
}

// HostConfig is one GNTP endpoint.
type HostConfig struct {
	Host    string `json:"host"`
	Port    int    `json:"port"`
	Enabled bool   `json:"enabled"`
	Name    string `json:"name,omitempty"`
}

// MonitorConfig controls polling cadence and the signal thresholds.
type MonitorConfig struct {
	Interval            string `json:"interval"`
	ScanEvery           int    `json:"scan_every"`
	TrendThreshold      int    `json:"trend_threshold"`
	NotifyThreshold     int    `json:"notify_threshold"`
	BackgroundThreshold int    `json:"background_threshold"`
}

// AdapterConfig selects the platform binding.
type AdapterConfig struct {
	Driver    string `json:"driver"` // "nmcli"
	Interface string `json:"interface,omitempty"`
	Rescan    bool   `json:"rescan"`
}

// TelegramConfig enables forwarding notifications to a Telegram chat.
// The token may come from WIFIMGR_TELEGRAM_TOKEN instead of the file.
type TelegramConfig struct {
	Enabled    bool   `json:"enabled"`
	Token      string `json:"token,omitempty"`
	ChatID     int64  `json:"chat_id"`
	ThreadID   int    `json:"thread_id,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
}

// NATSConfig enables publishing notifications as JSON to a NATS subject.
type NATSConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Subject string `json:"subject"`
}

// StorageConfig controls the event journal.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "~/.wifimgr/events.db" }
type StorageConfig struct {
	Driver      string `json:"driver"` // "file", "sqlite" or empty (disabled)
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:9310"
	Pprof   bool   `json:"pprof,omitempty"`
}

// ReportConfig schedules a periodic status summary notification.
type ReportConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"` // cron spec, e.g. "0 9 * * *" or "@every 1h"
}
