package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	logx "wifimgr/pkg/logx"
)

const (
	DefaultAppName   = "WiFiManager"
	DefaultGrowlPort = 23053
	MaxIconBytes     = 500 * 1024

	// Notification titles. They double as GNTP notification names.
	TitleConnected     = "WiFi Connected"
	TitleDisconnected  = "WiFi Disconnected"
	TitleChanged       = "WiFi Changed"
	TitleNewNetwork    = "New WiFi Network"
	TitleSignalChanged = "Signal Changed"
	TitleStatus        = "WiFi Status"
	TitleTest          = "WiFi Manager Test"
)

// Defaults returns the configuration used when no file is found.
func Defaults() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info", Console: true},
		Notifications: NotificationsConfig{
			AppName:     DefaultAppName,
			EnablePopup: true,
			EnableGrowl: true,
			GrowlHosts: []HostConfig{
				{Host: "127.0.0.1", Port: DefaultGrowlPort, Enabled: true},
			},
			ConnectionTimeout: "1000ms",
			SendTimeout:       "5s",
			Priorities: map[string]int{
				TitleConnected:     0,
				TitleDisconnected:  2,
				TitleChanged:       0,
				TitleNewNetwork:    0,
				TitleSignalChanged: -1,
			},
			Sticky: map[string]bool{
				TitleConnected:     false,
				TitleDisconnected:  true,
				TitleChanged:       false,
				TitleNewNetwork:    false,
				TitleSignalChanged: false,
			},
			Workers:   2,
			QueueSize: 256,
		},
		Monitor: MonitorConfig{
			Interval:            "5s",
			ScanEvery:           3,
			TrendThreshold:      5,
			NotifyThreshold:     10,
			BackgroundThreshold: 15,
		},
		Adapter: AdapterConfig{Driver: "nmcli"},
	}
}

// Normalize fills zero values that would otherwise break the runtime.
func (c *Config) Normalize() {
	d := Defaults()
	n := &c.Notifications
	if strings.TrimSpace(n.AppName) == "" {
		n.AppName = d.Notifications.AppName
	}
	for i := range n.GrowlHosts {
		if n.GrowlHosts[i].Port == 0 {
			n.GrowlHosts[i].Port = DefaultGrowlPort
		}
		n.GrowlHosts[i].Host = strings.TrimSpace(n.GrowlHosts[i].Host)
	}
	if n.Priorities == nil {
		n.Priorities = map[string]int{}
	}
	if n.Sticky == nil {
		n.Sticky = map[string]bool{}
	}
	if n.Workers <= 0 {
		n.Workers = d.Notifications.Workers
	}
	if n.QueueSize <= 0 {
		n.QueueSize = d.Notifications.QueueSize
	}

	m := &c.Monitor
	if m.ScanEvery <= 0 {
		m.ScanEvery = d.Monitor.ScanEvery
	}
	if m.TrendThreshold <= 0 {
		m.TrendThreshold = d.Monitor.TrendThreshold
	}
	if m.NotifyThreshold <= 0 {
		m.NotifyThreshold = d.Monitor.NotifyThreshold
	}
	if m.BackgroundThreshold <= 0 {
		m.BackgroundThreshold = d.Monitor.BackgroundThreshold
	}
	if strings.TrimSpace(c.Adapter.Driver) == "" {
		c.Adapter.Driver = d.Adapter.Driver
	}
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if _, err := logx.ParseLevel(c.Logging.Level); err != nil {
		errs = append(errs, fmt.Errorf("logging.level: %w", err))
	}
	for i, h := range c.Notifications.GrowlHosts {
		if h.Host == "" {
			errs = append(errs, fmt.Errorf("notifications.growl_hosts[%d].host is empty", i))
		}
		if h.Port < 0 || h.Port > 65535 {
			errs = append(errs, fmt.Errorf("notifications.growl_hosts[%d].port %d out of range", i, h.Port))
		}
	}
	if _, err := ParseDurationField("notifications.connection_timeout", c.Notifications.ConnectionTimeout); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseDurationField("notifications.send_timeout", c.Notifications.SendTimeout); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseDurationField("monitor.interval", c.Monitor.Interval); err != nil {
		errs = append(errs, err)
	}
	if c.Storage != nil {
		if _, err := ParseDurationField("storage.busy_timeout", c.Storage.BusyTimeout); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Report != nil && c.Report.Enabled && strings.TrimSpace(c.Report.Schedule) == "" {
		errs = append(errs, errors.New("report.schedule is required when report is enabled"))
	}
	if c.Telegram != nil && c.Telegram.Enabled && c.Telegram.ChatID == 0 {
		errs = append(errs, errors.New("telegram.chat_id is required when telegram is enabled"))
	}
	if c.NATS != nil && c.NATS.Enabled && strings.TrimSpace(c.NATS.URL) == "" {
		errs = append(errs, errors.New("nats.url is required when nats is enabled"))
	}
	return errors.Join(errs...)
}

// ConnectionTimeout is the per-host probe timeout.
func (c *Config) ConnectionTimeout() time.Duration {
	d, _ := ParseDurationOrDefault("", c.Notifications.ConnectionTimeout, time.Second)
	return d
}

// SendTimeout bounds one GNTP session.
func (c *Config) SendTimeout() time.Duration {
	d, _ := ParseDurationOrDefault("", c.Notifications.SendTimeout, 5*time.Second)
	return d
}

// PollInterval is the monitor tick interval.
func (c *Config) PollInterval() time.Duration {
	d, _ := ParseDurationOrDefault("", c.Monitor.Interval, 5*time.Second)
	return d
}
