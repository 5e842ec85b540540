package app

import (
	"fmt"
	"strings"
	"time"

	"wifimgr/internal/config"
	"wifimgr/internal/metrics"
	"wifimgr/internal/storage"
	"wifimgr/internal/wlan"
	logx "wifimgr/pkg/logx"
)

func mapLogConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorageConfig(cfg *config.Config) (storage.Config, bool, error) {
	if cfg == nil || cfg.Storage == nil {
		return storage.Config{}, false, nil
	}
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	if driver == "" || driver == "none" {
		return storage.Config{}, false, nil
	}
	path := expandHome(strings.TrimSpace(sc.Path))
	if path == "" {
		return storage.Config{}, false, fmt.Errorf("storage.path is required when storage.driver=%s", driver)
	}

	switch driver {
	case "file":
		return storage.Config{Driver: "file", Path: path}, true, nil
	case "sqlite", "sqlite3":
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, false, err
		}
		return storage.Config{Driver: driver, Path: path, BusyTimeout: busy}, true, nil
	default:
		return storage.Config{}, false, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapMetricsConfig(cfg *config.Config) metrics.Config {
	if cfg == nil || cfg.Metrics == nil {
		return metrics.Config{}
	}
	return metrics.Config{Enabled: cfg.Metrics.Enabled, Addr: cfg.Metrics.Addr, Pprof: cfg.Metrics.Pprof}
}

// NewAdapter builds the platform binding named by cfg.Driver.
func NewAdapter(cfg config.AdapterConfig) (wlan.Adapter, error) {
	switch {
	case isNMCLI(cfg):
		return wlan.NewNMCLI(cfg.Interface, cfg.Rescan), nil
	default:
		return nil, fmt.Errorf("unknown adapter.driver: %s", cfg.Driver)
	}
}

func isNMCLI(cfg config.AdapterConfig) bool {
	d := strings.ToLower(strings.TrimSpace(cfg.Driver))
	return d == "" || d == "nmcli"
}

// UnitsFor returns the backend unit probe for cfg's driver, or nil.
func UnitsFor(cfg config.AdapterConfig) wlan.UnitFunc {
	if isNMCLI(cfg) {
		return wlan.QueryUnit
	}
	return nil
}

// OpenJournal opens the configured journal, or returns nil when storage is
// disabled.
func OpenJournal(cfg *config.Config, log logx.Logger) (storage.Journal, error) {
	sc, enabled, err := mapStorageConfig(cfg)
	if err != nil || !enabled {
		return nil, err
	}
	j, err := storage.Open(sc, log)
	if err != nil {
		return nil, err
	}
	log.Info("storage enabled", logx.String("driver", sc.Driver), logx.String("path", sc.Path))
	return j, nil
}
