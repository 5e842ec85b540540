package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	EnvTelegramToken = "WIFIMGR_TELEGRAM_TOKEN"
	EnvNATSURL       = "WIFIMGR_NATS_URL"
)

// ErrNotFound is returned by Locate when no candidate file exists.
var ErrNotFound = errors.New("config file not found")

// Candidates lists the locations searched when no explicit path is given,
// in priority order.
func Candidates() []string {
	var out []string
	if home, err := os.UserHomeDir(); err == nil {
		out = append(out,
			filepath.Join(home, ".wifimgr", "wifimgr.json"),
			filepath.Join(home, ".wifimgr", "config.json"),
			filepath.Join(home, ".wifimgr", "wifimgr.yaml"),
		)
	}
	if cfgDir, err := os.UserConfigDir(); err == nil {
		out = append(out,
			filepath.Join(cfgDir, ".wifimgr", "wifimgr.json"),
			filepath.Join(cfgDir, ".wifimgr", "config.json"),
		)
	}
	if exe, err := os.Executable(); err == nil {
		dir := filepath.Dir(exe)
		out = append(out,
			filepath.Join(dir, "wifimgr.json"),
			filepath.Join(dir, "config.json"),
			filepath.Join(dir, ".wifimgr", "wifimgr.json"),
			filepath.Join(dir, ".wifimgr", "config.json"),
			filepath.Join(dir, "config", "wifimgr.json"),
			filepath.Join(dir, "config", "config.json"),
		)
	}
	return out
}

// DefaultPath is where Save writes when nothing was loaded.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "wifimgr.json"
	}
	return filepath.Join(home, ".wifimgr", "wifimgr.json")
}

// Locate returns the first existing file among candidates.
func Locate(candidates []string) (string, error) {
	for _, p := range candidates {
		if st, err := os.Stat(p); err == nil && !st.IsDir() {
			return p, nil
		}
	}
	return "", ErrNotFound
}

// Parse reads one file strictly (unknown fields are rejected) on top of Defaults().
func Parse(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(path, b)
}

// Decode parses config bytes; path only selects JSON vs YAML by extension.
func Decode(path string, b []byte) (*Config, error) {
	jb, err := normalizeDocument(path, b)
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load resolves path (or searches Candidates when empty) and parses it.
// A missing file yields Defaults() and DefaultPath(). A broken file yields
// Defaults() together with the parse error so callers can warn and go on.
func Load(path string) (cfg *Config, loadedFrom string, err error) {
	if strings.TrimSpace(path) == "" {
		found, lerr := Locate(Candidates())
		if lerr != nil {
			cfg = Defaults()
			cfg.Normalize()
			return cfg, DefaultPath(), nil
		}
		path = found
	}

	cfg, err = Parse(path)
	if err != nil {
		def := Defaults()
		def.Normalize()
		return def, path, fmt.Errorf("load %s: %w", path, err)
	}
	return cfg, path, nil
}

// Save writes cfg as indented JSON, creating the directory if needed. The
// file is private to the owner since it may hold tokens.
func Save(cfg *Config, path string) error {
	if strings.TrimSpace(path) == "" {
		path = DefaultPath()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	b, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(b, '\n'), 0o600); err != nil {
		return err
	}
	return os.Chmod(path, 0o600)
}

// ApplyEnv overlays secrets from the environment.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	if getenv == nil {
		getenv = os.Getenv
	}
	if tok := strings.TrimSpace(getenv(EnvTelegramToken)); tok != "" {
		if cfg.Telegram == nil {
			cfg.Telegram = &TelegramConfig{}
		}
		cfg.Telegram.Token = tok
	}
	if url := strings.TrimSpace(getenv(EnvNATSURL)); url != "" {
		if cfg.NATS == nil {
			cfg.NATS = &NATSConfig{}
		}
		cfg.NATS.URL = url
	}
}
