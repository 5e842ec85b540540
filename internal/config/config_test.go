package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	cfg.Normalize()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, time.Second, cfg.ConnectionTimeout())
	assert.Equal(t, 5*time.Second, cfg.PollInterval())
	assert.Equal(t, 2, cfg.Notifications.Priorities[TitleDisconnected])
	assert.Equal(t, -1, cfg.Notifications.Priorities[TitleSignalChanged])
	assert.True(t, cfg.Notifications.Sticky[TitleDisconnected])
	require.Len(t, cfg.Notifications.GrowlHosts, 1)
	assert.Equal(t, HostConfig{Host: "127.0.0.1", Port: 23053, Enabled: true}, cfg.Notifications.GrowlHosts[0])
}

func TestDecodeMergesOverDefaults(t *testing.T) {
	cfg, err := Decode("c.json", []byte(`{
		"notifications": {
			"enable_popup": false,
			"growl_hosts": [{"host": "10.0.0.5", "enabled": true, "name": "desk"}],
			"priorities": {"WiFi Connected": 1}
		},
		"monitor": {"interval": "2s"}
	}`))
	require.NoError(t, err)

	n := cfg.Notifications
	assert.False(t, n.EnablePopup)
	assert.True(t, n.EnableGrowl)
	assert.Equal(t, 1, n.Priorities[TitleConnected])
	assert.Equal(t, 2, n.Priorities[TitleDisconnected])
	require.Len(t, n.GrowlHosts, 1)
	assert.Equal(t, DefaultGrowlPort, n.GrowlHosts[0].Port)
	assert.Equal(t, 2*time.Second, cfg.PollInterval())
	assert.Equal(t, 10, cfg.Monitor.NotifyThreshold)
}

func TestDecodeYAML(t *testing.T) {
	cfg, err := Decode("c.yaml", []byte("notifications:\n  default_sticky: true\n  sticky:\n    Signal Changed: true\nmonitor:\n  scan_every: 4\n"))
	require.NoError(t, err)
	assert.True(t, cfg.Notifications.DefaultSticky)
	assert.True(t, cfg.Notifications.Sticky[TitleSignalChanged])
	assert.Equal(t, 4, cfg.Monitor.ScanEvery)
}

func TestDecodeNumericDurationsAreMilliseconds(t *testing.T) {
	cfg, err := Decode("c.json", []byte(`{"notifications": {"connection_timeout": 1500}, "telegram": {"chat_id": -1001234567890123}}`))
	require.NoError(t, err)
	assert.Equal(t, 1500*time.Millisecond, cfg.ConnectionTimeout())
	assert.Equal(t, int64(-1001234567890123), cfg.Telegram.ChatID)

	cfg, err = Decode("c.yml", []byte("monitor:\n  interval: 250\n"))
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.PollInterval())
}

func TestParseDurationField(t *testing.T) {
	cases := map[string]time.Duration{"": 0, "2s": 2 * time.Second, "750": 750 * time.Millisecond, " 10ms ": 10 * time.Millisecond}
	for raw, want := range cases {
		got, err := ParseDurationField("x", raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}
	for _, raw := range []string{"-5", "-1s", "fast"} {
		_, err := ParseDurationField("x", raw)
		assert.ErrorContains(t, err, "x:", raw)
	}

	d, err := ParseDurationOrDefault("x", "0", time.Second)
	require.NoError(t, err)
	assert.Equal(t, time.Second, d)
}

func TestDecodeRejectsUnknownAndInvalid(t *testing.T) {
	_, err := Decode("c.json", []byte(`{"nope": 1}`))
	require.Error(t, err)

	_, err = Decode("c.json", []byte(`{"monitor": {"interval": "soon"}}`))
	require.ErrorContains(t, err, "monitor.interval")

	_, err = Decode("c.json", []byte(`{"notifications": {"growl_hosts": [{"host": "", "port": 70000}]}}`))
	require.ErrorContains(t, err, "growl_hosts[0].host")
	require.ErrorContains(t, err, "out of range")

	_, err = Decode("c.json", []byte(`{} {}`))
	require.Error(t, err)
}

func TestLoadMissingAndBrokenFiles(t *testing.T) {
	dir := t.TempDir()

	_, _, err := Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)

	broken := filepath.Join(dir, "broken.json")
	require.NoError(t, os.WriteFile(broken, []byte("{"), 0o644))
	cfg, from, err := Load(broken)
	require.Error(t, err)
	assert.Equal(t, broken, from)
	require.NotNil(t, cfg)
	assert.True(t, cfg.Notifications.EnablePopup)
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "wifimgr.json")
	cfg := Defaults()
	cfg.Notifications.IconPath = "/tmp/icon.png"
	require.NoError(t, Save(cfg, path))

	got, err := Parse(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/icon.png", got.Notifications.IconPath)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestSaveTightensExistingMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifimgr.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	require.NoError(t, Save(Defaults(), path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestLocateFirstExisting(t *testing.T) {
	dir := t.TempDir()
	b := filepath.Join(dir, "b.json")
	require.NoError(t, os.WriteFile(b, []byte("{}"), 0o644))

	got, err := Locate([]string{filepath.Join(dir, "a.json"), b})
	require.NoError(t, err)
	assert.Equal(t, b, got)

	_, err = Locate([]string{filepath.Join(dir, "a.json")})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestApplyEnv(t *testing.T) {
	cfg := Defaults()
	env := map[string]string{EnvTelegramToken: "123:abc"}
	ApplyEnv(cfg, func(k string) string { return env[k] })
	require.NotNil(t, cfg.Telegram)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Nil(t, cfg.NATS)
}

func TestSummarizeChangeHidesToken(t *testing.T) {
	a := Defaults()
	b := Defaults()
	b.Notifications.EnableGrowl = false
	b.Telegram = &TelegramConfig{Token: "secret"}

	changed, attrs := SummarizeChange(a, b)
	assert.Equal(t, []string{"notifications", "telegram"}, changed)
	assert.NotEmpty(t, attrs)
}

func TestManagerWatchPublishesChanges(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifimgr.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))
	cfg, err := Parse(path)
	require.NoError(t, err)

	m := NewManager(path, cfg)
	m.debounce = 20 * time.Millisecond
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()

	// Give the watcher a moment to register the directory.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(`{"notifications": {"enable_growl": false}}`), 0o644))

	select {
	case got := <-ch:
		assert.False(t, got.Notifications.EnableGrowl)
		assert.Same(t, got, m.Get())
	case <-time.After(3 * time.Second):
		t.Fatal("config change was not published")
	}
}

func TestManagerReloadKeepsOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifimgr.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	m := NewManager(path, Defaults())
	m.SetOverlay(func(c *Config) { c.Logging.Level = "debug" })

	published, err := m.Reload()
	require.NoError(t, err)
	assert.True(t, published)
	assert.Equal(t, "debug", m.Get().Logging.Level)

	published, err = m.Reload()
	require.NoError(t, err)
	assert.False(t, published, "same file and overlay must not republish")

	require.NoError(t, os.WriteFile(path, []byte(`{"monitor": {"interval": "soon"}}`), 0o644))
	_, err = m.Reload()
	require.ErrorContains(t, err, "monitor.interval")
	assert.Equal(t, "debug", m.Get().Logging.Level)
}
