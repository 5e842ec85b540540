package logx

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterLoggerAppliesFixedAndCallFields(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "debug").With(String("comp", "monitor"))

	log.Info("signal changed", String("ssid", "CafeWifi"), Int("to", 65), Err(errors.New("boom")))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "monitor", line["comp"])
	assert.Equal(t, "CafeWifi", line["ssid"])
	assert.EqualValues(t, 65, line["to"])
	assert.Equal(t, "boom", line["err"])
	assert.Equal(t, "signal changed", line["message"])
	assert.Contains(t, line["caller"], "logging_test.go")
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := NewWriter(&buf, "warn")

	log.Info("hidden")
	assert.Zero(t, buf.Len())
	assert.False(t, log.Enabled(LevelInfo))

	log.Warn("shown")
	assert.Contains(t, buf.String(), "shown")
}

func TestZeroLoggerIsSafe(t *testing.T) {
	var log Logger
	assert.True(t, log.IsZero())
	log.Error("nothing happens")
	assert.False(t, Nop().IsZero())
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]Level{"": LevelInfo, "DEBUG": LevelDebug, " warning ": LevelWarn, "error": LevelError, "trace": LevelTrace} {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseLevel("loud")
	assert.Error(t, err)
}

func TestServiceFollowsApply(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a", "wifimgr.log")
	second := filepath.Join(dir, "b.log")

	svc, log := New(Config{Level: "info", File: FileConfig{Enabled: true, Path: first}})
	t.Cleanup(func() { _ = svc.Close() })
	child := log.With(String("comp", "monitor"))

	child.Info("one")
	child.Debug("hidden")

	svc.Apply(Config{Level: "debug", File: FileConfig{Enabled: true, Path: second}})
	child.Debug("two")
	require.NoError(t, svc.Close())

	a, err := os.ReadFile(first)
	require.NoError(t, err)
	assert.Contains(t, string(a), `"message":"one"`)
	assert.NotContains(t, string(a), "hidden")
	assert.NotContains(t, string(a), "two")

	b, err := os.ReadFile(second)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"comp":"monitor"`)
	assert.Contains(t, string(b), `"message":"two"`)
	assert.Equal(t, "debug", svc.Config().Level)
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	assert.Equal(t, "/home/tester/.wifimgr/wifimgr.log", expandHome(DefaultFile))
	assert.Equal(t, "rel.log", expandHome("rel.log"))
}
