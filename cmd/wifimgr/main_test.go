package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wifimgr/internal/config"
	logx "wifimgr/pkg/logx"
)

func TestEnsureConfigFileKeepsEnvSecretsOffDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".wifimgr", "wifimgr.json")
	t.Setenv(config.EnvTelegramToken, "SECRET-TOKEN-123")
	CLI.Config = path
	t.Cleanup(func() { CLI.Config = "" })

	cfg, from := loadConfig(logx.Nop())
	require.Equal(t, path, from)
	require.NotNil(t, cfg.Telegram)
	assert.Equal(t, "SECRET-TOKEN-123", cfg.Telegram.Token)

	ensureConfigFile(from, logx.Nop())

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "SECRET-TOKEN-123")
}

func TestEnsureConfigFileLeavesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wifimgr.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	ensureConfigFile(path, logx.Nop())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "{}", string(b))
}
