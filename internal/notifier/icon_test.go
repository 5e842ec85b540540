package notifier

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wifimgr/internal/config"
	logx "wifimgr/pkg/logx"
)

func TestResolveIconExplicitWins(t *testing.T) {
	dir := t.TempDir()
	explicit := filepath.Join(dir, "mine.ico")
	require.NoError(t, os.WriteFile(explicit, []byte{1, 2, 3}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "icon.png"), []byte{4}, 0o644))

	icon := ResolveIcon(explicit, []string{dir}, logx.Nop())
	require.NotNil(t, icon)
	assert.Equal(t, explicit, icon.Path)
	assert.Equal(t, "image/x-icon", icon.MediaType)
	assert.Equal(t, "data:image/x-icon;base64,AQID", icon.DataURI())
}

func TestResolveIconConventionalOrder(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "icon.png"), []byte{1}, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "wifimgr.ico"), []byte{2}, 0o644))

	icon := ResolveIcon("", []string{dir}, logx.Nop())
	require.NotNil(t, icon)
	assert.Equal(t, filepath.Join(dir, "wifimgr.ico"), icon.Path)

	// A missing explicit path falls through to the conventional names.
	icon = ResolveIcon(filepath.Join(dir, "nope.png"), []string{dir}, logx.Nop())
	require.NotNil(t, icon)
	assert.Equal(t, filepath.Join(dir, "wifimgr.ico"), icon.Path)
}

func TestResolveIconTooLarge(t *testing.T) {
	dir := t.TempDir()
	big := filepath.Join(dir, "icon.png")
	require.NoError(t, os.WriteFile(big, make([]byte, config.MaxIconBytes+1), 0o644))
	assert.Nil(t, ResolveIcon("", []string{dir}, logx.Nop()))

	require.NoError(t, os.WriteFile(big, make([]byte, config.MaxIconBytes), 0o644))
	assert.NotNil(t, ResolveIcon("", []string{dir}, logx.Nop()))
}

func TestResolveIconNone(t *testing.T) {
	assert.Nil(t, ResolveIcon("", []string{t.TempDir()}, logx.Nop()))
}

func TestIconURIFor(t *testing.T) {
	var none *Icon
	assert.Empty(t, none.URIFor(true))

	icon := &Icon{Path: "/opt/wifimgr/icon.png", MediaType: "image/png", Data: []byte("x")}
	assert.Equal(t, "file:///opt/wifimgr/icon.png", icon.URIFor(true))
	assert.True(t, strings.HasPrefix(icon.URIFor(false), "data:image/png;base64,"))

	noPath := &Icon{MediaType: "image/png", Data: []byte("x")}
	assert.True(t, strings.HasPrefix(noPath.URIFor(true), "data:"))
}

func TestKindTitles(t *testing.T) {
	assert.Equal(t, "WiFi Connected", Connected.Title())
	assert.Equal(t, "Signal Changed", SignalChanged.Title())
	assert.Equal(t, "new_network", NewNetwork.String())
	assert.Equal(t, "unknown", Kind(99).String())
	assert.Equal(t, Event{Kind: Changed, Title: "WiFi Changed", Body: "Switched to B"}, NewEvent(Changed, "Switched to B"))
}
