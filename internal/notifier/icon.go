package notifier

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"wifimgr/internal/config"
	"wifimgr/internal/gntp"
	logx "wifimgr/pkg/logx"
)

var errIconTooLarge = errors.New("icon exceeds size limit")

// iconNames are tried in order under each search directory.
var iconNames = []string{
	"icon.png", "wifi.png", "wifimgr.png",
	"app.ico", "wifi.ico", "wifimgr.ico",
	filepath.Join("assets", "icon.png"), filepath.Join("assets", "wifi.png"), filepath.Join("assets", "wifimgr.png"),
	filepath.Join("resources", "icon.png"), filepath.Join("resources", "wifi.png"), filepath.Join("resources", "wifimgr.png"),
}

// Icon is loaded once per router initialization and shared read-only.
type Icon struct {
	Path      string
	MediaType string
	Data      []byte
}

// DataURI inlines the icon.
func (i *Icon) DataURI() string {
	if i == nil {
		return ""
	}
	return gntp.DataURI(i.MediaType, i.Data)
}

// URIFor picks a file:// reference for loopback hosts and a data URI otherwise.
func (i *Icon) URIFor(loopback bool) string {
	if i == nil {
		return ""
	}
	if loopback && i.Path != "" {
		return gntp.FileURI(i.Path)
	}
	return i.DataURI()
}

// DefaultIconDirs returns the directory of the running executable.
func DefaultIconDirs() []string {
	exe, err := os.Executable()
	if err != nil {
		return nil
	}
	return []string{filepath.Dir(exe)}
}

// ResolveIcon loads the explicit path if set, else the first conventional
// file found under dirs. Problems are logged and yield nil.
func ResolveIcon(explicit string, dirs []string, log logx.Logger) *Icon {
	var candidates []string
	if p := strings.TrimSpace(explicit); p != "" {
		candidates = append(candidates, p)
	}
	for _, d := range dirs {
		for _, n := range iconNames {
			candidates = append(candidates, filepath.Join(d, n))
		}
	}

	for _, p := range candidates {
		st, err := os.Stat(p)
		if err != nil || st.IsDir() {
			continue
		}
		icon, err := loadIcon(p)
		if err != nil {
			log.Warn("icon skipped", logx.String("path", p), logx.Err(err))
			return nil
		}
		log.Debug("icon loaded", logx.String("path", p), logx.Int("bytes", len(icon.Data)))
		return icon
	}
	if explicit != "" {
		log.Warn("icon not found", logx.String("path", explicit))
	}
	return nil
}

func loadIcon(path string) (*Icon, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	b, err := io.ReadAll(io.LimitReader(f, config.MaxIconBytes+1))
	if err != nil {
		return nil, err
	}
	if len(b) > config.MaxIconBytes {
		return nil, fmt.Errorf("%w (%d bytes)", errIconTooLarge, config.MaxIconBytes)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return &Icon{Path: path, MediaType: gntp.MediaType(path), Data: b}, nil
}
