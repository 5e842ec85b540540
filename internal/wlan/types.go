// Package wlan describes what the monitor can observe about a wireless
// adapter: the current association and the set of visible networks.
//
// Platform bindings live behind Adapter; the rest of wifimgr never touches
// native handles.
package wlan

import (
	"context"
)

// MaxSSIDLen is the maximum raw length of an 802.11 SSID.
const MaxSSIDLen = 32

// ConnectionStatus is the currently associated network.
// A nil *ConnectionStatus means "not connected".
type ConnectionStatus struct {
	SSID   string `json:"ssid"`
	Signal int    `json:"signal"`
	Secure bool   `json:"secure"`
}

// Network is one visible network from a scan.
type Network struct {
	SSID      string `json:"ssid"`
	Signal    int    `json:"signal"`
	Secure    bool   `json:"secure"`
	Connected bool   `json:"connected"`
}

// Adapter is the platform binding consumed by the monitor.
//
// Scan results are unique by case-insensitive SSID (see Dedupe).
type Adapter interface {
	Current(ctx context.Context) (*ConnectionStatus, error)
	Scan(ctx context.Context) ([]Network, error)
}

// ClampSignal bounds a raw quality value to 0..100.
func ClampSignal(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// SignalBar renders a short glyph for a signal quality.
func SignalBar(q int) string {
	switch {
	case q >= 75:
		return "▂▄▆█"
	case q >= 50:
		return "▂▄▆_"
	case q >= 25:
		return "▂▄__"
	default:
		return "▂___"
	}
}
