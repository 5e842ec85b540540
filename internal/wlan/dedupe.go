package wlan

import (
	"sort"

	"golang.org/x/text/cases"
)

var folder = cases.Fold()

// Key returns the case-insensitive identity of an SSID.
func Key(ssid string) string {
	return folder.String(ssid)
}

// SameSSID reports whether a and b name the same network.
func SameSSID(a, b string) bool {
	return Key(a) == Key(b)
}

// Dedupe drops networks whose SSID (case-insensitively) was already seen,
// keeping the first occurrence. Empty SSIDs (hidden networks) are dropped.
func Dedupe(in []Network) []Network {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(in))
	out := make([]Network, 0, len(in))
	for _, n := range in {
		if n.SSID == "" {
			continue
		}
		k := Key(n.SSID)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, n)
	}
	return out
}

// SortBySignal orders networks strongest first, then by SSID.
func SortBySignal(ns []Network) {
	sort.SliceStable(ns, func(i, j int) bool {
		if ns[i].Signal != ns[j].Signal {
			return ns[i].Signal > ns[j].Signal
		}
		return ns[i].SSID < ns[j].SSID
	})
}
