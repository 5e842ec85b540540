package wlan

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// NMCLI reads adapter state through NetworkManager's command line client.
type NMCLI struct {
	// Bin defaults to "nmcli".
	Bin string
	// Iface restricts queries to one device (empty = all wifi devices).
	Iface string
	// Rescan asks NetworkManager for a fresh scan instead of its cache.
	Rescan bool

	run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

func NewNMCLI(iface string, rescan bool) *NMCLI {
	return &NMCLI{Bin: "nmcli", Iface: iface, Rescan: rescan}
}

func (a *NMCLI) Current(ctx context.Context) (*ConnectionStatus, error) {
	ns, err := a.list(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, n := range ns {
		if n.Connected {
			return &ConnectionStatus{SSID: n.SSID, Signal: n.Signal, Secure: n.Secure}, nil
		}
	}
	return nil, nil
}

func (a *NMCLI) Scan(ctx context.Context) ([]Network, error) {
	ns, err := a.list(ctx, a.Rescan)
	if err != nil {
		return nil, err
	}
	return Dedupe(ns), nil
}

func (a *NMCLI) list(ctx context.Context, rescan bool) ([]Network, error) {
	args := []string{"-t", "-f", "IN-USE,SSID,SIGNAL,SECURITY", "device", "wifi", "list"}
	if a.Iface != "" {
		args = append(args, "ifname", a.Iface)
	}
	if rescan {
		args = append(args, "--rescan", "yes")
	} else {
		args = append(args, "--rescan", "no")
	}

	run := a.run
	if run == nil {
		run = execOutput
	}
	bin := a.Bin
	if bin == "" {
		bin = "nmcli"
	}
	out, err := run(ctx, bin, args...)
	if err != nil {
		return nil, fmt.Errorf("nmcli wifi list: %w", err)
	}
	return parseNMCLI(out), nil
}

func execOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Env = append(cmd.Environ(), "LC_ALL=C")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// parseNMCLI parses terse output (IN-USE:SSID:SIGNAL:SECURITY per line).
func parseNMCLI(out []byte) []Network {
	var ns []Network
	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		f := splitTerse(sc.Text())
		if len(f) < 4 {
			continue
		}
		ssid := f[1]
		if ssid == "" || len(ssid) > MaxSSIDLen {
			continue
		}
		sig, err := strconv.Atoi(strings.TrimSpace(f[2]))
		if err != nil {
			continue
		}
		sec := strings.TrimSpace(f[3])
		ns = append(ns, Network{
			SSID:      ssid,
			Signal:    ClampSignal(sig),
			Secure:    sec != "" && sec != "--",
			Connected: strings.TrimSpace(f[0]) == "*",
		})
	}
	return ns
}

// splitTerse splits an nmcli terse line on unescaped ':' and unescapes "\:" and "\\".
func splitTerse(line string) []string {
	var (
		fields []string
		cur    strings.Builder
		esc    bool
	)
	for _, r := range line {
		switch {
		case esc:
			cur.WriteRune(r)
			esc = false
		case r == '\\':
			esc = true
		case r == ':':
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteRune(r)
		}
	}
	return append(fields, cur.String())
}
