package wlan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDedupeIsCaseInsensitive(t *testing.T) {
	got := Dedupe([]Network{
		{SSID: "Home", Signal: 70},
		{SSID: "HOME", Signal: 40},
		{SSID: "", Signal: 90},
		{SSID: "Office", Signal: 50},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "Home", got[0].SSID)
	assert.Equal(t, 70, got[0].Signal)
	assert.Equal(t, "Office", got[1].SSID)
	assert.True(t, SameSSID("Café", "CAFÉ"))
}

func TestSortBySignal(t *testing.T) {
	ns := []Network{{SSID: "b", Signal: 10}, {SSID: "a", Signal: 80}, {SSID: "c", Signal: 80}}
	SortBySignal(ns)
	assert.Equal(t, []string{"a", "c", "b"}, []string{ns[0].SSID, ns[1].SSID, ns[2].SSID})
}

func TestSplitTerseUnescapes(t *testing.T) {
	assert.Equal(t, []string{"*", "my:net", "55", "WPA2"}, splitTerse(`*:my\:net:55:WPA2`))
	assert.Equal(t, []string{"", `back\slash`, "1", ""}, splitTerse(`:back\\slash:1:`))
}

func TestNMCLIParsesStatusAndScan(t *testing.T) {
	out := []byte("*:CafeWifi:80:WPA2\n:Open:30:--\n:cafewifi:20:WPA2\n:bad:x:--\n")
	a := &NMCLI{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		assert.Equal(t, "nmcli", name)
		return out, nil
	}}

	st, err := a.Current(context.Background())
	require.NoError(t, err)
	require.NotNil(t, st)
	assert.Equal(t, ConnectionStatus{SSID: "CafeWifi", Signal: 80, Secure: true}, *st)

	ns, err := a.Scan(context.Background())
	require.NoError(t, err)
	require.Len(t, ns, 2)
	assert.False(t, ns[1].Secure)
}

func TestNMCLINotConnected(t *testing.T) {
	a := &NMCLI{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(":Open:30:--\n"), nil
	}}
	st, err := a.Current(context.Background())
	require.NoError(t, err)
	assert.Nil(t, st)
}

func TestNMCLIErrorIsWrapped(t *testing.T) {
	boom := errors.New("exit status 8")
	a := &NMCLI{run: func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, boom
	}}
	_, err := a.Scan(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestUnitStatusFromProperties(t *testing.T) {
	u := unitStatusFrom(BackendUnit, map[string]any{
		"LoadState":   "loaded",
		"ActiveState": "active",
		"SubState":    "running",
		"MainPID":     uint32(42),
	})
	assert.Equal(t, UnitStatus{Name: BackendUnit, Load: "loaded", Active: "active", Sub: "running"}, u)
	assert.Equal(t, "NetworkManager.service: active (running)", u.String())

	missing := unitStatusFrom("iwd.service", map[string]any{"LoadState": "not-found", "ActiveState": "inactive"})
	assert.Equal(t, "iwd.service: not installed", missing.String())
}
