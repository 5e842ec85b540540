//go:build linux

package wlan

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
)

// QueryUnit asks systemd for one unit's state over the system bus.
func QueryUnit(ctx context.Context, name string) (UnitStatus, error) {
	conn, err := dbus.NewSystemConnectionContext(ctx)
	if err != nil {
		return UnitStatus{}, fmt.Errorf("failed to connect to systemd: %w", err)
	}
	defer conn.Close()

	props, err := conn.GetUnitPropertiesContext(ctx, name)
	if err != nil {
		return UnitStatus{}, fmt.Errorf("unit %s: %w", name, err)
	}
	return unitStatusFrom(name, props), nil
}
