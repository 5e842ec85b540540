package wlan

import (
	"context"
	"errors"
)

// BackendUnit is the systemd unit behind the nmcli binding.
const BackendUnit = "NetworkManager.service"

var ErrUnitsUnsupported = errors.New("systemd units are not available on this platform")

// UnitStatus is the systemd view of a backend service.
type UnitStatus struct {
	Name   string `json:"name"`
	Load   string `json:"load"`   // loaded, not-found, ...
	Active string `json:"active"` // active, inactive, failed, ...
	Sub    string `json:"sub"`    // running, dead, ...
}

// UnitFunc reports the state of one unit.
type UnitFunc func(ctx context.Context, name string) (UnitStatus, error)

func (u UnitStatus) String() string {
	if u.Load == "not-found" {
		return u.Name + ": not installed"
	}
	if u.Sub == "" {
		return u.Name + ": " + u.Active
	}
	return u.Name + ": " + u.Active + " (" + u.Sub + ")"
}

func unitStatusFrom(name string, props map[string]any) UnitStatus {
	str := func(key string) string {
		v, _ := props[key].(string)
		return v
	}
	return UnitStatus{Name: name, Load: str("LoadState"), Active: str("ActiveState"), Sub: str("SubState")}
}
