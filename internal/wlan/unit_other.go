//go:build !linux

package wlan

import "context"

func QueryUnit(context.Context, string) (UnitStatus, error) {
	return UnitStatus{}, ErrUnitsUnsupported
}
