package servicemanager

import (
	"context"
	"fmt"

	"github.com/coreos/go-systemd/v22/dbus"
)

// systemdBus is the subset of the systemd D-Bus API used by the backend.
// *dbus.Conn satisfies it.
type systemdBus interface {
	ListUnitsContext(ctx context.Context) ([]dbus.UnitStatus, error)
	GetUnitPropertyContext(ctx context.Context, unit string, propertyName string) (*dbus.Property, error)
	GetUnitTypePropertiesContext(ctx context.Context, unit string, unitType string) (map[string]interface{}, error)
	Close()
}

type busDialer func(ctx context.Context) (systemdBus, error)

func dialUserBus(ctx context.Context) (systemdBus, error) {
	conn, err := dbus.NewUserConnectionContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to the systemd user bus; %w", err)
	}
	return conn, nil
}

// NeverUSec is the systemd sentinel for "no timestamp" (max uint64).
const NeverUSec = ^uint64(0)

func toUint64(v interface{}) uint64 {
	switch n := v.(type) {
	case uint64:
		return n
	case uint32:
		return uint64(n)
	case int64:
		return uint64(n)
	case int32:
		return uint64(n)
	case int:
		return uint64(n)
	default:
		return 0
	}
}

// timerCalendar extracts the first calendar spec from TimersCalendar, a(sst).
func timerCalendar(v interface{}) string {
	entries, ok := v.([][]interface{})
	if !ok || len(entries) == 0 || len(entries[0]) < 2 {
		return ""
	}
	s, _ := entries[0][1].(string)
	return s
}

// execStartArgv extracts the argv of the first ExecStart entry, a(sasbttttuii).
func execStartArgv(v interface{}) []string {
	entries, ok := v.([][]interface{})
	if !ok || len(entries) == 0 || len(entries[0]) < 2 {
		return nil
	}
	argv, _ := entries[0][1].([]string)
	return argv
}
