package servicemanager

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"

	"github.com/coreos/go-systemd/v22/dbus"
	godbus "github.com/godbus/dbus/v5"
)

type execCall struct {
	name string
	args []string
}

func (c execCall) String() string {
	return strings.TrimSpace(c.name + " " + strings.Join(c.args, " "))
}

// mockExecutor records commands. Outputs and errors are looked up by the full
// command line first, then by the command name alone.
type mockExecutor struct {
	mu       sync.Mutex
	commands []execCall
	outputs  map[string]string
	errors   map[string]error
}

func newMockExecutor() *mockExecutor {
	return &mockExecutor{
		outputs: make(map[string]string),
		errors:  make(map[string]error),
	}
}

func (m *mockExecutor) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	call := execCall{name: name, args: append([]string(nil), args...)}
	m.commands = append(m.commands, call)

	key := call.String()
	out, ok := m.outputs[key]
	if !ok {
		out = m.outputs[name]
	}
	err, ok := m.errors[key]
	if !ok {
		err = m.errors[name]
	}
	return []byte(out), err
}

func (m *mockExecutor) lines() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]string, 0, len(m.commands))
	for _, c := range m.commands {
		out = append(out, c.String())
	}
	return out
}

// fakeBus is an in-memory systemd bus.
type fakeBus struct {
	units     []dbus.UnitStatus
	fragments map[string]string
	props     map[string]map[string]interface{}
	listErr   error
	closed    bool
}

func (f *fakeBus) ListUnitsContext(context.Context) ([]dbus.UnitStatus, error) {
	return f.units, f.listErr
}

func (f *fakeBus) GetUnitPropertyContext(_ context.Context, unit string, name string) (*dbus.Property, error) {
	return &dbus.Property{Name: name, Value: godbus.MakeVariant(f.fragments[unit])}, nil
}

func (f *fakeBus) GetUnitTypePropertiesContext(_ context.Context, unit string, _ string) (map[string]interface{}, error) {
	return f.props[unit], nil
}

func (f *fakeBus) Close() {
	f.closed = true
}

func (f *fakeBus) dialer() busDialer {
	return func(context.Context) (systemdBus, error) {
		return f, nil
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions(unitsDir string, exe CommandExecutor) Options {
	return Options{
		Marker:      ManagedMarker,
		Verify:      true,
		UnitsDir:    unitsDir,
		AgentsDir:   unitsDir + "-agents",
		WrapperPath: "/usr/local/bin/dron",
		Executor:    exe,
		Logger:      testLogger(),
	}
}
