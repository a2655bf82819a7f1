// Package servicemanager generates, verifies, queries and controls scheduler units
// for the host's native service manager (systemd user units or launchd agents).
package servicemanager

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/leefowlercu/dron/internal/jobs"
)

// Platform represents an operating system platform.
type Platform string

const (
	// PlatformLinux represents Linux.
	PlatformLinux Platform = "linux"
	// PlatformMacOS represents macOS.
	PlatformMacOS Platform = "darwin"
	// PlatformWindows represents Windows.
	PlatformWindows Platform = "windows"
	// PlatformUnknown represents an unknown platform.
	PlatformUnknown Platform = "unknown"
)

// String returns the platform as a string.
func (p Platform) String() string {
	return string(p)
}

// DetectPlatform returns the current platform.
func DetectPlatform() Platform {
	switch runtime.GOOS {
	case "linux":
		return PlatformLinux
	case "darwin":
		return PlatformMacOS
	case "windows":
		return PlatformWindows
	default:
		return PlatformUnknown
	}
}

// IsPlatformSupported returns true if the platform is supported.
// Currently only Linux (systemd) and macOS (launchd) are supported.
func IsPlatformSupported(p Platform) bool {
	return p == PlatformLinux || p == PlatformMacOS
}

// UnitKind is the type of a generated unit.
type UnitKind string

const (
	KindService UnitKind = "service"
	KindTimer   UnitKind = "timer"
	KindPlist   UnitKind = "plist"
)

// KindOf derives the unit kind from a unit file name.
func KindOf(name string) UnitKind {
	return UnitKind(strings.TrimPrefix(filepath.Ext(name), "."))
}

// BaseName strips the kind suffix from a unit file name, so a service and its
// timer share the same base name.
func BaseName(name string) string {
	name = filepath.Base(name)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// UnitSpec is a generated unit, ready to be verified and written.
type UnitSpec struct {
	// Name is the unit file name, e.g. "backup.service".
	Name string

	// File is the absolute path the unit is written to.
	File string

	Kind UnitKind

	// Body is the backend-specific unit text.
	Body string

	// Job is the declaration the unit was generated from.
	Job jobs.Job
}

// UnitRecord is a managed unit as reported by the host scheduler.
type UnitRecord struct {
	// UnitFile is the resolved path of the unit file.
	UnitFile string

	// Body is the unit file text. Empty unless the state was queried with bodies.
	Body string

	// Cmdline is the program argv as the scheduler sees it (launchd only).
	Cmdline []string

	// LastExitCode is the raw last exit code (launchd only). Empty if the job never ran.
	LastExitCode string

	// PID is the raw pid of the running process (launchd only). Empty if not running.
	PID string

	// Schedule is the schedule reported by the host dump (launchd only).
	Schedule string
}

// Name returns the unit file name.
func (r UnitRecord) Name() string {
	return filepath.Base(r.UnitFile)
}

// RuntimeStatus holds the live status of a unit.
type RuntimeStatus struct {
	Unit string

	// Result is the systemd result ("success", "exit-code", ...) or, for launchd,
	// "success" / "exitcode N".
	Result string

	// ExitCode is the raw exit code (launchd only).
	ExitCode string

	// PID is the main process id; 0 when the unit is not running.
	PID int

	// LastTriggerUSec and NextElapseUSec are realtime epoch microseconds (timers only).
	// NextElapseUSec is NeverUSec when no future fire is scheduled.
	LastTriggerUSec uint64
	NextElapseUSec  uint64

	// Calendar is the raw schedule text.
	Calendar string

	// ExecStart is the command argv.
	ExecStart []string

	// Restart is the systemd restart policy; "always" marks a persistent service.
	Restart string
}

// RunEvent is a single historical run record.
type RunEvent struct {
	TimeUSec uint64
	Message  string
	Started  bool
	Failed   bool
}

// LifecycleAction is a host-native unit control operation.
type LifecycleAction string

const (
	// ActionEnable links the unit into the scheduler. Timers and always-running
	// services are activated immediately, manual services are not started.
	ActionEnable LifecycleAction = "enable"
	// ActionDisable unlinks the unit.
	ActionDisable LifecycleAction = "disable"
	// ActionStart triggers the unit now.
	ActionStart LifecycleAction = "start"
	// ActionStop stops a running unit.
	ActionStop LifecycleAction = "stop"
	// ActionReload makes the scheduler re-read unit files. Unit is ignored.
	ActionReload LifecycleAction = "reload"
	// ActionRestart restarts the unit so it picks up a changed body.
	ActionRestart LifecycleAction = "restart"
	// ActionUnload stops and disables the unit before its file is removed.
	ActionUnload LifecycleAction = "unload"
)

// UnitRef identifies the unit a lifecycle action applies to.
type UnitRef struct {
	// Name is the unit file name.
	Name string

	// File is the unit file path.
	File string

	// AlwaysRunning marks a persistent service that is started on enable.
	AlwaysRunning bool
}

// Backend is one host scheduler family.
type Backend interface {
	// Platform returns the platform the backend serves.
	Platform() Platform

	// Generate renders the units for a job. Output is byte-stable for identical input.
	Generate(job jobs.Job) ([]UnitSpec, error)

	// Verify checks a batch of units with the host's syntax checker in a single invocation.
	Verify(ctx context.Context, units []UnitSpec) error

	// QueryState lists the managed units. withBody=false never reads unit files.
	QueryState(ctx context.Context, withBody bool) ([]UnitRecord, error)

	// Lifecycle issues a control command for a unit.
	Lifecycle(ctx context.Context, action LifecycleAction, unit UnitRef) error

	// RuntimeStatus reads the live status of a unit.
	RuntimeStatus(ctx context.Context, unit string) (RuntimeStatus, error)

	// SuccessRate returns the fraction of runs that did not fail; 1.0 with no runs.
	SuccessRate(ctx context.Context, unit string) (float64, error)

	// History returns past run events for a unit.
	History(ctx context.Context, unit string) ([]RunEvent, error)
}

// Options configure a Backend.
type Options struct {
	// Marker is embedded in every generated body and identifies managed units.
	Marker string

	// Verify enables external verification of generated units.
	Verify bool

	// UnitsDir is where unit files are written.
	UnitsDir string

	// AgentsDir is the launchd LaunchAgents directory plists are linked into.
	AgentsDir string

	// WrapperPath is the binary whose launchd-wrapper subcommand wraps launchd jobs.
	WrapperPath string

	// Executor runs external commands. Defaults to os/exec.
	Executor CommandExecutor

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Marker == "" {
		o.Marker = ManagedMarker
	}
	if o.Executor == nil {
		o.Executor = NewCommandExecutor()
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.WrapperPath == "" {
		o.WrapperPath = GetBinaryPath()
	}
	if o.AgentsDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			o.AgentsDir = filepath.Join(home, "Library", "LaunchAgents")
		}
	}
	return o
}

// New returns the backend for the given platform.
func New(p Platform, opts Options) (Backend, error) {
	if opts.UnitsDir == "" {
		return nil, fmt.Errorf("units directory is required")
	}
	opts = opts.withDefaults()
	opts.UnitsDir = resolveDir(opts.UnitsDir)

	switch p {
	case PlatformLinux:
		return newSystemdBackend(opts, nil), nil
	case PlatformMacOS:
		return newLaunchdBackend(opts), nil
	default:
		return nil, fmt.Errorf("platform %s is not supported", p)
	}
}

// resolveDir resolves symlinks in dir so generated unit paths match the
// resolved paths the host scheduler reports. Components that do not exist yet
// are kept as written.
func resolveDir(dir string) string {
	dir = filepath.Clean(dir)
	var rest []string
	for cur := dir; ; cur = filepath.Dir(cur) {
		if resolved, err := filepath.EvalSymlinks(cur); err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...)
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return dir
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
	}
}

// GetBinaryPath returns the path to the dron binary.
// It checks in order:
// 1. The current executable path
// 2. ~/.local/bin/dron
// 3. PATH lookup
func GetBinaryPath() string {
	if exe, err := os.Executable(); err == nil {
		return exe
	}

	if home, err := os.UserHomeDir(); err == nil {
		localBin := filepath.Join(home, ".local", "bin", "dron")
		if _, err := os.Stat(localBin); err == nil {
			return localBin
		}
	}

	if path, err := exec.LookPath("dron"); err == nil {
		return path
	}

	return "dron"
}
