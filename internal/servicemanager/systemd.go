package servicemanager

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/coreos/go-systemd/v22/unit"

	"github.com/leefowlercu/dron/internal/jobs"
)

// sectionKey splits "[Section]Key" property names.
var sectionKey = regexp.MustCompile(`^\[(\w+)\](.+)$`)

// systemdBackend implements Backend using systemd user units.
type systemdBackend struct {
	opts Options
	dial busDialer
}

// newSystemdBackend creates a systemd backend. A nil dialer connects to the user bus.
func newSystemdBackend(opts Options, dial busDialer) *systemdBackend {
	if dial == nil {
		dial = dialUserBus
	}
	return &systemdBackend{
		opts: opts,
		dial: dial,
	}
}

func (b *systemdBackend) Platform() Platform {
	return PlatformLinux
}

func (b *systemdBackend) managedHeader() string {
	return fmt.Sprintf("# %s\n# If you do any manual changes, they will be overridden on the next dron run\n\n", b.opts.Marker)
}

func (b *systemdBackend) render(opts []*unit.UnitOption) (string, error) {
	body, err := io.ReadAll(unit.Serialize(opts))
	if err != nil {
		return "", fmt.Errorf("failed to serialize unit; %w", err)
	}
	return b.managedHeader() + string(body), nil
}

// Generate renders a service unit and, for scheduled jobs, its companion timer.
func (b *systemdBackend) Generate(j jobs.Job) ([]UnitSpec, error) {
	service, err := b.serviceBody(j)
	if err != nil {
		return nil, err
	}

	specs := []UnitSpec{b.spec(j, KindService, service)}
	if !j.HasTimer() {
		return specs, nil
	}

	timer, err := b.timerBody(j)
	if err != nil {
		return nil, err
	}
	return append(specs, b.spec(j, KindTimer, timer)), nil
}

func (b *systemdBackend) spec(j jobs.Job, kind UnitKind, body string) UnitSpec {
	name := j.Name + "." + string(kind)
	return UnitSpec{
		Name: name,
		File: filepath.Join(b.opts.UnitsDir, name),
		Kind: kind,
		Body: body,
		Job:  j,
	}
}

func (b *systemdBackend) serviceBody(j jobs.Job) (string, error) {
	opts := []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", fmt.Sprintf("Service for %s %s", j.Name, b.opts.Marker)),
		unit.NewUnitOption("Service", "ExecStart", j.Command.Escaped()),
	}

	// ExecStopPost takes arguments, unlike OnFailure, and sees the exit status.
	for _, action := range j.OnFailure {
		opts = append(opts, unit.NewUnitOption("Service", "ExecStopPost",
			fmt.Sprintf("/bin/sh -c 'if [ $$EXIT_STATUS != 0 ]; then %s; fi'", action)))
	}

	if j.IsAlways() {
		opts = append(opts,
			unit.NewUnitOption("Service", "Restart", "always"),
			unit.NewUnitOption("Service", "RestartSec", "10"))
	}

	for _, p := range j.Properties {
		section, key := "Service", p.Key
		if m := sectionKey.FindStringSubmatch(p.Key); m != nil {
			section, key = m[1], m[2]
		}
		opts = append(opts, unit.NewUnitOption(section, key, p.Value))
	}

	return b.render(opts)
}

func (b *systemdBackend) timerBody(j jobs.Job) (string, error) {
	opts := []*unit.UnitOption{
		unit.NewUnitOption("Unit", "Description", fmt.Sprintf("Timer for %s %s", j.Name, b.opts.Marker)),
	}

	s := j.Schedule
	switch s.Kind {
	case jobs.ScheduleCalendar:
		opts = append(opts, unit.NewUnitOption("Timer", "OnCalendar", s.Expression))
	case jobs.ScheduleInterval:
		secs := fmt.Sprintf("%ds", s.Seconds)
		opts = append(opts,
			unit.NewUnitOption("Timer", "OnActiveSec", secs),
			unit.NewUnitOption("Timer", "OnUnitActiveSec", secs),
		)
	case jobs.ScheduleTimerSpec:
		for _, p := range s.Timer {
			opts = append(opts, unit.NewUnitOption("Timer", p.Key, p.Value))
		}
	default:
		return "", fmt.Errorf("job %s has no timer schedule", j.Name)
	}

	opts = append(opts, unit.NewUnitOption("Install", "WantedBy", "timers.target"))
	return b.render(opts)
}

// Verify runs systemd-analyze once over the whole batch.
func (b *systemdBackend) Verify(ctx context.Context, units []UnitSpec) error {
	if !b.opts.Verify || len(units) == 0 {
		return nil
	}

	dir, err := os.MkdirTemp("", "dron-verify-")
	if err != nil {
		return fmt.Errorf("failed to create verify directory; %w", err)
	}
	defer os.RemoveAll(dir)

	args := []string{"--user", "verify"}
	names := make([]string, 0, len(units))
	for _, u := range units {
		path := filepath.Join(dir, u.Name)
		if err := os.WriteFile(path, []byte(u.Body), 0644); err != nil {
			return fmt.Errorf("failed to write %s for verification; %w", u.Name, err)
		}
		args = append(args, path)
		names = append(names, u.Name)
	}

	out, runErr := b.opts.Executor.Run(ctx, "systemd-analyze", args...)
	diagnostics := collapseLines(string(out))
	if diagnostics == "" && runErr == nil {
		return nil
	}
	if diagnostics == "" {
		diagnostics = runErr.Error()
	}

	b.opts.Logger.Error("unit verification failed", "tool", "systemd-analyze", "units", len(units))
	return &VerificationError{Tool: "systemd-analyze", Units: names, Output: diagnostics}
}

// collapseLines drops repeated lines; bulk verification repeats dependency warnings.
func collapseLines(out string) string {
	seen := make(map[string]bool)
	var kept []string
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t")
		if line == "" || seen[line] {
			continue
		}
		seen[line] = true
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// QueryState lists units whose description carries the marker.
func (b *systemdBackend) QueryState(ctx context.Context, withBody bool) ([]UnitRecord, error) {
	bus, err := b.dial(ctx)
	if err != nil {
		return nil, &StateQueryError{Err: err}
	}
	defer bus.Close()

	units, err := bus.ListUnitsContext(ctx)
	if err != nil {
		return nil, &StateQueryError{Err: fmt.Errorf("failed to list units; %w", err)}
	}

	var records []UnitRecord
	for _, u := range units {
		if !IsManaged(u.Description, b.opts.Marker) {
			continue
		}

		prop, err := bus.GetUnitPropertyContext(ctx, u.Name, "FragmentPath")
		if err != nil {
			return nil, &StateQueryError{Err: fmt.Errorf("failed to read FragmentPath of %s; %w", u.Name, err)}
		}
		path, _ := prop.Value.Value().(string)
		if path == "" {
			continue
		}
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			path = resolved
		}

		rec := UnitRecord{UnitFile: path}
		if withBody {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, &StateQueryError{Err: fmt.Errorf("failed to read unit file %s; %w", path, err)}
			}
			rec.Body = string(data)
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, k int) bool { return records[i].UnitFile < records[k].UnitFile })
	return records, nil
}

func (b *systemdBackend) systemctl(ctx context.Context, args ...string) error {
	_, err := run(ctx, b.opts.Executor, "systemctl", append([]string{"--user"}, args...)...)
	return err
}

// Lifecycle maps actions onto systemctl --user.
func (b *systemdBackend) Lifecycle(ctx context.Context, action LifecycleAction, u UnitRef) error {
	b.opts.Logger.Debug("systemd lifecycle", "action", action, "unit", u.Name)

	switch action {
	case ActionEnable:
		target := u.File
		if target == "" {
			target = u.Name
		}
		if KindOf(u.Name) == KindTimer {
			return b.systemctl(ctx, "enable", target, "--now")
		}
		// --quiet: services carry no [Install] section and systemctl warns about it.
		args := []string{"enable", target, "--quiet"}
		if u.AlwaysRunning {
			args = append(args, "--now")
		}
		return b.systemctl(ctx, args...)
	case ActionDisable:
		return b.systemctl(ctx, "disable", u.Name)
	case ActionStart:
		return b.systemctl(ctx, "start", u.Name)
	case ActionStop:
		return b.systemctl(ctx, "stop", u.Name)
	case ActionReload:
		return b.systemctl(ctx, "daemon-reload")
	case ActionRestart:
		return b.systemctl(ctx, "restart", u.Name)
	case ActionUnload:
		if err := b.systemctl(ctx, "stop", u.Name); err != nil {
			return err
		}
		return b.systemctl(ctx, "disable", u.Name)
	default:
		return fmt.Errorf("unsupported lifecycle action %q", action)
	}
}

// RuntimeStatus reads timer or service properties over D-Bus.
func (b *systemdBackend) RuntimeStatus(ctx context.Context, name string) (RuntimeStatus, error) {
	status := RuntimeStatus{Unit: name}

	bus, err := b.dial(ctx)
	if err != nil {
		return status, err
	}
	defer bus.Close()

	switch KindOf(name) {
	case KindTimer:
		props, err := bus.GetUnitTypePropertiesContext(ctx, name, "Timer")
		if err != nil {
			return status, fmt.Errorf("failed to read timer properties of %s; %w", name, err)
		}
		status.Calendar = timerCalendar(props["TimersCalendar"])
		status.LastTriggerUSec = toUint64(props["LastTriggerUSec"])
		status.NextElapseUSec = toUint64(props["NextElapseUSecRealtime"])
	default:
		props, err := bus.GetUnitTypePropertiesContext(ctx, name, "Service")
		if err != nil {
			return status, fmt.Errorf("failed to read service properties of %s; %w", name, err)
		}
		status.Result, _ = props["Result"].(string)
		status.PID = int(toUint64(props["MainPID"]))
		status.ExecStart = execStartArgv(props["ExecStart"])
		status.Restart, _ = props["Restart"].(string)
	}

	return status, nil
}

func (b *systemdBackend) SuccessRate(ctx context.Context, name string) (float64, error) {
	events, err := b.History(ctx, name)
	if err != nil {
		return 0, err
	}
	return SuccessRate(events), nil
}

func (b *systemdBackend) History(ctx context.Context, name string) ([]RunEvent, error) {
	out, err := run(ctx, b.opts.Executor, "journalctl", "--user", "-u", name,
		"-o", "json", "-t", "systemd", "--output-fields", "UNIT_RESULT,JOB_TYPE,MESSAGE")
	if err != nil {
		return nil, fmt.Errorf("failed to read journal for %s; %w", name, err)
	}
	return parseJournal(out)
}
