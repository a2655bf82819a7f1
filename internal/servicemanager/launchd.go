package servicemanager

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/kballard/go-shellquote"

	"github.com/leefowlercu/dron/internal/jobs"
)

const (
	// launchdLabelPrefix namespaces dron agents in launchctl output.
	launchdLabelPrefix = "dron."

	// WrapperCommand is the hidden subcommand launchd jobs run through.
	WrapperCommand = "launchd-wrapper"
)

// launchdPlistTemplate is the template for a job plist.
const launchdPlistTemplate = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{xml .Label}}</string>
    <key>ProgramArguments</key>
    <array>
{{- range .Args}}
        <string>{{xml .}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
{{- with .Schedule}}
{{- if .KeepAlive}}
    <key>KeepAlive</key>
    <true/>
{{- else if .Calendar}}
    <key>StartCalendarInterval</key>
    <dict>
        <key>Hour</key>
        <integer>{{.Calendar.Hour}}</integer>
        <key>Minute</key>
        <integer>{{.Calendar.Minute}}</integer>
    </dict>
{{- else}}
    <key>StartInterval</key>
    <integer>{{.StartInterval}}</integer>
{{- end}}
{{- end}}
    <key>Comment</key>
    <string>{{xml .Marker}}</string>
</dict>
</plist>
`

var plistTemplate = template.Must(template.New("plist").Funcs(template.FuncMap{
	"xml": xmlEscape,
}).Parse(launchdPlistTemplate))

func xmlEscape(s string) string {
	var buf bytes.Buffer
	_ = xml.EscapeText(&buf, []byte(s))
	return buf.String()
}

// launchdBackend implements Backend for macOS using launchd agents.
type launchdBackend struct {
	opts   Options
	domain string
}

// newLaunchdBackend creates a launchd backend for the current user's GUI domain.
func newLaunchdBackend(opts Options) *launchdBackend {
	return &launchdBackend{
		opts:   opts,
		domain: fmt.Sprintf("gui/%d", os.Getuid()),
	}
}

func (b *launchdBackend) Platform() Platform {
	return PlatformMacOS
}

// fqn returns the service target for launchctl, e.g. gui/501/dron.backup.
func (b *launchdBackend) fqn(name string) string {
	return b.domain + "/" + launchdLabelPrefix + BaseName(name)
}

// WrapperArgs returns the argv prefix that runs a job through the launchd wrapper.
func WrapperArgs(wrapperPath, job string, onFailure []string) []string {
	args := []string{wrapperPath, WrapperCommand}
	for _, n := range onFailure {
		args = append(args, "--notify", strings.ReplaceAll(n, "%n", job))
	}
	return append(args, "--job", job, "--")
}

// StripWrapper removes the launchd wrapper prefix from a command line.
func StripWrapper(argv []string) []string {
	if len(argv) < 2 || argv[1] != WrapperCommand {
		return argv
	}
	for i, a := range argv {
		if a == "--" {
			return argv[i+1:]
		}
	}
	return argv
}

// Generate renders one plist per job.
func (b *launchdBackend) Generate(j jobs.Job) ([]UnitSpec, error) {
	sched, err := translateLaunchd(j)
	if err != nil {
		return nil, err
	}

	argv, err := j.Command.Split()
	if err != nil {
		return nil, jobs.ValidationError{Job: j.Name, Field: "command", Message: err.Error()}
	}

	data := struct {
		Label    string
		Args     []string
		Schedule launchdSchedule
		Marker   string
	}{
		Label:    launchdLabelPrefix + j.Name,
		Args:     append(WrapperArgs(b.opts.WrapperPath, j.Name, j.OnFailure), argv...),
		Schedule: sched,
		Marker:   b.opts.Marker,
	}

	var buf bytes.Buffer
	if err := plistTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to execute plist template; %w", err)
	}

	name := j.Name + ".plist"
	return []UnitSpec{{
		Name: name,
		File: filepath.Join(b.opts.UnitsDir, name),
		Kind: KindPlist,
		Body: buf.String(),
		Job:  j,
	}}, nil
}

// Verify runs plutil once over the whole batch.
func (b *launchdBackend) Verify(ctx context.Context, units []UnitSpec) error {
	if !b.opts.Verify || len(units) == 0 {
		return nil
	}

	dir, err := os.MkdirTemp("", "dron-verify-")
	if err != nil {
		return fmt.Errorf("failed to create verify directory; %w", err)
	}
	defer os.RemoveAll(dir)

	args := []string{"-lint", "-s"}
	names := make([]string, 0, len(units))
	for _, u := range units {
		path := filepath.Join(dir, u.Name)
		if err := os.WriteFile(path, []byte(u.Body), 0644); err != nil {
			return fmt.Errorf("failed to write %s for verification; %w", u.Name, err)
		}
		args = append(args, path)
		names = append(names, u.Name)
	}

	out, runErr := b.opts.Executor.Run(ctx, "plutil", args...)
	diagnostics := collapseLines(string(out))
	if diagnostics == "" && runErr == nil {
		return nil
	}
	if diagnostics == "" {
		diagnostics = runErr.Error()
	}

	b.opts.Logger.Error("unit verification failed", "tool", "plutil", "units", len(units))
	return &VerificationError{Tool: "plutil", Units: names, Output: diagnostics}
}

// QueryState parses `launchctl dumpstate`, keeping dron agents loaded from the
// units directory. An agent is dron's when its label carries the dron prefix and
// it runs through the wrapper; with bodies the marker in the plist is checked too.
func (b *launchdBackend) QueryState(ctx context.Context, withBody bool) ([]UnitRecord, error) {
	out, err := run(ctx, b.opts.Executor, "launchctl", "dumpstate")
	if err != nil {
		return nil, &StateQueryError{Err: err}
	}

	seen := make(map[string]bool)
	var records []UnitRecord
	for _, blk := range parseDumpstate(string(out)) {
		path := blk.Fields["path"]
		if path == "" {
			continue
		}
		path = filepath.Join(resolveDir(filepath.Dir(path)), filepath.Base(path))
		if filepath.Dir(path) != b.opts.UnitsDir || seen[path] || !blk.managed() {
			continue
		}
		seen[path] = true

		rec := UnitRecord{
			UnitFile:     path,
			Cmdline:      blk.Arguments,
			LastExitCode: blk.Fields["last exit code"],
			PID:          blk.Fields["pid"],
			Schedule:     blk.schedule(),
		}
		if withBody {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, &StateQueryError{Err: fmt.Errorf("failed to read unit file %s; %w", path, err)}
			}
			if !IsManaged(string(data), b.opts.Marker) {
				continue
			}
			rec.Body = string(data)
		}
		records = append(records, rec)
	}

	sort.Slice(records, func(i, k int) bool { return records[i].UnitFile < records[k].UnitFile })
	return records, nil
}

func (b *launchdBackend) agentLink(name string) string {
	return filepath.Join(b.opts.AgentsDir, filepath.Base(name))
}

func (b *launchdBackend) load(ctx context.Context, u UnitRef) error {
	if _, err := run(ctx, b.opts.Executor, "launchctl", "bootstrap", b.domain, u.File); err != nil {
		return err
	}

	// The LaunchAgents symlink makes the agent load again at login.
	link := b.agentLink(u.Name)
	if err := os.MkdirAll(filepath.Dir(link), 0755); err != nil {
		return fmt.Errorf("failed to create LaunchAgents directory; %w", err)
	}
	if err := os.Remove(link); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to replace agent link; %w", err)
	}
	if err := os.Symlink(u.File, link); err != nil {
		return fmt.Errorf("failed to link agent; %w", err)
	}
	return nil
}

func (b *launchdBackend) unload(ctx context.Context, u UnitRef) error {
	if _, err := run(ctx, b.opts.Executor, "launchctl", "bootout", b.fqn(u.Name)); err != nil {
		return err
	}
	if err := os.Remove(b.agentLink(u.Name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove agent link; %w", err)
	}
	return nil
}

// Lifecycle maps actions onto launchctl bootstrap/bootout/kickstart.
func (b *launchdBackend) Lifecycle(ctx context.Context, action LifecycleAction, u UnitRef) error {
	b.opts.Logger.Debug("launchd lifecycle", "action", action, "unit", u.Name)

	switch action {
	case ActionEnable:
		return b.load(ctx, u)
	case ActionDisable, ActionUnload:
		return b.unload(ctx, u)
	case ActionStart:
		_, err := run(ctx, b.opts.Executor, "launchctl", "kickstart", b.fqn(u.Name))
		return err
	case ActionStop:
		_, err := run(ctx, b.opts.Executor, "launchctl", "kill", "SIGTERM", b.fqn(u.Name))
		return err
	case ActionReload:
		// launchd reads plists on bootstrap; there is no daemon-wide reload.
		return nil
	case ActionRestart:
		if err := b.unload(ctx, u); err != nil {
			return err
		}
		return b.load(ctx, u)
	default:
		return fmt.Errorf("unsupported lifecycle action %q", action)
	}
}

// RuntimeStatus reads the unit's entry from the dumpstate output.
func (b *launchdBackend) RuntimeStatus(ctx context.Context, name string) (RuntimeStatus, error) {
	status := RuntimeStatus{Unit: name}

	records, err := b.QueryState(ctx, false)
	if err != nil {
		return status, err
	}

	for _, r := range records {
		if BaseName(r.UnitFile) != BaseName(name) {
			continue
		}
		status.ExitCode = r.LastExitCode
		status.Result = launchdResult(r.LastExitCode)
		status.PID, _ = strconv.Atoi(r.PID)
		status.Calendar = r.Schedule
		status.ExecStart = StripWrapper(r.Cmdline)
		return status, nil
	}

	return status, fmt.Errorf("unit %s is not loaded", name)
}

// launchdResult renders a raw exit code as a result label.
func launchdResult(code string) string {
	if code == "0" {
		return "success"
	}
	return "exitcode " + code
}

func (b *launchdBackend) SuccessRate(ctx context.Context, name string) (float64, error) {
	events, err := b.History(ctx, name)
	if err != nil {
		return 0, err
	}
	return SuccessRate(events), nil
}

// logEntry is one line of `log show --style ndjson`.
type logEntry struct {
	Subsystem    string `json:"subsystem"`
	EventMessage string `json:"eventMessage"`
	Timestamp    string `json:"timestamp"`
	Finished     int    `json:"finished"`
}

var spawnedMessage = regexp.MustCompile(` spawned .* because`)

const logTimestampLayout = "2006-01-02 15:04:05.000000-0700"

// History reads spawn and exit events from the unified log.
func (b *launchdBackend) History(ctx context.Context, name string) ([]RunEvent, error) {
	sub := b.fqn(name)
	out, err := run(ctx, b.opts.Executor, "log", "show", "--info",
		"--predicate", fmt.Sprintf("subsystem contains %q", sub),
		"--style", "ndjson")
	if err != nil {
		return nil, fmt.Errorf("failed to read unified log for %s; %w", name, err)
	}
	return parseUnifiedLog(out, sub)
}

func parseUnifiedLog(out []byte, sub string) ([]RunEvent, error) {
	var events []RunEvent

	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 || line[0] != '{' {
			continue
		}

		var e logEntry
		if err := json.Unmarshal(line, &e); err != nil {
			return nil, fmt.Errorf("failed to decode log entry; %w", err)
		}
		if e.Finished == 1 {
			continue
		}
		// Subsystem may carry a trailing pid.
		if subsystem, _, _ := strings.Cut(e.Subsystem, " "); subsystem != sub {
			continue
		}

		started := spawnedMessage.MatchString(e.EventMessage)
		exited := strings.Contains(e.EventMessage, "exited ")
		if !started && !exited {
			continue
		}

		var ts uint64
		if t, err := time.Parse(logTimestampLayout, e.Timestamp); err == nil {
			ts = uint64(t.UnixMicro())
		}
		events = append(events, RunEvent{
			TimeUSec: ts,
			Message:  e.EventMessage,
			Started:  started,
			Failed:   exited && !exitedCleanly(e.EventMessage),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan log output; %w", err)
	}

	return events, nil
}

func exitedCleanly(msg string) bool {
	return strings.Contains(msg, "exit code: 0") || strings.Contains(msg, "exit(0)")
}

// CommandLine renders argv as a shell-quoted string.
func CommandLine(argv []string) string {
	return shellquote.Join(argv...)
}
