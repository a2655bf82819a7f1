// Package jobs defines the resolved job model and loads it from a jobs file.
package jobs

import (
	"fmt"
	"strings"

	"github.com/kballard/go-shellquote"
)

// ScheduleKind identifies the variant held by a Schedule.
type ScheduleKind int

const (
	// ScheduleCalendar runs the job on a calendar expression (e.g. "daily", "*:0/5", "04:30").
	ScheduleCalendar ScheduleKind = iota
	// ScheduleInterval runs the job every fixed number of seconds.
	ScheduleInterval
	// ScheduleAlways keeps the job running as a persistent service.
	ScheduleAlways
	// ScheduleTimerSpec passes scheduler-native timer properties through verbatim (systemd only).
	ScheduleTimerSpec
)

// AlwaysKeyword is the schedule value that marks a persistent service.
const AlwaysKeyword = "always"

// String returns a short name for the kind.
func (k ScheduleKind) String() string {
	switch k {
	case ScheduleCalendar:
		return "calendar"
	case ScheduleInterval:
		return "interval"
	case ScheduleAlways:
		return "always"
	case ScheduleTimerSpec:
		return "timer"
	default:
		return "unknown"
	}
}

// Schedule describes when a job runs. A nil *Schedule means the job is only triggered manually.
type Schedule struct {
	Kind       ScheduleKind
	Expression string     // ScheduleCalendar
	Seconds    int        // ScheduleInterval
	Timer      []Property // ScheduleTimerSpec, sorted by key
}

// Calendar returns a calendar schedule.
func Calendar(expr string) *Schedule {
	if expr == AlwaysKeyword {
		return Always()
	}
	return &Schedule{Kind: ScheduleCalendar, Expression: expr}
}

// Interval returns a fixed-interval schedule.
func Interval(seconds int) *Schedule {
	return &Schedule{Kind: ScheduleInterval, Seconds: seconds}
}

// Always returns the persistent-service schedule.
func Always() *Schedule {
	return &Schedule{Kind: ScheduleAlways}
}

// TimerSpec returns a verbatim timer-property schedule.
func TimerSpec(props ...Property) *Schedule {
	return &Schedule{Kind: ScheduleTimerSpec, Timer: sortProperties(props)}
}

// String renders the schedule the way a user would write it.
func (s *Schedule) String() string {
	if s == nil {
		return "manual"
	}
	switch s.Kind {
	case ScheduleCalendar:
		return s.Expression
	case ScheduleInterval:
		return fmt.Sprintf("every %ds", s.Seconds)
	case ScheduleAlways:
		return AlwaysKeyword
	case ScheduleTimerSpec:
		parts := make([]string, 0, len(s.Timer))
		for _, p := range s.Timer {
			parts = append(parts, p.Key+"="+p.Value)
		}
		return strings.Join(parts, " ")
	default:
		return "unknown"
	}
}

// Property is a single key/value pair passed through to the generated unit.
type Property struct {
	Key   string
	Value string
}

// Command is either an argument vector or a pre-escaped shell string.
// Exactly one of Argv and Raw is set.
type Command struct {
	Argv []string
	Raw  string
}

// Args returns a command from an argument vector.
func Args(argv ...string) Command {
	return Command{Argv: argv}
}

// Shell returns a command from an already escaped string.
func Shell(raw string) Command {
	return Command{Raw: raw}
}

// IsZero reports whether the command is empty.
func (c Command) IsZero() bool {
	return len(c.Argv) == 0 && strings.TrimSpace(c.Raw) == ""
}

// Escaped renders the command as a single shell-escaped line.
// Raw commands are assumed to be escaped already.
func (c Command) Escaped() string {
	if len(c.Argv) > 0 {
		return shellquote.Join(c.Argv...)
	}
	return c.Raw
}

// Split returns the command as an argument vector, splitting raw strings
// with shell quoting rules.
func (c Command) Split() ([]string, error) {
	if len(c.Argv) > 0 {
		return c.Argv, nil
	}
	argv, err := shellquote.Split(c.Raw)
	if err != nil {
		return nil, fmt.Errorf("failed to split command %q; %w", c.Raw, err)
	}
	return argv, nil
}

// Job is a resolved job declaration.
type Job struct {
	// Name is the unique unit base name.
	Name string

	// Command is what the job executes.
	Command Command

	// Schedule is when it runs; nil means manual trigger only.
	Schedule *Schedule

	// OnFailure lists shell commands run when the job exits non-zero.
	OnFailure []string

	// Properties are extra unit properties. Keys may carry a "[Section]" prefix.
	Properties []Property
}

// IsManual reports whether the job has no schedule.
func (j Job) IsManual() bool {
	return j.Schedule == nil
}

// IsAlways reports whether the job is a persistent service.
func (j Job) IsAlways() bool {
	return j.Schedule != nil && j.Schedule.Kind == ScheduleAlways
}

// HasTimer reports whether the job needs a companion timer.
func (j Job) HasTimer() bool {
	return j.Schedule != nil && j.Schedule.Kind != ScheduleAlways
}
