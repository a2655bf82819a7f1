package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"time"

	"github.com/leefowlercu/dron/internal/servicemanager"
)

// Params selects the optional, slower columns.
type Params struct {
	// WithSuccessRate scans each unit's run history. This can take seconds per unit.
	WithSuccessRate bool

	// WithCommand includes the command line.
	WithCommand bool
}

// Aggregator turns managed unit records into monitor entries.
type Aggregator struct {
	backend servicemanager.Backend
	now     func() time.Time
	logger  *slog.Logger
}

// AggregatorOption configures an Aggregator.
type AggregatorOption func(*Aggregator)

// WithClock sets the time source.
func WithClock(now func() time.Time) AggregatorOption {
	return func(a *Aggregator) {
		a.now = now
	}
}

// WithAggregatorLogger sets the logger.
func WithAggregatorLogger(l *slog.Logger) AggregatorOption {
	return func(a *Aggregator) {
		a.logger = l
	}
}

// NewAggregator creates an aggregator reading from backend.
func NewAggregator(backend servicemanager.Backend, opts ...AggregatorOption) *Aggregator {
	a := &Aggregator{
		backend: backend,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Snapshot queries the managed units without bodies and builds their entries.
func (a *Aggregator) Snapshot(ctx context.Context, p Params) ([]Entry, error) {
	records, err := a.backend.QueryState(ctx, false)
	if err != nil {
		return nil, err
	}
	return a.GetEntries(ctx, records, p)
}

// GetEntries builds one sorted entry per job from the given records.
func (a *Aggregator) GetEntries(ctx context.Context, records []servicemanager.UnitRecord, p Params) ([]Entry, error) {
	var (
		entries []Entry
		err     error
	)
	switch a.backend.Platform() {
	case servicemanager.PlatformMacOS:
		entries, err = a.launchdEntries(ctx, records, p)
	default:
		entries, err = a.systemdEntries(ctx, records, p)
	}
	if err != nil {
		return nil, err
	}

	Sort(entries)
	return entries, nil
}

// unitGroup is a service with its optional timer.
type unitGroup struct {
	name    string
	service string
	timer   string
}

func groupUnits(records []servicemanager.UnitRecord) []unitGroup {
	byName := make(map[string]*unitGroup)
	var order []string
	for _, r := range records {
		unit := r.Name()
		base := servicemanager.BaseName(unit)
		g, ok := byName[base]
		if !ok {
			g = &unitGroup{name: base}
			byName[base] = g
			order = append(order, base)
		}
		switch servicemanager.KindOf(unit) {
		case servicemanager.KindTimer:
			g.timer = unit
		default:
			g.service = unit
		}
	}

	sort.Strings(order)
	groups := make([]unitGroup, 0, len(order))
	for _, name := range order {
		groups = append(groups, *byName[name])
	}
	return groups
}

func (a *Aggregator) systemdEntries(ctx context.Context, records []servicemanager.UnitRecord, p Params) ([]Entry, error) {
	now := a.now()
	groups := groupUnits(records)
	entries := make([]Entry, 0, len(groups))

	for _, g := range groups {
		if g.service == "" {
			a.logger.Warn("timer without service", "unit", g.timer)
			continue
		}

		e := Entry{Unit: g.name}

		ss, err := a.backend.RuntimeStatus(ctx, g.service)
		if err != nil {
			return nil, fmt.Errorf("failed to read status of %s; %w", g.service, err)
		}

		if g.timer != "" {
			ts, err := a.backend.RuntimeStatus(ctx, g.timer)
			if err != nil {
				return nil, fmt.Errorf("failed to read status of %s; %w", g.timer, err)
			}
			e.Schedule = ts.Calendar
			e.Next, e.Left = FormatNext(ts.NextElapseUSec, now)
			e.LastRun = FormatLast(ts.LastTriggerUSec, now)
		} else {
			e.Schedule = ScheduleManual
			if ss.Restart == "always" {
				e.Schedule = ScheduleAlways
			}
			e.Next = LabelNA
			e.Left = LabelNone
		}

		e.Result = ss.Result
		e.StatusOK = ss.Result == "success"
		if ss.PID != 0 {
			e.PID = strconv.Itoa(ss.PID)
			e.Next = LabelRunning
			e.Left = LabelNone
		}
		if p.WithCommand {
			e.Command = servicemanager.CommandLine(ss.ExecStart)
		}
		if p.WithSuccessRate {
			rate, err := a.backend.SuccessRate(ctx, g.service)
			if err != nil {
				return nil, err
			}
			e.SuccessRate = &rate
		}

		e.Status = statusText(e)
		entries = append(entries, e)
	}

	return entries, nil
}

var everySeconds = regexp.MustCompile(`^every (\d+) seconds$`)

func launchdScheduleText(raw string) string {
	if m := everySeconds.FindStringSubmatch(raw); m != nil {
		secs, _ := strconv.Atoi(m[1])
		return "every " + clock(time.Duration(secs)*time.Second)
	}
	if raw == "" {
		return LabelNA
	}
	return raw
}

func (a *Aggregator) launchdEntries(ctx context.Context, records []servicemanager.UnitRecord, p Params) ([]Entry, error) {
	entries := make([]Entry, 0, len(records))
	for _, r := range records {
		name := servicemanager.BaseName(r.UnitFile)

		e := Entry{
			Unit:     name,
			StatusOK: r.LastExitCode == "0",
			Left:     LabelNA,
			Next:     LabelNA,
			Schedule: launchdScheduleText(r.Schedule),
			PID:      r.PID,
		}
		if e.StatusOK {
			e.Result = "success"
		} else {
			e.Result = "exitcode " + r.LastExitCode
		}
		if e.Running() {
			e.Next = LabelRunning
			e.Left = LabelNone
		}
		if p.WithCommand {
			e.Command = servicemanager.CommandLine(servicemanager.StripWrapper(r.Cmdline))
		}
		if p.WithSuccessRate {
			rate, err := a.backend.SuccessRate(ctx, r.Name())
			if err != nil {
				return nil, err
			}
			e.SuccessRate = &rate
		}

		e.Status = statusText(e)
		entries = append(entries, e)
	}
	return entries, nil
}

func statusText(e Entry) string {
	s := e.Result
	if e.LastRun != "" {
		s += " " + e.LastRun
	}
	if e.SuccessRate != nil {
		s += fmt.Sprintf(" %.2f", *e.SuccessRate)
	}
	return s
}
