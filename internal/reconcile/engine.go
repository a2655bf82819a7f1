package reconcile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/google/uuid"

	"github.com/leefowlercu/dron/internal/fsutil"
	"github.com/leefowlercu/dron/internal/servicemanager"
)

// ErrAborted is returned when a destructive apply is not confirmed.
var ErrAborted = errors.New("apply aborted: refusing to delete all managed units")

// Confirmer approves destructive applies.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) (bool, error)

func (f ConfirmFunc) Confirm(prompt string) (bool, error) {
	return f(prompt)
}

// ApplyResult summarizes an apply by unit name.
type ApplyResult struct {
	RunID    uuid.UUID
	NoChange []string
	Deleted  []string
	Updated  []string
	Added    []string
}

// Changed reports whether the apply touched any unit.
func (r ApplyResult) Changed() bool {
	return len(r.Deleted)+len(r.Updated)+len(r.Added) > 0
}

// Engine applies desired units to a backend. Apply is synchronous and must not
// be called concurrently.
type Engine struct {
	backend servicemanager.Backend
	confirm Confirmer
	logger  *slog.Logger
	diffOut io.Writer
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfirmer sets the confirmer consulted before deleting every managed unit.
// Without one, such applies are aborted.
func WithConfirmer(c Confirmer) Option {
	return func(e *Engine) {
		e.confirm = c
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithDiffOutput sets where update diffs are printed.
func WithDiffOutput(w io.Writer) Option {
	return func(e *Engine) {
		e.diffOut = w
	}
}

// NewEngine creates an engine for the backend.
func NewEngine(backend servicemanager.Backend, opts ...Option) *Engine {
	e := &Engine{
		backend: backend,
		logger:  slog.Default(),
		diffOut: io.Discard,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type changedUpdate struct {
	action Action
	spec   servicemanager.UnitSpec
	diff   string
}

// Apply brings the host's managed units in line with desired.
//
// Host commands are not retried and completed steps are not rolled back: the
// first failing command aborts the rest of the plan. Because current state is
// queried fresh on every run, the next apply resumes from wherever the host is.
func (e *Engine) Apply(ctx context.Context, desired []servicemanager.UnitSpec) (ApplyResult, error) {
	result := ApplyResult{RunID: uuid.New()}
	log := e.logger.With("run_id", result.RunID.String())

	current, err := e.backend.QueryState(ctx, true)
	if err != nil {
		return result, err
	}

	plan := ComputePlan(current, desired)
	deletes, updates, adds := plan.Partition()

	if len(deletes) == len(current) && len(deletes) > 0 {
		ok, err := e.confirmDeleteAll(len(deletes))
		if err != nil {
			return result, err
		}
		if !ok {
			return result, ErrAborted
		}
	}

	specs := make(map[string]servicemanager.UnitSpec, len(desired))
	for _, s := range desired {
		specs[s.File] = s
	}

	var changed []changedUpdate
	for _, u := range updates {
		d := Diff(u.OldBody, u.NewBody)
		if d == "" {
			result.NoChange = append(result.NoChange, u.Unit())
			continue
		}
		changed = append(changed, changedUpdate{action: u, spec: specs[u.UnitFile], diff: d})
	}

	log.Info("plan computed",
		"no_change", len(result.NoChange),
		"deleting", len(deletes),
		"updating", len(changed),
		"adding", len(adds))

	if err := e.applyDeletes(ctx, log, deletes, &result); err != nil {
		return result, err
	}
	if err := e.applyUpdates(ctx, log, changed, &result); err != nil {
		return result, err
	}
	if err := e.applyAdds(ctx, log, adds, specs, &result); err != nil {
		return result, err
	}

	if err := e.backend.Lifecycle(ctx, servicemanager.ActionReload, servicemanager.UnitRef{}); err != nil {
		return result, err
	}
	return result, nil
}

func (e *Engine) confirmDeleteAll(n int) (bool, error) {
	if e.confirm == nil {
		return false, nil
	}
	ok, err := e.confirm.Confirm(fmt.Sprintf("Trying to delete all %d managed units. Are you sure?", n))
	if err != nil {
		return false, fmt.Errorf("failed to confirm apply; %w", err)
	}
	return ok, nil
}

// applyDeletes unloads every unit before removing any file, so the scheduler
// never references a missing file.
func (e *Engine) applyDeletes(ctx context.Context, log *slog.Logger, deletes []Action, result *ApplyResult) error {
	for _, d := range deletes {
		log.Info("disabling unit", "unit", d.Unit())
		ref := servicemanager.UnitRef{Name: d.Unit(), File: d.UnitFile}
		if err := e.backend.Lifecycle(ctx, servicemanager.ActionUnload, ref); err != nil {
			return err
		}
	}
	for _, d := range deletes {
		if err := os.Remove(d.UnitFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to remove unit file %s; %w", d.UnitFile, err)
		}
		result.Deleted = append(result.Deleted, d.Unit())
	}
	return nil
}

// applyUpdates re-verifies, writes, reloads and restarts units whose body changed.
// Timers always restart so the scheduler drops stale trigger state; services
// restart only when always running.
func (e *Engine) applyUpdates(ctx context.Context, log *slog.Logger, changed []changedUpdate, result *ApplyResult) error {
	if len(changed) == 0 {
		return nil
	}

	batch := make([]servicemanager.UnitSpec, 0, len(changed))
	for _, c := range changed {
		batch = append(batch, c.spec)
	}
	if err := e.backend.Verify(ctx, batch); err != nil {
		return err
	}

	for _, c := range changed {
		log.Info("updating unit", "unit", c.action.Unit())
		fmt.Fprintf(e.diffOut, "--- %s\n%s", c.action.Unit(), c.diff)
		if err := fsutil.WriteFileAtomic(c.action.UnitFile, []byte(c.action.NewBody), 0644); err != nil {
			return fmt.Errorf("failed to write unit file %s; %w", c.action.UnitFile, err)
		}
	}

	if err := e.backend.Lifecycle(ctx, servicemanager.ActionReload, servicemanager.UnitRef{}); err != nil {
		return err
	}

	for _, c := range changed {
		ref := unitRef(c.spec)
		if needsRestart(c.spec) {
			if err := e.backend.Lifecycle(ctx, servicemanager.ActionRestart, ref); err != nil {
				return err
			}
		}
		result.Updated = append(result.Updated, c.action.Unit())
	}
	return nil
}

func needsRestart(s servicemanager.UnitSpec) bool {
	switch s.Kind {
	case servicemanager.KindTimer, servicemanager.KindPlist:
		return true
	default:
		return s.Job.IsAlways()
	}
}

// applyAdds writes every new unit before the single reload, then enables each.
func (e *Engine) applyAdds(ctx context.Context, log *slog.Logger, adds []Action, specs map[string]servicemanager.UnitSpec, result *ApplyResult) error {
	if len(adds) == 0 {
		return nil
	}

	batch := make([]servicemanager.UnitSpec, 0, len(adds))
	for _, a := range adds {
		batch = append(batch, specs[a.UnitFile])
	}
	if err := e.backend.Verify(ctx, batch); err != nil {
		return err
	}

	for _, a := range adds {
		log.Info("adding unit", "unit", a.Unit())
		if err := fsutil.WriteFileAtomic(a.UnitFile, []byte(a.NewBody), 0644); err != nil {
			return fmt.Errorf("failed to write unit file %s; %w", a.UnitFile, err)
		}
	}

	if err := e.backend.Lifecycle(ctx, servicemanager.ActionReload, servicemanager.UnitRef{}); err != nil {
		return err
	}

	for _, a := range adds {
		log.Info("enabling unit", "unit", a.Unit())
		if err := e.backend.Lifecycle(ctx, servicemanager.ActionEnable, unitRef(specs[a.UnitFile])); err != nil {
			return err
		}
		result.Added = append(result.Added, a.Unit())
	}
	return nil
}

func unitRef(s servicemanager.UnitSpec) servicemanager.UnitRef {
	return servicemanager.UnitRef{
		Name:          s.Name,
		File:          s.File,
		AlwaysRunning: s.Job.IsAlways(),
	}
}
