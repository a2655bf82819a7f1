package cmdutil

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/leefowlercu/dron/internal/jobs"
	"github.com/leefowlercu/dron/internal/metrics"
	"github.com/leefowlercu/dron/internal/reconcile"
	"github.com/leefowlercu/dron/internal/servicemanager"
)

// ApplyOptions tune ApplyJobs.
type ApplyOptions struct {
	// Out receives diffs and the summary.
	Out io.Writer

	// AssumeYes skips the delete-everything confirmation.
	AssumeYes bool

	// Confirmer overrides the terminal prompt, e.g. for unattended runs.
	Confirmer reconcile.Confirmer

	Logger *slog.Logger
}

// LintJobs loads a jobs file and compiles it into verified units.
func LintJobs(ctx context.Context, backend servicemanager.Backend, path string) ([]servicemanager.UnitSpec, error) {
	list, err := jobs.Load(path)
	if err != nil {
		return nil, err
	}
	return reconcile.Compile(ctx, backend, list)
}

// ApplyJobs compiles list and reconciles the host against it.
func ApplyJobs(ctx context.Context, backend servicemanager.Backend, list []jobs.Job, opts ApplyOptions) (reconcile.ApplyResult, error) {
	desired, err := reconcile.Compile(ctx, backend, list)
	if err != nil {
		return reconcile.ApplyResult{}, err
	}
	return ApplyUnits(ctx, backend, desired, opts)
}

// ApplyUnits reconciles the host against already compiled units and records
// the run in the apply metrics.
func ApplyUnits(ctx context.Context, backend servicemanager.Backend, desired []servicemanager.UnitSpec, opts ApplyOptions) (reconcile.ApplyResult, error) {
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	if opts.Confirmer == nil {
		opts.Confirmer = Confirmer(opts.AssumeYes)
	}

	engine := reconcile.NewEngine(backend,
		reconcile.WithConfirmer(opts.Confirmer),
		reconcile.WithLogger(opts.Logger.With("component", "reconcile")),
		reconcile.WithDiffOutput(NewDiffWriter(opts.Out)),
	)

	start := time.Now()
	result, err := engine.Apply(ctx, desired)
	metrics.RecordApply(result, time.Since(start), err)
	if err != nil {
		return result, err
	}

	fmt.Fprintln(opts.Out, Summary(result))
	return result, nil
}

// Summary renders an apply result as one line.
func Summary(r reconcile.ApplyResult) string {
	if !r.Changed() {
		return fmt.Sprintf("no changes (%d units up to date)", len(r.NoChange))
	}

	var parts []string
	for _, p := range []struct {
		verb  string
		units []string
	}{
		{"deleted", r.Deleted},
		{"updated", r.Updated},
		{"added", r.Added},
	} {
		if len(p.units) > 0 {
			parts = append(parts, fmt.Sprintf("%s %d (%s)", p.verb, len(p.units), strings.Join(p.units, ", ")))
		}
	}
	return strings.Join(parts, "; ")
}
