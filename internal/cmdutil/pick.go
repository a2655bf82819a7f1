package cmdutil

import (
	"context"

	"github.com/leefowlercu/dron/internal/servicemanager"
)

// PickUnit resolves the unit a command acts on: the job named in args, or one
// chosen interactively from the managed jobs.
func PickUnit(ctx context.Context, backend servicemanager.Backend, args []string) (string, error) {
	if len(args) > 0 {
		return UnitName(backend.Platform(), args[0]), nil
	}

	records, err := backend.QueryState(ctx, false)
	if err != nil {
		return "", err
	}
	name, err := SelectJob(JobNames(records))
	if err != nil {
		return "", err
	}
	return UnitName(backend.Platform(), name), nil
}
