package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/leefowlercu/dron/internal/jobs"
	"github.com/leefowlercu/dron/internal/servicemanager"
)

// Compile validates jobs and generates the desired units, in declaration order,
// then verifies the whole set in one batch. No host state is read or changed.
func Compile(ctx context.Context, backend servicemanager.Backend, list []jobs.Job) ([]servicemanager.UnitSpec, error) {
	if err := jobs.Validate(list); err != nil {
		return nil, err
	}

	var (
		desired []servicemanager.UnitSpec
		errs    jobs.ValidationErrors
		names   = make(map[string]bool)
	)
	for _, j := range list {
		specs, err := backend.Generate(j)
		if err != nil {
			var verr jobs.ValidationError
			if errors.As(err, &verr) {
				errs = append(errs, verr)
				continue
			}
			return nil, fmt.Errorf("failed to generate units for job %s; %w", j.Name, err)
		}

		for _, s := range specs {
			if names[s.Name] {
				errs = append(errs, jobs.ValidationError{Job: j.Name, Field: "name", Message: fmt.Sprintf("duplicate unit %s", s.Name)})
				continue
			}
			names[s.Name] = true
			desired = append(desired, s)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	if err := backend.Verify(ctx, desired); err != nil {
		return nil, err
	}
	return desired, nil
}
