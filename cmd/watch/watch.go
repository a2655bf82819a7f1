// Package watch implements the watch command.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/dron/internal/cmdutil"
	"github.com/leefowlercu/dron/internal/reconcile"
	"github.com/leefowlercu/dron/internal/servicemanager"
	"github.com/leefowlercu/dron/internal/watcher"
)

var watchDebounce time.Duration

// WatchCmd re-applies the jobs file whenever it changes.
var WatchCmd = &cobra.Command{
	Use:   "watch [jobs-file]",
	Short: "Apply the jobs file every time it changes",
	Long: "Apply the jobs file every time it changes.\n\n" +
		"Applies the file once, then watches it and re-applies after every saved edit. " +
		"A file with errors is reported and skipped; the host keeps its last good state. " +
		"Removing the file never uninstalls anything. An edit that would delete every " +
		"managed unit is refused, run 'dron uninstall' for that.",
	Example: `  # Watch the configured jobs file
  dron watch

  # Watch a file in a git checkout
  dron watch ~/src/dotfiles/jobs.yaml`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: validateWatch,
	RunE:    runWatch,
}

func init() {
	WatchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "Wait this long for writes to settle")
}

func validateWatch(cmd *cobra.Command, args []string) error {
	if watchDebounce < 0 {
		return fmt.Errorf("--debounce must not be negative")
	}

	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := cmdutil.Logger().With("component", "watch")

	path, err := cmdutil.JobsFile(args)
	if err != nil {
		return err
	}

	backend, err := cmdutil.NewBackend(logger)
	if err != nil {
		return err
	}

	w, err := watcher.New(path, watcher.WithDebounce(watchDebounce), watcher.WithLogger(logger))
	if err != nil {
		return err
	}
	defer w.Stop()

	a := &applier{cmd: cmd, backend: backend, path: path, logger: logger}
	a.apply(ctx)

	w.Start(ctx)
	logger.Info("watching", "path", w.Path())

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-w.Errors():
			logger.Warn("watch error", "error", err)
		case change, ok := <-w.Changes():
			if !ok {
				return nil
			}
			if change.Removed {
				logger.Warn("jobs file removed; keeping current units", "path", change.Path)
				continue
			}
			a.apply(ctx)
		}
	}
}

type applier struct {
	cmd     *cobra.Command
	backend servicemanager.Backend
	path    string
	logger  *slog.Logger
}

// apply lints and applies the file. Failures are logged, never returned.
func (a *applier) apply(ctx context.Context) {
	units, err := cmdutil.LintJobs(ctx, a.backend, a.path)
	if err != nil {
		a.logger.Error("jobs file has errors; not applied", "path", a.path, "error", err)
		return
	}

	_, err = cmdutil.ApplyUnits(ctx, a.backend, units, cmdutil.ApplyOptions{
		Out:       a.cmd.OutOrStdout(),
		Confirmer: refuseDeleteAll,
		Logger:    a.logger,
	})
	switch {
	case errors.Is(err, reconcile.ErrAborted):
		a.logger.Warn("edit would delete every managed unit; not applied", "path", a.path)
	case err != nil:
		a.logger.Error("apply failed", "path", a.path, "error", err)
	}
}

var refuseDeleteAll = reconcile.ConfirmFunc(func(string) (bool, error) {
	return false, nil
})
