// Package run implements the run command.
package run

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/dron/internal/cmdutil"
	"github.com/leefowlercu/dron/internal/servicemanager"
)

var runExec bool

// RunCmd triggers a managed job now.
var RunCmd = &cobra.Command{
	Use:   "run [job]",
	Short: "Run a managed job now",
	Long: "Run a managed job now.\n\n" +
		"Asks the host scheduler to start the job's unit immediately, outside its schedule. " +
		"Without a job name you are asked to pick one of the managed jobs.\n\n" +
		"With --exec the job's command runs in the foreground of this terminal instead, " +
		"replacing the dron process, which is handy for debugging a failing job.",
	Example: `  # Trigger a job through the scheduler
  dron run backup

  # Pick a job and run its command in this terminal
  dron run --exec`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: validateRun,
	RunE:    runRun,
}

func init() {
	RunCmd.Flags().BoolVar(&runExec, "exec", false, "Run the command in this terminal instead of via the scheduler")
}

func validateRun(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	logger := cmdutil.Logger()

	backend, err := cmdutil.NewBackend(logger)
	if err != nil {
		return err
	}

	unit, err := cmdutil.PickUnit(ctx, backend, args)
	if err != nil {
		return err
	}

	if !runExec {
		if err := backend.Lifecycle(ctx, servicemanager.ActionStart, servicemanager.UnitRef{Name: unit}); err != nil {
			return fmt.Errorf("failed to start %s; %w", unit, err)
		}
		logger.Info("started", "unit", unit)
		return nil
	}

	status, err := backend.RuntimeStatus(ctx, unit)
	if err != nil {
		return err
	}
	if len(status.ExecStart) == 0 {
		return fmt.Errorf("no command found for %s", unit)
	}

	logger.Info("running", "command", servicemanager.CommandLine(status.ExecStart))
	return execCommand(status.ExecStart)
}
