// Package apply implements the apply command.
package apply

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/dron/internal/cmdutil"
	"github.com/leefowlercu/dron/internal/jobs"
)

var (
	applyYes bool
)

// ApplyCmd reconciles the host scheduler with a jobs file.
var ApplyCmd = &cobra.Command{
	Use:   "apply [jobs-file]",
	Short: "Apply the jobs file to the host scheduler",
	Long: "Apply the jobs file to the host scheduler.\n\n" +
		"Compiles every job into units, verifies them, then deletes, updates and adds managed " +
		"units until the host matches the file. Units whose contents are unchanged are left alone. " +
		"Changed units are shown as a diff. Applying a file that would remove every managed unit " +
		"asks for confirmation unless --yes is given.",
	Example: `  # Apply the configured jobs file
  dron apply

  # Apply a specific file
  dron apply ./jobs.toml`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: validateApply,
	RunE:    runApply,
}

func init() {
	ApplyCmd.Flags().BoolVarP(&applyYes, "yes", "y", false, "Do not ask before removing every managed unit")
}

func validateApply(cmd *cobra.Command, args []string) error {
	path, err := cmdutil.JobsFile(args)
	if err != nil {
		return fmt.Errorf("failed to resolve jobs file; %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("jobs file %s not found", path)
	}

	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runApply(cmd *cobra.Command, args []string) error {
	logger := cmdutil.Logger()

	path, err := cmdutil.JobsFile(args)
	if err != nil {
		return err
	}

	list, err := jobs.Load(path)
	if err != nil {
		return err
	}

	backend, err := cmdutil.NewBackend(logger)
	if err != nil {
		return err
	}

	_, err = cmdutil.ApplyJobs(cmd.Context(), backend, list, cmdutil.ApplyOptions{
		Out:       cmd.OutOrStdout(),
		AssumeYes: applyYes,
		Logger:    logger.With("jobs_file", path),
	})
	return err
}
