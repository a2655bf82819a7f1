// Package lint implements the lint command.
package lint

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/dron/internal/cmdutil"
	"github.com/leefowlercu/dron/internal/jobs"
	"github.com/leefowlercu/dron/internal/servicemanager"
	"github.com/leefowlercu/dron/internal/tui/styles"
)

// LintCmd checks a jobs file without touching the host.
var LintCmd = &cobra.Command{
	Use:   "lint [jobs-file]",
	Short: "Check the jobs file without applying it",
	Long: "Check the jobs file without applying it.\n\n" +
		"Parses the file, validates every job, generates its units and runs the host's " +
		"unit checker over them. Nothing on the host is changed.",
	Example: `  # Lint the configured jobs file
  dron lint

  # Lint without running systemd-analyze
  dron lint --no-verify ./jobs.yaml`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: validateLint,
	RunE:    runLint,
}

func validateLint(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runLint(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	path, err := cmdutil.JobsFile(args)
	if err != nil {
		return err
	}

	backend, err := cmdutil.NewBackend(cmdutil.Logger())
	if err != nil {
		return err
	}

	units, err := cmdutil.LintJobs(cmd.Context(), backend, path)
	if err != nil {
		printProblems(cmd, err)
		return fmt.Errorf("%s has errors", path)
	}

	fmt.Fprintln(out, styles.SuccessText.Render(fmt.Sprintf("all good: %d jobs, %d units", countJobs(units), len(units))))
	return nil
}

func printProblems(cmd *cobra.Command, err error) {
	out := cmd.ErrOrStderr()

	var verrs jobs.ValidationErrors
	var one jobs.ValidationError
	var verr *servicemanager.VerificationError
	switch {
	case errors.As(err, &verrs):
		for _, e := range verrs {
			fmt.Fprintln(out, styles.ErrorText.Render("✗ ")+e.Error())
		}
	case errors.As(err, &one):
		fmt.Fprintln(out, styles.ErrorText.Render("✗ ")+one.Error())
	case errors.As(err, &verr):
		fmt.Fprintln(out, styles.ErrorText.Render("✗ unit verification failed"))
		fmt.Fprintln(out, verr.Output)
	default:
		fmt.Fprintln(out, styles.ErrorText.Render("✗ ")+err.Error())
	}
}

func countJobs(units []servicemanager.UnitSpec) int {
	seen := make(map[string]bool)
	for _, u := range units {
		seen[u.Job.Name] = true
	}
	return len(seen)
}
