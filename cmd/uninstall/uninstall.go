// Package uninstall implements the uninstall command.
package uninstall

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/dron/internal/cmdutil"
)

var (
	uninstallYes bool
)

// UninstallCmd removes every managed unit.
var UninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove every unit managed by dron",
	Long: "Remove every unit managed by dron.\n\n" +
		"Applies an empty jobs list: every managed unit is stopped, disabled and deleted. " +
		"Units without the dron marker are never touched. The jobs file is left as is.",
	Example: `  # Remove all managed units (asks first)
  dron uninstall

  # Remove without asking
  dron uninstall --yes`,
	Args:    cobra.NoArgs,
	PreRunE: validateUninstall,
	RunE:    runUninstall,
}

func init() {
	UninstallCmd.Flags().BoolVarP(&uninstallYes, "yes", "y", false, "Skip confirmation prompt")
}

func validateUninstall(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runUninstall(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	logger := cmdutil.Logger()

	if !uninstallYes {
		ok, err := cmdutil.Confirm("Going to remove all dron managed jobs. Continue?", true)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "Uninstall cancelled.")
			return nil
		}
	}

	backend, err := cmdutil.NewBackend(logger)
	if err != nil {
		return err
	}

	// the user already agreed to remove everything above
	_, err = cmdutil.ApplyUnits(cmd.Context(), backend, nil, cmdutil.ApplyOptions{
		Out:       out,
		AssumeYes: true,
		Logger:    logger.With("mode", "uninstall"),
	})
	return err
}
