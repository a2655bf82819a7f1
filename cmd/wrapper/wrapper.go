// Package wrapper implements the hidden launchd-wrapper command that launchd
// jobs run through.
package wrapper

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/dron/internal/cmdutil"
	"github.com/leefowlercu/dron/internal/config"
	"github.com/leefowlercu/dron/internal/servicemanager"
	"github.com/leefowlercu/dron/internal/wrapper"
)

var (
	wrapperJob    string
	wrapperNotify []string
)

// WrapperCmd runs a launchd job's command, logging failures and notifying.
var WrapperCmd = &cobra.Command{
	Use:    servicemanager.WrapperCommand + " --job NAME [--notify CMD]... -- COMMAND [ARG]...",
	Short:  "Run a launchd job (used by generated plists)",
	Hidden: true,
	Long: "Run a launchd job (used by generated plists).\n\n" +
		"Runs COMMAND, keeps its output in a rotating per-job log and, when it fails, " +
		"pipes a failure report to every --notify command. Exits with the job's exit code.",
	Args:    cobra.MinimumNArgs(1),
	PreRunE: validateWrapper,
	RunE:    runWrapper,
}

func init() {
	WrapperCmd.Flags().StringVar(&wrapperJob, "job", "", "Job name")
	WrapperCmd.Flags().StringArrayVar(&wrapperNotify, "notify", nil, "Shell command that receives the failure report on stdin (repeatable)")
	WrapperCmd.MarkFlagRequired("job")
	WrapperCmd.Flags().SetInterspersed(false)
}

func validateWrapper(cmd *cobra.Command, args []string) error {
	if wrapperJob == "" {
		return fmt.Errorf("--job must not be empty")
	}

	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runWrapper(cmd *cobra.Command, args []string) error {
	logDir, err := cmdutil.ResolvePath(config.GetString("wrapper.log_dir"))
	if err != nil {
		return err
	}

	rc, err := wrapper.Run(cmd.Context(), wrapper.Options{
		Job:          wrapperJob,
		Notify:       wrapperNotify,
		Argv:         args,
		LogDir:       logDir,
		MaxLogSizeMB: config.GetInt("wrapper.max_log_size_mb"),
		Output:       cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}
	if rc != 0 {
		return &cmdutil.ExitError{Code: rc}
	}
	return nil
}
