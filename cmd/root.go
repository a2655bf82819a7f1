package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/dron/cmd/apply"
	"github.com/leefowlercu/dron/cmd/config"
	"github.com/leefowlercu/dron/cmd/debug"
	"github.com/leefowlercu/dron/cmd/edit"
	"github.com/leefowlercu/dron/cmd/lint"
	"github.com/leefowlercu/dron/cmd/list"
	"github.com/leefowlercu/dron/cmd/monitor"
	"github.com/leefowlercu/dron/cmd/past"
	"github.com/leefowlercu/dron/cmd/run"
	"github.com/leefowlercu/dron/cmd/uninstall"
	"github.com/leefowlercu/dron/cmd/version"
	"github.com/leefowlercu/dron/cmd/watch"
	"github.com/leefowlercu/dron/cmd/wrapper"
	"github.com/leefowlercu/dron/internal/cmdutil"
	internalconfig "github.com/leefowlercu/dron/internal/config"
	"github.com/leefowlercu/dron/internal/logging"
)

// logManager is the global logging manager, created in init() and upgraded after config loads
var logManager *logging.Manager

var (
	rootMarker   string
	rootNoVerify bool
)

var dronCmd = &cobra.Command{
	Use:   "dron",
	Short: "Declarative scheduled jobs on top of systemd and launchd",
	Long: "dron compiles a jobs file into systemd user units (Linux) or launchd agents (macOS) " +
		"and keeps the host scheduler in sync with it.\n\n" +
		"Edit the jobs file with 'dron edit', or change it by hand and run 'dron apply'. " +
		"Only units carrying the dron marker are ever touched. " +
		"Use 'dron monitor' to watch job status, next runs and failures.",
	Example: `  # Edit and apply the jobs file
  dron edit

  # Apply a specific jobs file
  dron apply ~/dotfiles/jobs.yaml

  # Watch job status
  dron monitor`,
	PersistentPreRunE: runInitialize,
}

func init() {
	logManager = logging.NewManager()
	cmdutil.SetLogManager(logManager)

	dronCmd.PersistentFlags().StringVar(&rootMarker, "marker", "",
		"Use a custom marker instead of the default one to identify managed units (for testing)")
	dronCmd.PersistentFlags().BoolVar(&rootNoVerify, "no-verify", false,
		"Skip checking generated units with systemd-analyze / plutil")

	dronCmd.AddCommand(apply.ApplyCmd)
	dronCmd.AddCommand(lint.LintCmd)
	dronCmd.AddCommand(list.ListCmd)
	dronCmd.AddCommand(edit.EditCmd)
	dronCmd.AddCommand(uninstall.UninstallCmd)
	dronCmd.AddCommand(monitor.MonitorCmd)
	dronCmd.AddCommand(run.RunCmd)
	dronCmd.AddCommand(past.PastCmd)
	dronCmd.AddCommand(debug.DebugCmd)
	dronCmd.AddCommand(watch.WatchCmd)
	dronCmd.AddCommand(wrapper.WrapperCmd)
	dronCmd.AddCommand(config.ConfigCmd)
	dronCmd.AddCommand(version.VersionCmd)
}

func runInitialize(cmd *cobra.Command, args []string) error {
	logger := logManager.Logger()

	if err := internalconfig.Init(); err != nil {
		return err
	}

	if cmd.Flags().Changed("marker") {
		internalconfig.Set("marker", rootMarker)
	}
	if rootNoVerify {
		internalconfig.Set("verify", false)
	}

	logFile := internalconfig.GetPath("log_file")
	levelStr := internalconfig.GetString("log_level")
	level, ok := logging.ParseLevel(levelStr)
	if !ok && levelStr != "" {
		logger.Warn("invalid log level configured, using default", "configured", levelStr, "default", "info")
	}

	if err := logManager.Upgrade(logFile, level); err != nil {
		logger.Warn("failed to enable file logging, continuing with stderr only", "error", err)
	}

	return nil
}

// Execute runs the root command. SIGINT and SIGTERM cancel the command context.
func Execute() error {
	dronCmd.SilenceErrors = true
	dronCmd.SilenceUsage = true

	defer func() { _ = logManager.Close() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := dronCmd.ExecuteContext(ctx)

	var exitErr *cmdutil.ExitError
	if errors.As(err, &exitErr) {
		return err
	}

	if err != nil {
		cmd, _, _ := dronCmd.Find(os.Args[1:])
		if cmd == nil {
			cmd = dronCmd
		}

		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if !cmd.SilenceUsage {
			fmt.Fprintf(os.Stderr, "\n")
			cmd.SetOut(os.Stderr)
			_ = cmd.Usage()
		}

		return err
	}

	return nil
}

// ExitCode returns the process exit code for an error returned by Execute.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *cmdutil.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return 1
}
