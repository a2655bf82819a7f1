// Package past implements the past command.
package past

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/dron/internal/cmdutil"
	"github.com/leefowlercu/dron/internal/monitor"
	"github.com/leefowlercu/dron/internal/servicemanager"
	"github.com/leefowlercu/dron/internal/tui/styles"
)

var pastFailed bool

// PastCmd lists previous runs of a job.
var PastCmd = &cobra.Command{
	Use:   "past [job]",
	Short: "Show previous runs of a managed job",
	Long: "Show previous runs of a managed job.\n\n" +
		"Reads the host log (journald or the unified log) and prints one line per " +
		"recorded run event, oldest first. Without a job name you are asked to pick one.",
	Example: `  # Show the history of a job
  dron past backup

  # Only failures
  dron past backup --failed`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: validatePast,
	RunE:    runPast,
}

func init() {
	PastCmd.Flags().BoolVar(&pastFailed, "failed", false, "Only show failed runs")
}

func validatePast(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runPast(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	backend, err := cmdutil.NewBackend(cmdutil.Logger())
	if err != nil {
		return err
	}

	unit, err := cmdutil.PickUnit(ctx, backend, args)
	if err != nil {
		return err
	}

	events, err := backend.History(ctx, unit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	shown := 0
	for _, e := range events {
		if pastFailed && !e.Failed {
			continue
		}
		fmt.Fprintln(out, FormatEvent(e))
		shown++
	}
	if shown == 0 {
		fmt.Fprintf(out, "no runs recorded for %s\n", unit)
	}
	return nil
}

// FormatEvent renders one history line: local timestamp then message.
func FormatEvent(e servicemanager.RunEvent) string {
	ts := "-"
	if t, ok := monitor.FromUSec(e.TimeUSec); ok {
		ts = t.Local().Format(time.DateTime)
	}
	line := ts + "  " + e.Message
	if e.Failed {
		return styles.ErrorText.Render(line)
	}
	return line
}
