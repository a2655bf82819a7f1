// Package debug implements the debug command.
package debug

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/leefowlercu/dron/internal/cmdutil"
	"github.com/leefowlercu/dron/internal/servicemanager"
)

var debugBodies bool

// DebugCmd dumps the managed state as the backend sees it.
var DebugCmd = &cobra.Command{
	Use:    "debug",
	Short:  "Print the managed units as seen by the host scheduler",
	Hidden: true,
	Long: "Print the managed units as seen by the host scheduler.\n\n" +
		"Writes the raw state records as YAML to stderr. Useful when a unit does not " +
		"show up in monitor or apply keeps reporting a change.",
	Args:    cobra.NoArgs,
	PreRunE: validateDebug,
	RunE:    runDebug,
}

func init() {
	DebugCmd.Flags().BoolVar(&debugBodies, "bodies", false, "Include unit file contents")
}

func validateDebug(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

type record struct {
	Name         string   `yaml:"name"`
	UnitFile     string   `yaml:"unit_file"`
	Cmdline      []string `yaml:"cmdline,omitempty"`
	LastExitCode string   `yaml:"last_exit_code,omitempty"`
	PID          string   `yaml:"pid,omitempty"`
	Schedule     string   `yaml:"schedule,omitempty"`
	Body         string   `yaml:"body,omitempty"`
}

func runDebug(cmd *cobra.Command, args []string) error {
	backend, err := cmdutil.NewBackend(cmdutil.Logger())
	if err != nil {
		return err
	}

	records, err := backend.QueryState(cmd.Context(), debugBodies)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(toRecords(records))
	if err != nil {
		return fmt.Errorf("failed to encode state; %w", err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "# %s, %d managed units\n%s", backend.Platform(), len(records), data)
	return nil
}

func toRecords(records []servicemanager.UnitRecord) []record {
	out := make([]record, 0, len(records))
	for _, r := range records {
		out = append(out, record{
			Name:         r.Name(),
			UnitFile:     r.UnitFile,
			Cmdline:      r.Cmdline,
			LastExitCode: r.LastExitCode,
			PID:          r.PID,
			Schedule:     r.Schedule,
			Body:         r.Body,
		})
	}
	return out
}
