// Package list implements the list command for displaying declared jobs.
package list

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/dron/internal/cmdutil"
	"github.com/leefowlercu/dron/internal/jobs"
	"github.com/leefowlercu/dron/internal/servicemanager"
)

// Flag variables for the list command.
var (
	listVerbose bool
)

// ListCmd parses the jobs file and prints the declared jobs.
var ListCmd = &cobra.Command{
	Use:   "list [jobs-file]",
	Short: "Parse and print the jobs file",
	Long: "Parse the jobs file and print the declared jobs.\n\n" +
		"Use --verbose to also print the units each job compiles to on this host.",
	Example: `  # List declared jobs
  dron list

  # Show the generated unit files too
  dron list --verbose`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: validateList,
	RunE:    runList,
}

func init() {
	ListCmd.Flags().BoolVarP(&listVerbose, "verbose", "v", false,
		"Show the units generated for each job")
}

func validateList(cmd *cobra.Command, args []string) error {
	// All validation passed - errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	path, err := cmdutil.JobsFile(args)
	if err != nil {
		return fmt.Errorf("failed to resolve jobs file; %w", err)
	}

	list, err := jobs.Load(path)
	if err != nil {
		return err
	}

	if len(list) == 0 {
		fmt.Fprintf(out, "No jobs declared in %s.\n", path)
		return nil
	}

	if !listVerbose {
		printTable(out, list)
		return nil
	}

	backend, err := cmdutil.NewBackend(cmdutil.Logger())
	if err != nil {
		return err
	}
	for _, j := range list {
		if err := printVerboseJob(out, backend, j); err != nil {
			return err
		}
	}
	return nil
}

func printTable(out io.Writer, list []jobs.Job) {
	nameWidth, schedWidth := len("UNIT"), len("SCHEDULE")
	for _, j := range list {
		nameWidth = max(nameWidth, len(j.Name))
		schedWidth = max(schedWidth, len(scheduleText(j)))
	}

	row := fmt.Sprintf("%%-%ds  %%-%ds  %%s\n", nameWidth, schedWidth)
	fmt.Fprintf(out, row, "UNIT", "SCHEDULE", "COMMAND")
	fmt.Fprintf(out, row, strings.Repeat("-", nameWidth), strings.Repeat("-", schedWidth), strings.Repeat("-", 7))
	for _, j := range list {
		fmt.Fprintf(out, row, j.Name, scheduleText(j), j.Command.Escaped())
	}
}

func printVerboseJob(out io.Writer, backend servicemanager.Backend, j jobs.Job) error {
	fmt.Fprintf(out, "Job: %s\n", j.Name)
	fmt.Fprintf(out, "  Schedule: %s\n", scheduleText(j))
	fmt.Fprintf(out, "  Command:  %s\n", j.Command.Escaped())
	if len(j.OnFailure) > 0 {
		fmt.Fprintf(out, "  On failure:\n")
		for _, n := range j.OnFailure {
			fmt.Fprintf(out, "    - %s\n", n)
		}
	}

	units, err := backend.Generate(j)
	if err != nil {
		return fmt.Errorf("failed to generate units for %s; %w", j.Name, err)
	}
	for _, u := range units {
		fmt.Fprintf(out, "\n  # %s\n", u.File)
		for _, line := range strings.Split(strings.TrimRight(u.Body, "\n"), "\n") {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
	fmt.Fprintln(out)
	return nil
}

func scheduleText(j jobs.Job) string {
	return j.Schedule.String()
}
