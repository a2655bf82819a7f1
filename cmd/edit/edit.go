// Package edit implements the edit command.
package edit

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/dron/internal/cmdutil"
	"github.com/leefowlercu/dron/internal/fsutil"
	"github.com/leefowlercu/dron/internal/servicemanager"
)

// jobsTemplate seeds a new jobs file.
const jobsTemplate = `# dron jobs file
#
# jobs:
#   - name: backup-home
#     command: /home/user/scripts/backup /home/user
#     schedule: daily
#
#   - name: ping-site
#     command: [curl, -fsS, https://example.com]
#     schedule: "*:0/10"
#     on_failure: ["notify-send 'dron: %n failed'"]
#
#   - name: syncthing
#     command: syncthing serve --no-browser
#     schedule: always
jobs: []
`

// EditCmd edits the jobs file like crontab -e.
var EditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the jobs file and apply it (like 'crontab -e')",
	Long: "Edit the jobs file and apply it.\n\n" +
		"Opens a copy of the jobs file in $EDITOR. When the editor exits the copy is linted " +
		"and applied. If that fails you can go back to the editor and fix it; the real jobs " +
		"file is only overwritten once the apply succeeds.",
	Example: `  # Edit with the default editor
  dron edit

  # Edit with a specific editor
  EDITOR="code --wait" dron edit`,
	Args:    cobra.NoArgs,
	PreRunE: validateEdit,
	RunE:    runEdit,
}

func validateEdit(cmd *cobra.Command, args []string) error {
	// All errors after this are runtime errors
	cmd.SilenceUsage = true
	return nil
}

func runEdit(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	logger := cmdutil.Logger()

	path, err := cmdutil.JobsFile(nil)
	if err != nil {
		return fmt.Errorf("failed to resolve jobs file; %w", err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		create, err := cmdutil.Confirm(fmt.Sprintf("Jobs file %s doesn't exist. Create?", path), true)
		if err != nil {
			return err
		}
		if !create {
			return fmt.Errorf("jobs file %s does not exist", path)
		}
		if err := fsutil.WriteFileAtomic(path, []byte(jobsTemplate), 0644); err != nil {
			return fmt.Errorf("failed to create jobs file; %w", err)
		}
	}

	editor := cmdutil.FindEditor()
	if editor == "" {
		logger.Warn("no editor found, falling back to nano")
		editor = "nano"
	}

	tmpDir, err := os.MkdirTemp("", "dron-edit-")
	if err != nil {
		return fmt.Errorf("failed to create temp directory; %w", err)
	}
	defer os.RemoveAll(tmpDir)

	// keep the extension so the copy is parsed in the same format
	scratch := filepath.Join(tmpDir, filepath.Base(path))
	current, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read jobs file; %w", err)
	}
	if err := os.WriteFile(scratch, current, 0600); err != nil {
		return fmt.Errorf("failed to copy jobs file; %w", err)
	}
	original := fsutil.HashBytes(current)

	backend, err := cmdutil.NewBackend(logger)
	if err != nil {
		return err
	}

	for {
		if err := cmdutil.OpenEditor(ctx, editor, scratch); err != nil {
			return err
		}

		edited, err := fsutil.HashFile(scratch)
		if err != nil {
			return err
		}
		if edited == original {
			logger.Warn("no changes made", "jobs_file", path)
			return nil
		}

		applyErr := applyEdited(cmd, backend, scratch)
		if applyErr != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", applyErr)
			retry, err := cmdutil.Confirm("Got errors. Try again?", true)
			if err != nil {
				return err
			}
			if retry {
				continue
			}
			return applyErr
		}

		data, err := os.ReadFile(scratch)
		if err != nil {
			return err
		}
		// WriteFile follows a symlinked jobs file instead of replacing the link.
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("failed to write jobs file; %w", err)
		}
		fmt.Fprintf(out, "Wrote changes to %s. Don't forget to commit!\n", path)
		return nil
	}
}

func applyEdited(cmd *cobra.Command, backend servicemanager.Backend, path string) error {
	units, err := cmdutil.LintJobs(cmd.Context(), backend, path)
	if err != nil {
		return err
	}
	_, err = cmdutil.ApplyUnits(cmd.Context(), backend, units, cmdutil.ApplyOptions{
		Out:    cmd.OutOrStdout(),
		Logger: cmdutil.Logger(),
	})
	return err
}
