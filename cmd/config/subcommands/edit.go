package subcommands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/leefowlercu/dron/internal/cmdutil"
	"github.com/leefowlercu/dron/internal/config"
)

// EditCmd opens the configuration file in an editor.
var EditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit the configuration file in your default editor",
	Long: "Edit the configuration file in your default editor.\n\n" +
		"Opens the dron configuration file in the editor specified by " +
		"the EDITOR environment variable. If EDITOR is not set, attempts to " +
		"use common editors (vim, vi, nano) in order. A missing file is created " +
		"with the default values first. The result is validated after the editor exits.",
	Example: `  # Edit configuration with default editor
  dron config edit

  # Edit with a specific editor
  EDITOR="code --wait" dron config edit`,
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
	configPath := config.GetConfigPath()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		if err := config.Write(config.LoadWithDefaults(), configPath); err != nil {
			return err
		}
	}

	editor := cmdutil.FindEditor()
	if editor == "" {
		return fmt.Errorf("no editor found; set EDITOR environment variable")
	}

	if err := cmdutil.OpenEditor(cmd.Context(), editor, configPath); err != nil {
		return err
	}

	if _, err := config.LoadFromPath(configPath); err != nil {
		return fmt.Errorf("configuration saved but invalid; %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration saved: %s\n", filepath.Clean(configPath))
	return nil
}
