// Package config provides the config parent command and subcommands.
package config

import (
	"github.com/spf13/cobra"

	"github.com/leefowlercu/dron/cmd/config/subcommands"
)

// ConfigCmd is the parent command for all config-related subcommands.
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage dron configuration",
	Long: "Manage dron configuration.\n\n" +
		"The config command allows you to view, edit, validate and reset the dron " +
		"configuration. Configuration is stored in a YAML file located at " +
		"~/.config/dron/config.yaml by default. Every key can be overridden with a " +
		"DRON_ environment variable, e.g. DRON_UNITS_DIR or DRON_MONITOR_LISTEN.",
}

func init() {
	ConfigCmd.AddCommand(subcommands.ShowCmd)
	ConfigCmd.AddCommand(subcommands.EditCmd)
	ConfigCmd.AddCommand(subcommands.ResetCmd)
	ConfigCmd.AddCommand(subcommands.ValidateCmd)
}
