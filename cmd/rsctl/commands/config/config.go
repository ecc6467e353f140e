// Package config implements the settings file commands for rsctl.
package config

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for settings management.
var Cmd = &cobra.Command{
	Use:   "config",
	Short: "Settings file management",
	Long: `Create, inspect and validate the rsctl settings file.

The settings file lives at $XDG_CONFIG_HOME/rsctl/settings.yaml unless
--config points elsewhere. Every key can be overridden with an environment
variable such as REPORTSHARE_SERVER_BASE_URL (or REPORTSHARE_BASE_URL).`,
}

func init() {
	Cmd.AddCommand(initCmd)
	Cmd.AddCommand(showCmd)
	Cmd.AddCommand(validateCmd)
	Cmd.AddCommand(schemaCmd)
}
