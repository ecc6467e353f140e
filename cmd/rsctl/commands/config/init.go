package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/reportshare/cmd/rsctl/cmdutil"
	"github.com/marmos91/reportshare/pkg/config"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default settings file",
	Long: `Write a settings file populated with the defaults.

Examples:
  # Create the default settings file
  rsctl config init

  # Overwrite an existing file
  rsctl config init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		var (
			written string
			err     error
		)
		if path := cmdutil.Flags.ConfigFile; path != "" {
			written, err = config.InitConfigAt(path, initForce)
		} else {
			written, err = config.InitConfig(initForce)
		}
		if err != nil {
			return err
		}
		cmdutil.PrintSuccess(fmt.Sprintf("Settings written to %s", written))
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing file")
}
