package config

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/reportshare/cmd/rsctl/cmdutil"
	"github.com/marmos91/reportshare/internal/cli/output"
)

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings",
	Long: `Print the settings after defaults, the settings file and environment
overrides are merged. Table output prints YAML.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := cmdutil.LoadConfig()
		if err != nil {
			return err
		}

		format, err := cmdutil.GetOutputFormatParsed()
		if err != nil {
			return err
		}
		if format == output.FormatJSON {
			return output.PrintJSON(os.Stdout, cfg)
		}
		return output.PrintYAML(os.Stdout, cfg)
	},
}
