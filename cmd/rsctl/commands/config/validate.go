package config

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/reportshare/cmd/rsctl/cmdutil"
	"github.com/marmos91/reportshare/pkg/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the settings file",
	Long: `Load the settings file and report syntax errors and invalid values.

Examples:
  # Validate the default file
  rsctl config validate

  # Validate a specific file
  rsctl config validate --config ./settings.yaml`,
	RunE: runValidate,
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := cmdutil.LoadConfig()
	if err != nil {
		return err
	}

	displayPath := cmdutil.Flags.ConfigFile
	if displayPath == "" {
		displayPath = config.GetDefaultConfigPath()
	}

	pushURL, err := cfg.PushURL()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "Configuration file: %s\n", displayPath)
	_, _ = fmt.Fprintln(out, "Validation: OK")

	var warnings []string
	if cfg.Session.Backend == "memory" {
		warnings = append(warnings, "session.backend is memory - every command will need a fresh login")
	}
	if cfg.Telemetry.Profiling.Enabled && !cfg.Telemetry.Enabled {
		warnings = append(warnings, "profiling is enabled without tracing")
	}
	if len(warnings) > 0 {
		_, _ = fmt.Fprintln(out, "\nWarnings:")
		for _, w := range warnings {
			_, _ = fmt.Fprintf(out, "  - %s\n", w)
		}
	}

	_, _ = fmt.Fprintf(out, "\nConfiguration summary:\n")
	_, _ = fmt.Fprintf(out, "  API:           %s\n", cfg.APIURL())
	_, _ = fmt.Fprintf(out, "  Push:          %s (enabled: %s)\n", pushURL, cmdutil.BoolToYesNo(cfg.Push.Enabled))
	_, _ = fmt.Fprintf(out, "  Timeout:       %s\n", cfg.Server.Timeout)
	_, _ = fmt.Fprintf(out, "  Session store: %s\n", cfg.Session.Backend)
	_, _ = fmt.Fprintf(out, "  Log level:     %s\n", cfg.Logging.Level)
	return nil
}
