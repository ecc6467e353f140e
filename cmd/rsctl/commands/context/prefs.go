package context

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/reportshare/cmd/rsctl/cmdutil"
	"github.com/marmos91/reportshare/internal/cli/credentials"
	"github.com/marmos91/reportshare/internal/cli/output"
)

var (
	prefsOutput string
	prefsColor  string
)

var prefsCmd = &cobra.Command{
	Use:   "prefs",
	Short: "Show or change output preferences",
	Long: `Show or change the preferences applied to every command.

The default output format is used whenever -o/--output is not given.
Color is one of auto (color on terminals), always or never.

Examples:
  # Show preferences
  rsctl context prefs

  # Print JSON by default and never use color
  rsctl context prefs --default-output json --color never`,
	Args: cobra.NoArgs,
	RunE: runPrefs,
}

func init() {
	prefsCmd.Flags().StringVar(&prefsOutput, "default-output", "", "Default output format (table|json|yaml)")
	prefsCmd.Flags().StringVar(&prefsColor, "color", "", "Color mode (auto|always|never)")
}

func runPrefs(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	prefs := store.GetPreferences()
	changed := false
	if cmd.Flags().Changed("default-output") {
		format, err := output.ParseFormat(prefsOutput)
		if err != nil {
			return err
		}
		prefs.DefaultOutput = format.String()
		changed = true
	}
	if cmd.Flags().Changed("color") {
		if err := validateColor(prefsColor); err != nil {
			return err
		}
		prefs.Color = prefsColor
		changed = true
	}

	if changed {
		if err := store.SetPreferences(prefs); err != nil {
			return fmt.Errorf("failed to save preferences: %w", err)
		}
		cmdutil.PrintSuccess("Preferences updated")
	}
	return printPrefs(prefs)
}

func validateColor(mode string) error {
	switch mode {
	case "auto", "always", "never":
		return nil
	}
	return fmt.Errorf("invalid color mode %q (valid: auto, always, never)", mode)
}

func printPrefs(prefs credentials.Preferences) error {
	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(os.Stdout, prefs)
	case output.FormatYAML:
		return output.PrintYAML(os.Stdout, prefs)
	}
	return output.SimpleTable(os.Stdout, [][2]string{
		{"Default output", cmdutil.EmptyOr(prefs.DefaultOutput, "table")},
		{"Color", cmdutil.EmptyOr(prefs.Color, "auto")},
	})
}
