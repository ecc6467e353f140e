// Package cmdutil provides shared utilities for rsctl commands.
package cmdutil

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/marmos91/reportshare/internal/cli/credentials"
	"github.com/marmos91/reportshare/internal/cli/output"
	"github.com/marmos91/reportshare/internal/cli/prompt"
	"github.com/marmos91/reportshare/internal/logger"
	"github.com/marmos91/reportshare/pkg/config"
)

// Flags stores global flag values accessible by subcommands.
var Flags = &GlobalFlags{}

// GlobalFlags holds the global flag values.
type GlobalFlags struct {
	ConfigFile string
	ServerURL  string
	Output     string
	NoColor    bool
	ForceColor bool
	Verbose    bool
}

// Version is the build version. The root command sets it.
var Version = "dev"

// UserAgent is sent with every API call. The root command sets it from the
// build version.
var UserAgent = "rsctl"

var loaded *config.Config

// LoadConfig loads the settings file named by --config (or the default path),
// applies --verbose and initializes the logger. The result is cached for the
// rest of the process.
func LoadConfig() (*config.Config, error) {
	if loaded != nil {
		return loaded, nil
	}

	cfg, err := config.Load(Flags.ConfigFile)
	if err != nil {
		return nil, err
	}
	if IsVerbose() {
		cfg.Logging.Level = "DEBUG"
	}

	if err := logger.Init(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	loaded = cfg
	return cfg, nil
}

// GetOutputFormatParsed returns the parsed output format.
func GetOutputFormatParsed() (output.Format, error) {
	return output.ParseFormat(Flags.Output)
}

// IsColorDisabled returns whether color output is disabled.
func IsColorDisabled() bool {
	if Flags.NoColor {
		return true
	}
	return !Flags.ForceColor && !output.ColorSupported(os.Stdout)
}

// ApplyPreferences fills global flags the user did not pass from the stored
// preferences. outputSet reports whether -o was given explicitly.
func ApplyPreferences(prefs credentials.Preferences, outputSet bool) {
	if !outputSet && prefs.DefaultOutput != "" {
		Flags.Output = prefs.DefaultOutput
	}
	switch prefs.Color {
	case "never":
		Flags.NoColor = true
	case "always":
		Flags.ForceColor = true
	}
}

// IsVerbose returns whether verbose output is enabled.
func IsVerbose() bool {
	return Flags.Verbose
}

// Printer returns a printer for stdout honouring the global flags.
func Printer() (*output.Printer, error) {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return nil, err
	}
	return output.NewPrinter(os.Stdout, format, !IsColorDisabled()), nil
}

// render writes data as JSON or YAML, or calls table for table output.
func render(w io.Writer, data any, table func() error) error {
	format, err := GetOutputFormatParsed()
	if err != nil {
		return err
	}
	switch format {
	case output.FormatJSON:
		return output.PrintJSON(w, data)
	case output.FormatYAML:
		return output.PrintYAML(w, data)
	default:
		return table()
	}
}

// PrintOutput writes a listing. Table output shows emptyMsg instead of an
// empty table; JSON and YAML always print data, so scripts see "[]".
func PrintOutput(w io.Writer, data any, isEmpty bool, emptyMsg string, rows output.TableRenderer) error {
	return render(w, data, func() error {
		if isEmpty {
			_, err := fmt.Fprintln(w, emptyMsg)
			return err
		}
		return output.PrintTable(w, rows)
	})
}

// PrintResource writes one result, as rows in table output.
func PrintResource(w io.Writer, data any, rows output.TableRenderer) error {
	return render(w, data, func() error {
		return output.PrintTable(w, rows)
	})
}

// PrintResourceWithSuccess writes data for JSON and YAML, and only
// successMsg for table output.
func PrintResourceWithSuccess(w io.Writer, data any, successMsg string) error {
	return render(w, data, func() error {
		PrintSuccess(successMsg)
		return nil
	})
}

// PrintSuccess prints a status line in table output. Machine formats stay
// clean.
func PrintSuccess(msg string) {
	PrintSuccessWithInfo(msg)
}

// PrintSuccessWithInfo prints a status line followed by plain info lines, in
// table output only.
func PrintSuccessWithInfo(msg string, infoLines ...string) {
	format, err := GetOutputFormatParsed()
	if err != nil || format != output.FormatTable {
		return
	}
	printer := output.NewPrinter(os.Stdout, format, !IsColorDisabled())
	printer.Success(msg)
	for _, line := range infoLines {
		printer.Printf("%s\n", line)
	}
}

// RunWithConfirmation prompts for confirmation (unless force is true) and
// runs fn. successMsg is printed when fn succeeds.
func RunWithConfirmation(question, successMsg string, force bool, fn func() error) error {
	confirmed, err := prompt.ConfirmWithForce(question, force)
	if err != nil {
		return HandleAbort(err)
	}
	if !confirmed {
		fmt.Println("Aborted.")
		return nil
	}

	if err := fn(); err != nil {
		return err
	}

	PrintSuccess(successMsg)
	return nil
}

// ParseCommaSeparatedList parses a comma-separated string into a slice of trimmed strings.
func ParseCommaSeparatedList(s string) []string {
	if s == "" {
		return nil
	}
	var result []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			result = append(result, item)
		}
	}
	return result
}

// BoolToYesNo converts a boolean to "yes" or "no" string.
func BoolToYesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

// EmptyOr returns the value if not empty, otherwise returns the fallback.
// Useful for table display where empty fields should show "-".
func EmptyOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}

// HandleAbort checks if error is an abort (Ctrl+C) and prints a message.
// Returns nil for abort (user cancelled), otherwise returns the original error.
func HandleAbort(err error) error {
	if prompt.IsAborted(err) {
		fmt.Println("\nAborted.")
		return nil
	}
	return err
}
