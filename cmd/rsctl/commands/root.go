// Package commands implements the CLI commands for rsctl.
package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/marmos91/reportshare/cmd/rsctl/cmdutil"
	configcmd "github.com/marmos91/reportshare/cmd/rsctl/commands/config"
	contextcmd "github.com/marmos91/reportshare/cmd/rsctl/commands/context"
	notifycmd "github.com/marmos91/reportshare/cmd/rsctl/commands/notifications"
	reportcmd "github.com/marmos91/reportshare/cmd/rsctl/commands/report"
	sharecmd "github.com/marmos91/reportshare/cmd/rsctl/commands/share"
	"github.com/marmos91/reportshare/internal/cli/credentials"
)

var (
	// Version information injected at build time.
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "rsctl",
	Short: "Report sharing client",
	Long: `rsctl signs in to a report-sharing backend and manages who can see
your reports.

Share a single report or everything you own with another user or an email
address, revoke access, list grants in both directions, and watch share
notifications as they arrive.

Use "rsctl [command] --help" for more information about a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Sync flags to cmdutil.Flags for subcommands
		cmdutil.Flags.ConfigFile, _ = cmd.Flags().GetString("config")
		cmdutil.Flags.ServerURL, _ = cmd.Flags().GetString("server")
		cmdutil.Flags.Output, _ = cmd.Flags().GetString("output")
		cmdutil.Flags.NoColor, _ = cmd.Flags().GetBool("no-color")
		cmdutil.Flags.Verbose, _ = cmd.Flags().GetBool("verbose")
		cmdutil.Flags.ForceColor = false
		if store, err := credentials.NewStore(); err == nil {
			cmdutil.ApplyPreferences(store.GetPreferences(), cmd.Flags().Changed("output"))
		}
		cmdutil.Version = Version
		cmdutil.UserAgent = "rsctl/" + Version

		if _, err := cmdutil.GetOutputFormatParsed(); err != nil {
			return err
		}
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// Commands see a context that is cancelled on SIGINT or SIGTERM.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// GetRootCmd returns the root command for testing purposes.
func GetRootCmd() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Settings file (default: $XDG_CONFIG_HOME/rsctl/settings.yaml)")
	rootCmd.PersistentFlags().String("server", "", "Backend REST root (overrides stored context and settings)")
	rootCmd.PersistentFlags().StringP("output", "o", "table", "Output format (table|json|yaml)")
	rootCmd.PersistentFlags().Bool("no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(loginCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reportcmd.Cmd)
	rootCmd.AddCommand(sharecmd.Cmd)
	rootCmd.AddCommand(notifycmd.Cmd)
	rootCmd.AddCommand(configcmd.Cmd)
	rootCmd.AddCommand(contextcmd.Cmd)
	rootCmd.AddCommand(completionCmd)

	// Hide the default completion command (we provide our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
