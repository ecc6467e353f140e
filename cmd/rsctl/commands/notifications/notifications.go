// Package notifications implements the notification commands for rsctl.
package notifications

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for notifications.
var Cmd = &cobra.Command{
	Use:     "notifications",
	Aliases: []string{"notify"},
	Short:   "Share notifications",
	Long: `Follow share notifications pushed by the backend.

Notifications tell you when someone shares a report with you or revokes a
share. They are informational: run "rsctl share list --with-me" for the
authoritative list.

Examples:
  # Stream notifications until interrupted
  rsctl notifications watch`,
}

func init() {
	Cmd.AddCommand(watchCmd)
}
