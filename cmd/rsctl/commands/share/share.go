// Package share implements the share management commands for rsctl.
package share

import (
	"github.com/spf13/cobra"
)

// Cmd is the parent command for share management.
var Cmd = &cobra.Command{
	Use:   "share",
	Short: "Share management",
	Long: `Grant, revoke and list view access to your reports.

A recipient is either a user id or an email address. Sharing with an email
address that has no account yet sends an invitation; the grant shows up as
"invite sent" until the recipient signs up.

Examples:
  # Share one report
  rsctl share report --report R1 --with bob@x.com

  # Share every report you own right now
  rsctl share all --with bob@x.com

  # Revoke a single-report grant
  rsctl share revoke --report R1 --with bob@x.com

  # List what you shared and what was shared with you
  rsctl share list
  rsctl share list --with-me`,
}

func init() {
	Cmd.AddCommand(reportCmd)
	Cmd.AddCommand(allCmd)
	Cmd.AddCommand(revokeCmd)
	Cmd.AddCommand(listCmd)
}
