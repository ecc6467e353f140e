// Package context implements context management subcommands for rsctl.
package context

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/reportshare/internal/cli/credentials"
)

// Cmd is the context subcommand.
var Cmd = &cobra.Command{
	Use:   "context",
	Short: "Manage backend contexts",
	Long: `Manage saved backends and the sessions obtained against them.

"rsctl login" creates a context per backend (for example one for a local
development server and one for production). Each context keeps its own
session, so switching contexts switches the signed-in user.

Subcommands:
  list     List all configured contexts
  use      Switch to a different context
  current  Show the current context
  delete   Delete a context
  prefs    Show or change output preferences`,
}

func init() {
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(useCmd)
	Cmd.AddCommand(currentCmd)
	Cmd.AddCommand(deleteCmd)
	Cmd.AddCommand(prefsCmd)
}

func openStore() (*credentials.Store, error) {
	store, err := credentials.NewStore()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize credential store: %w", err)
	}
	return store, nil
}

// sessionState summarizes the session held by a context.
func sessionState(c *credentials.Context) string {
	switch {
	case !c.HasToken():
		return "signed out"
	case c.IsExpired():
		return "expired"
	default:
		return "signed in"
	}
}
