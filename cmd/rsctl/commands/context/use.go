package context

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/reportshare/cmd/rsctl/cmdutil"
	"github.com/marmos91/reportshare/internal/cli/credentials"
)

var useCmd = &cobra.Command{
	Use:   "use <name>",
	Short: "Switch to a different context",
	Long: `Make another saved backend the current one.

Examples:
  # Switch to the production backend
  rsctl context use reports-example-com`,
	Args: cobra.ExactArgs(1),
	RunE: runUse,
}

func runUse(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	name := args[0]
	if err := store.UseContext(name); err != nil {
		if errors.Is(err, credentials.ErrContextNotFound) {
			return fmt.Errorf("context %q not found (see 'rsctl context list')", name)
		}
		return err
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Switched to context %q", name))
	return nil
}
