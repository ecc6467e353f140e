package context

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/reportshare/cmd/rsctl/cmdutil"
	"github.com/marmos91/reportshare/internal/cli/credentials"
)

var deleteForce bool

var deleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a context and its session",
	Long: `Delete a saved backend together with its stored session.

The backend is not told; use "rsctl logout" first to end the session there.

Examples:
  # Delete with confirmation
  rsctl context delete localhost

  # Delete without confirmation
  rsctl context delete localhost --force`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation")
}

func runDelete(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	name := args[0]
	if _, err := store.GetContext(name); err != nil {
		if errors.Is(err, credentials.ErrContextNotFound) {
			return fmt.Errorf("context %q not found", name)
		}
		return err
	}

	return cmdutil.RunWithConfirmation(
		fmt.Sprintf("Delete context %q", name),
		fmt.Sprintf("Context %q deleted", name),
		deleteForce,
		func() error { return store.DeleteContext(name) },
	)
}
