package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/reportshare/cmd/rsctl/cmdutil"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Sign out and forget the session token",
	Long: `Sign out of the current context.

The backend is told about the logout on a best-effort basis; the local token
is removed either way. The server URL and user id are kept so the next
"rsctl login" needs only the password.`,
	RunE: runLogout,
}

func runLogout(cmd *cobra.Command, args []string) error {
	env, err := cmdutil.NewEnv(cmdutil.EnvOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	sess, err := env.Runtime.Tokens().Load()
	if err != nil {
		return err
	}
	if sess == nil {
		fmt.Println("Not logged in.")
		return nil
	}

	if err := env.Runtime.Logout(cmd.Context()); err != nil {
		return fmt.Errorf("logout failed: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Logged out %s", sess.UserID))
	return nil
}
