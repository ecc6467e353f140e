package share

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/marmos91/reportshare/cmd/rsctl/cmdutil"
	"github.com/marmos91/reportshare/pkg/share"
)

var (
	revokeReport string
	revokeWith   string
	revokeForce  bool
)

var revokeCmd = &cobra.Command{
	Use:   "revoke",
	Short: "Revoke a grant",
	Long: `Revoke a recipient's access to one report, or to all reports when
--report is omitted.

Revoking a grant that does not exist or was already revoked fails with a
not-found error.

Examples:
  # Revoke a single-report grant
  rsctl share revoke --report R1 --with bob@x.com

  # Revoke the share-all grant without confirmation
  rsctl share revoke --with bob --force`,
	RunE: runRevoke,
}

func init() {
	revokeCmd.Flags().StringVar(&revokeReport, "report", "", "Report id (omit for the share-all grant)")
	revokeCmd.Flags().StringVar(&revokeWith, "with", "", "Recipient user id or email")
	revokeCmd.Flags().BoolVarP(&revokeForce, "force", "f", false, "Skip confirmation")
	_ = revokeCmd.MarkFlagRequired("with")
}

func runRevoke(cmd *cobra.Command, args []string) error {
	recipient, err := share.ParseRecipient(revokeWith)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	env, sess, err := cmdutil.NewSignedInEnv(ctx, cmdutil.EnvOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	target := "all reports"
	if revokeReport != "" {
		target = "report " + revokeReport
	}

	return cmdutil.RunWithConfirmation(
		fmt.Sprintf("Revoke %s's access to %s?", recipient, target),
		fmt.Sprintf("Revoked %s's access to %s", recipient, target),
		revokeForce,
		func() error {
			return env.Runtime.Shares().RevokeShare(ctx, share.RevokeInput{
				OwnerID:   sess.UserID,
				ReportID:  revokeReport,
				Recipient: recipient,
			})
		},
	)
}
