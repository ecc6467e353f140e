package share

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/reportshare/cmd/rsctl/cmdutil"
	"github.com/marmos91/reportshare/pkg/share"
)

var allWith string

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Share every report you own",
	Long: `Grant a recipient view access to all of your reports.

The grant covers the reports you own at this moment. Reports uploaded later
are not included; run the command again to extend the grant.

Examples:
  # Share everything with an email address
  rsctl share all --with bob@x.com`,
	RunE: runAll,
}

func init() {
	allCmd.Flags().StringVar(&allWith, "with", "", "Recipient user id or email")
}

func runAll(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, sess, err := cmdutil.NewSignedInEnv(ctx, cmdutil.EnvOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	recipient, err := recipientOrPrompt(allWith)
	if err != nil {
		return cmdutil.HandleAbort(err)
	}

	grant, err := env.Runtime.Shares().ShareAllReports(ctx, share.ShareAllInput{
		OwnerID:    sess.UserID,
		SharedWith: recipient,
	})
	if err != nil {
		return fmt.Errorf("failed to share reports: %w", err)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Shared %s with %s", ReportLabel(grant), RecipientLabel(grant)))
	return cmdutil.PrintResource(os.Stdout, grant,
		GrantList{Grants: []share.Grant{*grant}, Direction: SharedByMe, Now: time.Now()})
}
