package share

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/marmos91/reportshare/cmd/rsctl/cmdutil"
	reportcmd "github.com/marmos91/reportshare/cmd/rsctl/commands/report"
	"github.com/marmos91/reportshare/internal/cli/prompt"
	"github.com/marmos91/reportshare/pkg/apiclient"
	"github.com/marmos91/reportshare/pkg/share"
)

var (
	reportIDs  string
	reportWith string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Share one or more reports",
	Long: `Grant a recipient view access to specific reports.

Without --report you pick one of your reports interactively. Sharing a
report that is already shared with the same recipient keeps the existing
grant.

Examples:
  # Share a report by id
  rsctl share report --report R1 --with bob@x.com

  # Share several reports with a user id
  rsctl share report --report R1,R2 --with bob

  # Pick the report interactively
  rsctl share report --with bob@x.com`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportIDs, "report", "", "Report id(s), comma-separated")
	reportCmd.Flags().StringVar(&reportWith, "with", "", "Recipient user id or email")
}

func runReport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	env, sess, err := cmdutil.NewSignedInEnv(ctx, cmdutil.EnvOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	recipient, err := recipientOrPrompt(reportWith)
	if err != nil {
		return cmdutil.HandleAbort(err)
	}

	ids := cmdutil.ParseCommaSeparatedList(reportIDs)
	if len(ids) == 0 {
		id, err := pickReport(ctx, env.Runtime.Client(), sess.UserID)
		if err != nil {
			return cmdutil.HandleAbort(err)
		}
		if id == "" {
			return nil
		}
		ids = []string{id}
	}

	grants := make([]share.Grant, 0, len(ids))
	for _, id := range ids {
		grant, err := env.Runtime.Shares().ShareReport(ctx, share.ShareReportInput{
			OwnerID:    sess.UserID,
			SharedWith: recipient,
			ReportID:   id,
		})
		if err != nil {
			return fmt.Errorf("failed to share report %s: %w", id, err)
		}
		grants = append(grants, *grant)
	}

	cmdutil.PrintSuccess(fmt.Sprintf("Shared %s with %s", describeReports(ids), RecipientLabel(&grants[0])))
	return cmdutil.PrintResource(os.Stdout, grants, GrantList{Grants: grants, Direction: SharedByMe, Now: time.Now()})
}

func describeReports(ids []string) string {
	if len(ids) == 1 {
		return "report " + ids[0]
	}
	return fmt.Sprintf("%d reports", len(ids))
}

// recipientOrPrompt returns the recipient flag or asks for one.
func recipientOrPrompt(flag string) (string, error) {
	if flag != "" {
		if _, err := share.ParseRecipient(flag); err != nil {
			return "", err
		}
		return flag, nil
	}
	return prompt.InputWithValidation("Share with (user id or email)", func(s string) error {
		_, err := share.ParseRecipient(s)
		return err
	})
}

// pickReport lets the user choose one of their reports. An empty id means
// there was nothing to choose from.
func pickReport(ctx context.Context, client *apiclient.Client, userID string) (string, error) {
	reports, err := client.ListReports(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("failed to list reports: %w", err)
	}
	if len(reports) == 0 {
		fmt.Println("No reports to share.")
		return "", nil
	}

	options := make([]prompt.SelectOption, 0, len(reports))
	for _, r := range reports {
		options = append(options, prompt.SelectOption{Label: reportcmd.Name(r), Value: r.ID, Description: "id " + r.ID})
	}
	return prompt.Select("Report", options)
}
