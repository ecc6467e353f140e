package report

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/reportshare/cmd/rsctl/cmdutil"
	"github.com/marmos91/reportshare/pkg/apiclient"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List your reports",
	Long: `List the reports owned by the signed-in user.

Examples:
  # List as table
  rsctl report list

  # List as JSON (raw backend payloads)
  rsctl report list -o json`,
	RunE: runList,
}

// ReportList is a list of reports for table rendering.
type ReportList []apiclient.Report

// Headers implements TableRenderer.
func (rl ReportList) Headers() []string {
	return []string{"ID", "NAME"}
}

// Rows implements TableRenderer.
func (rl ReportList) Rows() [][]string {
	rows := make([][]string, 0, len(rl))
	for _, r := range rl {
		rows = append(rows, []string{r.ID, Name(r)})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	env, sess, err := cmdutil.NewSignedInEnv(cmd.Context(), cmdutil.EnvOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = env.Close() }()

	reports, err := env.Runtime.Client().ListReports(cmd.Context(), sess.UserID)
	if err != nil {
		return fmt.Errorf("failed to list reports: %w", err)
	}

	rows := ReportList(reports)
	return cmdutil.PrintOutput(os.Stdout, rows, len(rows) == 0, "No reports found.", rows)
}
