// Package report implements the report commands for rsctl.
package report

import (
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/marmos91/reportshare/pkg/apiclient"
)

// Cmd is the parent command for reports.
var Cmd = &cobra.Command{
	Use:   "report",
	Short: "Report commands",
	Long: `Inspect the reports you own.

Examples:
  # List your reports
  rsctl report list`,
}

func init() {
	Cmd.AddCommand(listCmd)
}

// Name returns a human-readable label for a report: its name or file name
// when the backend sends one, otherwise its id.
func Name(r apiclient.Report) string {
	var meta struct {
		Name     string `json:"name"`
		FileName string `json:"fileName"`
	}
	if len(r.Raw) > 0 {
		_ = json.Unmarshal(r.Raw, &meta)
	}
	g := apiclient.ShareGrant{Name: meta.Name, FileName: meta.FileName}
	if g.Name == "" && g.FileName == "" {
		return r.ID
	}
	return strings.TrimSpace(g.DisplayName())
}
