package context

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/reportshare/cmd/rsctl/cmdutil"
	"github.com/marmos91/reportshare/internal/cli/credentials"
	"github.com/marmos91/reportshare/internal/cli/output"
)

var currentCmd = &cobra.Command{
	Use:   "current",
	Short: "Show the current context",
	Args:  cobra.NoArgs,
	RunE:  runCurrent,
}

func runCurrent(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	c, err := store.GetCurrentContext()
	if errors.Is(err, credentials.ErrNoCurrentContext) {
		fmt.Println("No current context. Run 'rsctl login' first.")
		return nil
	}
	if err != nil {
		return err
	}

	item := ContextItem{
		Name:      store.GetCurrentContextName(),
		Current:   true,
		ServerURL: c.ServerURL,
		UserID:    c.UserID,
		Session:   sessionState(c),
	}
	format, err := cmdutil.GetOutputFormatParsed()
	if err != nil {
		return err
	}
	if format != output.FormatTable {
		return cmdutil.PrintResource(os.Stdout, item, ContextList{item})
	}
	return output.SimpleTable(os.Stdout, [][2]string{
		{"Name", item.Name},
		{"Server", item.ServerURL},
		{"User", cmdutil.EmptyOr(item.UserID, "-")},
		{"Session", item.Session},
	})
}
