package context

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/marmos91/reportshare/cmd/rsctl/cmdutil"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List contexts",
	Args:    cobra.NoArgs,
	RunE:    runList,
}

// ContextItem is one row of "rsctl context list".
type ContextItem struct {
	Name      string `json:"name" yaml:"name"`
	Current   bool   `json:"current" yaml:"current"`
	ServerURL string `json:"server_url" yaml:"server_url"`
	UserID    string `json:"user_id,omitempty" yaml:"user_id,omitempty"`
	Session   string `json:"session" yaml:"session"`
}

// ContextList renders contexts as a table.
type ContextList []ContextItem

func (l ContextList) Headers() []string {
	return []string{"CURRENT", "NAME", "SERVER", "USER", "SESSION"}
}

func (l ContextList) Rows() [][]string {
	rows := make([][]string, 0, len(l))
	for _, c := range l {
		marker := ""
		if c.Current {
			marker = "*"
		}
		rows = append(rows, []string{marker, c.Name, c.ServerURL, cmdutil.EmptyOr(c.UserID, "-"), c.Session})
	}
	return rows
}

func runList(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}

	current := store.GetCurrentContextName()
	var items ContextList
	for _, name := range store.ListContexts() {
		c, err := store.GetContext(name)
		if err != nil {
			return err
		}
		items = append(items, ContextItem{
			Name:      name,
			Current:   name == current,
			ServerURL: c.ServerURL,
			UserID:    c.UserID,
			Session:   sessionState(c),
		})
	}

	return cmdutil.PrintOutput(os.Stdout, items, len(items) == 0,
		"No contexts configured. Run 'rsctl login' to create one.", items)
}
