package commands

import (
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"
)

// completionScripts maps each supported shell to its cobra generator.
var completionScripts = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":        func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
}

var completionCmd = &cobra.Command{
	Use:   "completion <shell>",
	Short: "Print a shell completion script",
	Long: `Print the completion script for bash, zsh, fish or powershell.

Examples:
  # Bash, current session
  source <(rsctl completion bash)

  # Zsh, every session (compinit must be enabled)
  rsctl completion zsh > "${fpath[1]}/_rsctl"

  # Fish
  rsctl completion fish > ~/.config/fish/completions/rsctl.fish

  # PowerShell, current session
  rsctl completion powershell | Out-String | Invoke-Expression`,
	DisableFlagsInUseLine: true,
	ValidArgs:             slices.Sorted(maps.Keys(completionScripts)),
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		return completionScripts[args[0]](cmd.Root(), cmd.OutOrStdout())
	},
}
