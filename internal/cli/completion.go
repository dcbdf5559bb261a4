package cli

import (
	"github.com/spf13/cobra"
)

// completionCommand generates shell completion scripts for cargo-lpatch.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion <bash|zsh|fish|powershell>",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for cargo-lpatch.

Completions apply to the cargo-lpatch binary. Cargo forwards "cargo lpatch"
to it but does not complete subcommand flags itself.

  bash:        source <(cargo-lpatch completion bash)
  zsh:         cargo-lpatch completion zsh > "${fpath[1]}/_cargo-lpatch"
  fish:        cargo-lpatch completion fish > ~/.config/fish/completions/cargo-lpatch.fish
  powershell:  cargo-lpatch completion powershell | Out-String | Invoke-Expression`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			root := cmd.Root()
			switch args[0] {
			case "bash":
				return root.GenBashCompletionV2(stdout, true)
			case "zsh":
				return root.GenZshCompletion(stdout)
			case "fish":
				return root.GenFishCompletion(stdout, true)
			default:
				return root.GenPowerShellCompletionWithDesc(stdout)
			}
		},
	}
}
