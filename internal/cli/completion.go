package cli

import (
	"github.com/spf13/cobra"

	"github.com/mrz1836/connector/internal/chain"
)

// completionCmd generates shell completion scripts.
//
//nolint:gochecknoglobals // Cobra CLI pattern requires package-level command variables
var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion scripts for connector.

To load completions:

Bash:
  $ source <(connector completion bash)

  # To load completions for each session, execute once:
  # Linux:
  $ connector completion bash > /etc/bash_completion.d/connector
  # macOS:
  $ connector completion bash > $(brew --prefix)/etc/bash_completion.d/connector

Zsh:
  # If shell completion is not already enabled in your environment,
  # you will need to enable it. You can execute the following once:
  $ echo "autoload -U compinit; compinit" >> ~/.zshrc

  # To load completions for each session, execute once:
  $ connector completion zsh > "${fpath[1]}/_connector"

  # You will need to start a new shell for this setup to take effect.

Fish:
  $ connector completion fish | source

  # To load completions for each session, execute once:
  $ connector completion fish > ~/.config/fish/completions/connector.fish

PowerShell:
  PS> connector completion powershell | Out-String | Invoke-Expression

  # To load completions for every new session, run:
  PS> connector completion powershell > connector.ps1
  # and source this file from your PowerShell profile.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(cmd.OutOrStdout())
		case "zsh":
			return cmd.Root().GenZshCompletion(cmd.OutOrStdout())
		case "fish":
			return cmd.Root().GenFishCompletion(cmd.OutOrStdout(), true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(cmd.OutOrStdout())
		}
		return nil
	},
}

//nolint:gochecknoinits // Cobra CLI pattern requires init for command registration
func init() {
	rootCmd.AddCommand(completionCmd)

	submitCmd.ValidArgsFunction = completeSubmit
	for _, c := range []*cobra.Command{broadcastCmd, blockCmd, txCmd, readCmd, contractAddressCmd} {
		c.ValidArgsFunction = completeChainArg
	}
}

// completeSubmit completes the asset, chain and operation arguments.
func completeSubmit(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	switch len(args) {
	case 0:
		return names(chain.AllAssets()), cobra.ShellCompDirectiveNoFileComp
	case 1:
		return names(chain.AllChains()), cobra.ShellCompDirectiveNoFileComp
	case 2:
		return names(chain.AllOperations()), cobra.ShellCompDirectiveNoFileComp
	default:
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
}

// completeChainArg completes a leading chain argument.
func completeChainArg(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		return names(chain.AllChains()), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

func names[T ~string](values []T) []string {
	result := make([]string, len(values))
	for i, v := range values {
		result[i] = string(v)
	}
	return result
}
