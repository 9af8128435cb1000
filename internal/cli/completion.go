package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/modman/pkg/integrations/modrinth"
	"github.com/matzehuels/modman/pkg/integrity"
)

// Values offered for flags with a fixed vocabulary.
var (
	searchIndexes = []string{
		modrinth.IndexRelevance,
		modrinth.IndexDownloads,
		modrinth.IndexFollows,
		modrinth.IndexNewest,
		modrinth.IndexUpdated,
	}
	lookupAlgorithms = []string{string(integrity.SHA1), string(integrity.SHA512)}
	knownLoaders     = []string{"fabric", "forge", "neoforge", "quilt"}
)

// completionCommand creates the completion command for generating shell completions.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate shell completion scripts",
		Long: `Generate shell completion scripts for modman.

Bash:
  $ source <(modman completion bash)

Zsh:
  $ modman completion zsh > "${fpath[1]}/_modman"

Fish:
  $ modman completion fish > ~/.config/fish/completions/modman.fish

PowerShell:
  PS> modman completion powershell | Out-String | Invoke-Expression
`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(out)
			case "zsh":
				return cmd.Root().GenZshCompletion(out)
			case "fish":
				return cmd.Root().GenFishCompletion(out, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(out)
			}
			return nil
		},
	}
}

// completeFlag registers a fixed list of completions for the named flag.
// Unknown flags are ignored so commands can share the helper.
func completeFlag(cmd *cobra.Command, name string, values []string) {
	if cmd.Flags().Lookup(name) == nil {
		return
	}
	_ = cmd.RegisterFlagCompletionFunc(name, cobra.FixedCompletions(values, cobra.ShellCompDirectiveNoFileComp))
}
