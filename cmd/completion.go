package cmd

import (
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// detectShell auto-detects the current shell from environment
func detectShell() string {
	shellLower := strings.ToLower(os.Getenv("SHELL"))

	switch {
	case strings.Contains(shellLower, "fish"):
		return "fish"
	case strings.Contains(shellLower, "zsh"):
		return "zsh"
	case strings.Contains(shellLower, "pwsh"), strings.Contains(shellLower, "powershell"):
		return "powershell"
	default:
		return "bash"
	}
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for launch.

If no shell is specified, it is detected from $SHELL (bash when unknown).

Bash:
  $ source <(launch completion bash)

Zsh:
  $ launch completion zsh > "${fpath[1]}/_launch"

Fish:
  $ launch completion fish > ~/.config/fish/completions/launch.fish

PowerShell:
  PS> launch completion powershell | Out-String | Invoke-Expression

Queue names, capacity policies, dialects and config keys complete from the
built-in tables. The trailing command completes as a file name.`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		shell := detectShell()
		if len(args) > 0 {
			shell = args[0]
		}

		out := cmd.OutOrStdout()
		root := cmd.Root()
		switch shell {
		case "zsh":
			return root.GenZshCompletion(out)
		case "fish":
			return root.GenFishCompletion(out, true)
		case "powershell":
			return root.GenPowerShellCompletionWithDesc(out)
		default:
			return root.GenBashCompletionV2(out, true)
		}
	},
}

// commandCompletion completes the trailing command of "launch [flags] command..."
// as a path, since it is usually a script or an executable.
func commandCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return nil, cobra.ShellCompDirectiveDefault
}

func init() {
	rootCmd.ValidArgsFunction = commandCompletion
	rootCmd.AddCommand(completionCmd)
}
