package cmd

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

//go:embed shell/recall.zsh
//go:embed shell/recall.bash
//go:embed shell/recall.fish
var shellScripts embed.FS

var initCmd = &cobra.Command{
	Use:     "init <shell>",
	Short:   "Output shell integration script",
	GroupID: groupSetup,
	Long: `Output the shell integration script for your shell.

Add this to your shell configuration file:

  # For Zsh (~/.zshrc):
  eval "$(recall init zsh)"

  # For Bash (~/.bashrc or ~/.bash_profile on macOS):
  eval "$(recall init bash)"

  # For Fish (~/.config/fish/config.fish):
  recall init fish | source`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{"zsh", "bash", "fish"},
	RunE:      runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	shell := args[0]
	switch shell {
	case "zsh", "bash", "fish":
	default:
		return fmt.Errorf("unsupported shell: %s (supported: zsh, bash, fish)", shell)
	}

	content, err := shellScripts.ReadFile("shell/recall." + shell)
	if err != nil {
		return fmt.Errorf("read shell script: %w", err)
	}

	// Re-sourcing keeps the same session ID.
	sessionID := os.Getenv("RECALL_SESSION")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}

	script := strings.ReplaceAll(string(content), "{{RECALL_SESSION}}", sessionID)
	fmt.Fprint(cmd.OutOrStdout(), script)
	return nil
}
