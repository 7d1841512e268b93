package cmd

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"

	"github.com/runger/recall/internal/picker"
)

// ExitError carries an exit code to main without printing anything.
// Shell bindings distinguish selection (0), cancel (1) and fallback (2).
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

const (
	exitCancelled = 1
	exitFallback  = 2
)

var pickCwd string

var pickCmd = &cobra.Command{
	Use:     "pick",
	Short:   "Interactively pick a command from history",
	GroupID: groupCore,
	Long: `Open a full-screen history picker. The selected command is printed to
stdout so shell bindings can insert it into the prompt line.

Exit codes: 0 selection made, 1 cancelled, 2 fallback (no TTY or error).`,
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	RunE:          runPick,
}

func init() {
	pickCmd.Flags().StringVar(&pickCwd, "cwd", "", "Directory for the scoped tab (default: current)")
}

func runPick(cmd *cobra.Command, _ []string) error {
	if os.Getenv("TERM") == "dumb" {
		fmt.Fprintln(os.Stderr, "recall pick: dumb terminal")
		return &ExitError{Code: exitFallback}
	}
	if w := termWidth(); w > 0 && w < minPickerWidth {
		fmt.Fprintf(os.Stderr, "recall pick: terminal too narrow (%d columns)\n", w)
		return &ExitError{Code: exitFallback}
	}

	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "recall pick: %v\n", err)
		return &ExitError{Code: exitFallback}
	}

	cwd := pickCwd
	if cwd == "" {
		cwd, _ = os.Getwd()
	}

	db, err := openStore(cmd.Context(), cfg, newLogger(true))
	if err != nil {
		fmt.Fprintf(os.Stderr, "recall pick: %v\n", err)
		return &ExitError{Code: exitFallback}
	}
	defer db.Close()

	// Stdout carries the selection, so the TUI runs on /dev/tty.
	tty, err := os.OpenFile("/dev/tty", os.O_RDWR, 0)
	if err != nil {
		fmt.Fprintf(os.Stderr, "recall pick: cannot open /dev/tty: %v\n", err)
		return &ExitError{Code: exitFallback}
	}
	defer tty.Close()

	// When invoked via $(recall pick) stdout is a pipe, so lipgloss would
	// default to Ascii. Detect the profile from the real tty instead.
	lipgloss.SetColorProfile(termenv.NewOutput(tty).ColorProfile())

	model := picker.NewModel(picker.NewStoreProvider(db), cwd)
	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithInput(tty),
		tea.WithOutput(tty),
	)

	finalModel, err := p.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "recall pick: %v\n", err)
		return &ExitError{Code: exitFallback}
	}

	m, ok := finalModel.(picker.Model)
	if !ok {
		return &ExitError{Code: exitFallback}
	}

	result := m.Result()
	if result == "" {
		return &ExitError{Code: exitCancelled}
	}

	fmt.Fprintln(cmd.OutOrStdout(), result)
	return nil
}
