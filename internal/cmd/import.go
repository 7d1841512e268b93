package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/runger/recall/internal/histfile"
)

var (
	importFile string
	importMax  int
)

var importCmd = &cobra.Command{
	Use:       "import [bash|zsh|fish|auto]",
	Short:     "Import an existing shell history file",
	GroupID:   groupData,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"bash", "zsh", "fish", "auto"},
	Example: `  recall import            # detect shell from $SHELL
  recall import zsh
  recall import bash --file /backup/.bash_history`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "History file to read (default: the shell's conventional location)")
	importCmd.Flags().IntVar(&importMax, "max", 0, "Import at most the N most recent entries (default from config)")
}

func runImport(cmd *cobra.Command, args []string) error {
	logger := newLogger(false)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	shell := "auto"
	if len(args) == 1 {
		shell = args[0]
	}
	maxEntries := importMax
	if maxEntries <= 0 {
		maxEntries = cfg.History.ImportMax
	}

	db, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	cwd, _ := os.Getwd()
	res, err := histfile.Import(cmd.Context(), db, histfile.ImportOptions{
		Shell:      shell,
		Path:       importFile,
		MaxEntries: maxEntries,
		Cwd:        cwd,
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d %s history entries (%d already present)\n",
		res.Imported, res.Parsed, res.Shell, res.Skipped)
	return nil
}
