package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/recall/internal/store"
)

var (
	searchCwd         string
	searchLimit       int
	searchFTS         bool
	searchVerbose     bool
	searchInteractive bool
)

var searchCmd = &cobra.Command{
	Use:     "search [query]",
	Short:   "Search command history",
	GroupID: groupCore,
	Long: `Search history by substring, newest match first. Without a query the
most recent commands are listed. Results collapse to one row per distinct
command.`,
	Args: cobra.MaximumNArgs(1),
	Example: `  recall search                 # recent commands
  recall search "docker run"    # substring match
  recall search make --cwd .    # only from this directory`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchCwd, "cwd", "", "Restrict to commands run in this directory")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 0, "Maximum results (default from config)")
	searchCmd.Flags().BoolVar(&searchFTS, "fts", false, "Use the full-text index (token match instead of substring)")
	searchCmd.Flags().BoolVarP(&searchVerbose, "verbose", "v", false, "Show timestamp, directory and exit code")
	searchCmd.Flags().BoolVarP(&searchInteractive, "interactive", "i", false, "Open the full-screen picker instead")
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchInteractive {
		pickCwd = searchCwd
		return runPick(cmd, nil)
	}

	logger := newLogger(false)

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	var query string
	if len(args) == 1 {
		query = args[0]
	}

	db, err := openStore(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := store.SearchOptions{Cwd: searchCwd, Limit: searchLimit}
	if opts.Limit <= 0 {
		opts.Limit = cfg.Search.Limit
	}

	var records []store.Record
	if searchFTS && cfg.Search.FTSEnabled && query != "" {
		records, err = db.SearchFTS(cmd.Context(), query, opts)
	} else {
		records, err = db.Search(cmd.Context(), query, opts)
	}
	if err != nil {
		return err
	}

	for _, r := range records {
		if searchVerbose {
			ts := time.Unix(r.TS, 0).Format("2006-01-02 15:04")
			fmt.Fprintf(cmd.OutOrStdout(), "%s  exit=%-3d  %s\n    %s\n", ts, r.ExitCode, r.Cwd, r.Cmd)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), r.Cmd)
		}
	}
	return nil
}
