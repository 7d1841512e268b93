package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/recall/internal/stats"
)

var statsTop int

var statsCmd = &cobra.Command{
	Use:     "stats",
	Short:   "Show usage statistics",
	GroupID: groupCore,
	Args:    cobra.NoArgs,
	RunE:    runStats,
}

func init() {
	statsCmd.Flags().IntVar(&statsTop, "top", stats.DefaultTopN, "Rows per section")
}

func runStats(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := openStore(cmd.Context(), cfg, newLogger(false))
	if err != nil {
		return err
	}
	defer db.Close()

	report, err := stats.Gather(cmd.Context(), db, statsTop, 0)
	if err != nil {
		return err
	}

	stats.ConfigureColors()
	fmt.Fprint(cmd.OutOrStdout(), stats.Render(report))
	return nil
}
