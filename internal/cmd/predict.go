package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/runger/recall/internal/predict"
)

var predictRanks bool

var predictCmd = &cobra.Command{
	Use:     "predict <prefix>",
	Short:   "Suggest commands matching a prefix",
	GroupID: groupCore,
	Long: `Suggest the highest-ranked commands starting with the given prefix,
one per line, best first. Prints nothing when the prefix is too short or
the database is unavailable; the exit code is always zero so shell hooks
never break the prompt.`,
	Args: cobra.ExactArgs(1),
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().BoolVar(&predictRanks, "ranks", false, "Append the rank score to each line")
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return nil
	}

	pool, err := predict.NewPool(cfg.DBPath(), cfg.Predict.PoolSize)
	if err != nil {
		// No database yet, or unreadable. Stay silent.
		return nil
	}
	defer pool.Close()

	p := predict.New(pool, predict.Options{
		Logger:    newLogger(true),
		CacheSize: cfg.Predict.CacheSize,
	})

	for _, s := range p.Predict(cmd.Context(), args[0]) {
		if predictRanks {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%.1f\n", s.Cmd, s.Rank)
		} else {
			fmt.Fprintln(cmd.OutOrStdout(), s.Cmd)
		}
	}
	return nil
}
