package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/runger/recall/internal/maintenance"
)

var dbCmd = &cobra.Command{
	Use:     "db",
	Short:   "Inspect and maintain the history database",
	GroupID: groupData,
}

var dbPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the database path",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), cfg.DBPath())
		return nil
	},
}

var dbVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check schema and index consistency",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg, newLogger(false))
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Validate(cmd.Context()); err != nil {
			return fmt.Errorf("schema: %w", err)
		}
		drift, err := db.CheckDrift(cmd.Context())
		if err != nil {
			return fmt.Errorf("drift check: %w", err)
		}
		if drift != nil {
			return fmt.Errorf("index drift: history has %d rows, index has %d (run: recall db rebuild-index)",
				drift.HistoryCount, drift.IndexCount)
		}
		version, err := db.Version(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok (schema version %d)\n", version)
		return nil
	},
}

var dbRebuildIndexCmd = &cobra.Command{
	Use:   "rebuild-index",
	Short: "Rebuild the full-text index from history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg, newLogger(false))
		if err != nil {
			return err
		}
		defer db.Close()

		start := time.Now()
		if err := db.RebuildIndex(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "index rebuilt in %s\n", time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var dbRecalcCmd = &cobra.Command{
	Use:   "recalc",
	Short: "Recalculate command statistics and ranks from history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg, newLogger(false))
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.RecalcAll(cmd.Context(), 0); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "statistics recalculated")
		return nil
	},
}

var dbPruneDays int

var dbPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete records older than a retention window",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		days := dbPruneDays
		if days <= 0 {
			days = cfg.Maintenance.RetentionDays
		}
		if days <= 0 {
			return fmt.Errorf("no retention window: pass --days or set maintenance.retention_days")
		}

		db, err := openStore(cmd.Context(), cfg, newLogger(false))
		if err != nil {
			return err
		}
		defer db.Close()

		r := maintenance.NewRunner(db, maintenance.Config{
			RetentionDays:  days,
			PruneBatchSize: cfg.Maintenance.PruneBatchSize,
			Logger:         newLogger(false),
		})
		r.Tick(cmd.Context())
		fmt.Fprintf(cmd.OutOrStdout(), "pruned %d records older than %d days\n",
			r.GetStats().RecordsPruned, days)
		return nil
	},
}

var dbVacuumCmd = &cobra.Command{
	Use:   "vacuum",
	Short: "Reclaim free space in the database file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		db, err := openStore(cmd.Context(), cfg, newLogger(false))
		if err != nil {
			return err
		}
		defer db.Close()

		start := time.Now()
		if _, err := db.DB().ExecContext(cmd.Context(), "VACUUM"); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "vacuum completed in %s\n", time.Since(start).Round(time.Millisecond))
		return nil
	},
}

var dbMaintainCmd = &cobra.Command{
	Use:   "maintain",
	Short: "Run one full maintenance pass",
	Long: `Run one maintenance pass: WAL checkpoint, retention prune, index
consistency check, FTS optimize, and VACUUM if the file is fragmented.
Suitable for a cron job or systemd timer.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		logger := newLogger(false)

		db, err := openStore(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer db.Close()

		r := maintenance.NewRunner(db, maintenance.Config{
			RetentionDays:   cfg.Maintenance.RetentionDays,
			PruneBatchSize:  cfg.Maintenance.PruneBatchSize,
			VacuumFreeRatio: cfg.Maintenance.VacuumRatio,
			Logger:          logger,
		})
		r.Tick(cmd.Context())

		s := r.GetStats()
		fmt.Fprintf(cmd.OutOrStdout(),
			"maintenance pass done: pruned=%d rebuilds=%d checkpoints=%d optimizations=%d vacuums=%d\n",
			s.RecordsPruned, s.IndexRebuilds, s.WALCheckpoints, s.FTSOptimizations, s.Vacuums)
		return nil
	},
}

func init() {
	dbPruneCmd.Flags().IntVar(&dbPruneDays, "days", 0, "Delete records older than this many days")

	dbCmd.AddCommand(dbPathCmd)
	dbCmd.AddCommand(dbVerifyCmd)
	dbCmd.AddCommand(dbRebuildIndexCmd)
	dbCmd.AddCommand(dbRecalcCmd)
	dbCmd.AddCommand(dbPruneCmd)
	dbCmd.AddCommand(dbVacuumCmd)
	dbCmd.AddCommand(dbMaintainCmd)
}
