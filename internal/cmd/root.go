// Package cmd implements the recall CLI.
package cmd

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/runger/recall/internal/config"
	"github.com/runger/recall/internal/log"
)

const (
	groupCore  = "core"
	groupData  = "data"
	groupSetup = "setup"
)

var (
	flagDBPath     string
	flagConfigPath string
)

var rootCmd = &cobra.Command{
	Use:   "recall",
	Short: "durable shell history with ranked predictions",
	Long: `recall - durable shell history with ranked predictions
  - every command recorded with its directory, exit code and duration
  - type a prefix, get your best next command
  - search everything you ever ran`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDBPath, "db", "", "Database path (default: XDG data dir)")
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "Config file path (default: XDG config dir)")

	rootCmd.AddGroup(
		&cobra.Group{ID: groupCore, Title: "Core Commands:"},
		&cobra.Group{ID: groupData, Title: "Data Commands:"},
		&cobra.Group{ID: groupSetup, Title: "Setup Commands:"},
	)

	rootCmd.AddCommand(trackCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(pickCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(importCmd)
	rootCmd.AddCommand(dbCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig resolves the effective configuration, honoring --config and
// --db overrides.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if flagConfigPath != "" {
		cfg, err = config.LoadFromFile(flagConfigPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if flagDBPath != "" {
		cfg.History.DBPath = flagDBPath
	}
	return cfg, nil
}

// newLogger builds the CLI logger. quiet drops all output; used by
// commands whose stdout feeds shell hooks.
func newLogger(quiet bool) *slog.Logger {
	if quiet {
		return log.Discard()
	}
	return log.NewFromEnv()
}
