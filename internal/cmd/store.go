package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/runger/recall/internal/config"
	"github.com/runger/recall/internal/store"
)

// openStore opens the history database with the effective configuration.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*store.DB, error) {
	return store.Open(ctx, store.Options{
		Path:   cfg.DBPath(),
		Logger: logger,
		Retry: store.RetryPolicy{
			MaxAttempts: cfg.History.RetryAttempts,
			Delay:       time.Duration(cfg.History.RetryDelayMs) * time.Millisecond,
		},
		BusyTimeoutMs: cfg.History.BusyTimeoutMs,
	})
}
