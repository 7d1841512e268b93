package store

import (
	"context"
	"fmt"
	"time"
)

// createFTSTable recreates the full-text index table during a rebuild.
// Must match the definition in schemaV1.
const createFTSTable = `
	CREATE VIRTUAL TABLE IF NOT EXISTS history_fts USING fts5(
		cmd,
		content='history',
		content_rowid='id'
	)
`

// Drift describes a divergence between the history table and its full-text
// index. Any inequality of counts or max row identifiers is drift.
type Drift struct {
	HistoryCount int64
	IndexCount   int64
	HistoryMaxID int64
	IndexMaxID   int64
}

// CheckDrift compares (count, max id) between the history table and the
// full-text index. Returns nil when they match exactly.
//
// The index side reads the history_fts_docsize shadow table, which holds
// one row per indexed document. Scanning history_fts itself would not
// work: on an external-content table those queries read through to the
// content table, so the comparison would be history against itself.
//
// Drift is never partially repaired: a (count, max) mismatch cannot
// distinguish missing inserts from stale deletes without a full diff, so
// the only resolution is RebuildIndex.
func (d *DB) CheckDrift(ctx context.Context) (*Drift, error) {
	var dr Drift
	err := d.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(MAX(id), 0) FROM history
	`).Scan(&dr.HistoryCount, &dr.HistoryMaxID)
	if err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}

	err = d.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(MAX(id), 0) FROM history_fts_docsize
	`).Scan(&dr.IndexCount, &dr.IndexMaxID)
	if err != nil {
		return nil, fmt.Errorf("count index: %w", err)
	}

	if dr.HistoryCount == dr.IndexCount && dr.HistoryMaxID == dr.IndexMaxID {
		return nil, nil
	}
	return &dr, nil
}

// RebuildIndex drops and repopulates the full-text index from the history
// table. Idempotent: rebuilding twice yields the same index contents as
// rebuilding once. Safe to invoke at any time; runs under the busy-retry
// policy so it tolerates the writer process holding the lock.
func (d *DB) RebuildIndex(ctx context.Context) error {
	start := time.Now()

	err := withRetry(ctx, d.retry, func() error {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // Best-effort rollback after commit

		// Dropping the table also drops its shadow tables; the sync
		// triggers reference history_fts by name and stay valid across
		// the drop+create.
		if _, err := tx.ExecContext(ctx, `DROP TABLE IF EXISTS history_fts`); err != nil {
			return fmt.Errorf("drop index: %w", err)
		}
		if _, err := tx.ExecContext(ctx, createFTSTable); err != nil {
			return fmt.Errorf("recreate index: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO history_fts(rowid, cmd)
			SELECT id, cmd FROM history
		`); err != nil {
			return fmt.Errorf("repopulate index: %w", err)
		}

		return tx.Commit()
	})
	if err != nil {
		return err
	}

	d.logger.Info("full-text index rebuilt", "duration", time.Since(start))
	return nil
}

// OptimizeIndex merges the full-text index's b-tree segments.
// Used by maintenance during low activity.
func (d *DB) OptimizeIndex(ctx context.Context) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO history_fts(history_fts) VALUES('optimize')
	`)
	return err
}
