package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

const insertRecordSQL = `
	INSERT INTO history (cmd, cwd, exit_code, duration_ms, session, host, ts, rank)
	VALUES (?, ?, ?, ?, ?, ?, ?, 0)
`

// InsertOne durably appends a single record. The record's ID and Rank are
// filled in on success. Lock contention against the other process is
// retried per the store's policy before failing with ErrMaxRetriesExceeded.
//
// The insert, the full-text index update (via trigger), and the ranking
// update all commit atomically.
func (d *DB) InsertOne(ctx context.Context, r *Record) error {
	if err := r.Validate(); err != nil {
		return err
	}
	if r.TS == 0 {
		r.TS = time.Now().Unix()
	}

	return withRetry(ctx, d.retry, func() error {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // Best-effort rollback after commit

		if err := insertRecordInTx(ctx, tx, r); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}

// InsertBatch appends records in one transaction, reusing a single prepared
// statement across rows. On any row failure the whole transaction rolls
// back before the error propagates; the busy-retry policy applies to the
// transaction as a unit.
func (d *DB) InsertBatch(ctx context.Context, records []*Record) error {
	if len(records) == 0 {
		return nil
	}

	now := time.Now().Unix()
	for _, r := range records {
		if err := r.Validate(); err != nil {
			return err
		}
		if r.TS == 0 {
			r.TS = now
		}
	}

	return withRetry(ctx, d.retry, func() error {
		tx, err := d.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // Best-effort rollback after commit

		stmt, err := tx.PrepareContext(ctx, insertRecordSQL)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			res, err := stmt.ExecContext(ctx,
				r.Cmd, r.Cwd, r.ExitCode, r.DurationMs, r.Session, r.Host, r.TS,
			)
			if err != nil {
				return fmt.Errorf("insert record: %w", err)
			}
			if r.ID, err = res.LastInsertId(); err != nil {
				return fmt.Errorf("last insert id: %w", err)
			}
			if err := bumpRankInTx(ctx, tx, r); err != nil {
				return err
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}

// insertRecordInTx inserts one row and applies the incremental ranking
// update within the caller's transaction.
func insertRecordInTx(ctx context.Context, tx *sql.Tx, r *Record) error {
	res, err := tx.ExecContext(ctx, insertRecordSQL,
		r.Cmd, r.Cwd, r.ExitCode, r.DurationMs, r.Session, r.Host, r.TS,
	)
	if err != nil {
		return fmt.Errorf("insert record: %w", err)
	}
	if r.ID, err = res.LastInsertId(); err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	return bumpRankInTx(ctx, tx, r)
}

// DeleteByID removes a record. Deletion exists only for the index-repair
// and import-dedup paths; normal operation never deletes history.
func (d *DB) DeleteByID(ctx context.Context, id int64) error {
	return withRetry(ctx, d.retry, func() error {
		_, err := d.db.ExecContext(ctx, `DELETE FROM history WHERE id = ?`, id)
		return err
	})
}
