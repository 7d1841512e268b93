package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	// minRankDays floors days_since_last_use in the frecency formula.
	// Same-day reuse counts as one day-equivalent, capping the recency
	// term at 100.0 and keeping the score finite.
	minRankDays = 1.0

	// frequencyWeight and recencyWeight are the frecency formula
	// coefficients: rank = count*frequencyWeight + recencyWeight/days.
	frequencyWeight = 2.0
	recencyWeight   = 100.0

	// recalcBatchSize bounds lock-hold time during RecalcAll by committing
	// rank rewrites in transactions of this many distinct commands.
	recalcBatchSize = 500

	secondsPerDay = 24 * 60 * 60
)

// Frecency computes the ranking score for a command with the given
// frequency count and last-used timestamp, evaluated at nowSec.
// Deterministic for a fixed now.
func Frecency(count int64, lastUsedSec, nowSec int64) float64 {
	days := float64(nowSec-lastUsedSec) / secondsPerDay
	if days < minRankDays {
		days = minRankDays
	}
	return float64(count)*frequencyWeight + recencyWeight/days
}

// bumpRankInTx applies the incremental ranking update for a newly inserted
// record: increment the command's stat row, recompute its rank, and write
// the rank onto every history row sharing that command text. Rank is
// evaluated at the record's own timestamp so replayed imports rank the same
// as live inserts.
func bumpRankInTx(ctx context.Context, tx *sql.Tx, r *Record) error {
	hash := CommandHash(r.Cmd)

	var count int64
	var lastUsed int64
	err := tx.QueryRowContext(ctx, `
		SELECT count, last_used FROM command_stats WHERE cmd_hash = ?
	`, hash).Scan(&count, &lastUsed)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("read command stat: %w", err)
	}

	count++
	lastUsed = r.TS

	_, err = tx.ExecContext(ctx, `
		INSERT INTO command_stats (cmd_hash, cmd, count, last_used)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cmd_hash) DO UPDATE SET
			count = ?,
			last_used = ?
	`, hash, r.Cmd, count, lastUsed, count, lastUsed)
	if err != nil {
		return fmt.Errorf("upsert command stat: %w", err)
	}

	rank := Frecency(count, lastUsed, r.TS)
	r.Rank = rank

	// All rows sharing the command text carry the same rank, so ranked
	// reads never mix stale and fresh scores for one command.
	if _, err := tx.ExecContext(ctx, `
		UPDATE history SET rank = ? WHERE cmd = ?
	`, rank, r.Cmd); err != nil {
		return fmt.Errorf("write rank: %w", err)
	}
	return nil
}

// RecalcAll recomputes frequency and rank for every distinct command from
// the history table itself, discarding accumulated stats. Rank rewrites are
// committed in batches to bound lock-hold time, and each batch runs under
// the store's busy-retry policy so it tolerates a concurrent writer.
// Deterministic for a fixed nowSec (pass 0 for the current time).
func (d *DB) RecalcAll(ctx context.Context, nowSec int64) error {
	if nowSec == 0 {
		nowSec = time.Now().Unix()
	}

	// One linear scan over history, aggregated by command.
	rows, err := d.db.QueryContext(ctx, `
		SELECT cmd, COUNT(*), MAX(ts) FROM history GROUP BY cmd
	`)
	if err != nil {
		return fmt.Errorf("scan history: %w", err)
	}

	var aggs []cmdAgg
	for rows.Next() {
		var a cmdAgg
		if err := rows.Scan(&a.cmd, &a.count, &a.lastUsed); err != nil {
			rows.Close()
			return fmt.Errorf("scan aggregate: %w", err)
		}
		aggs = append(aggs, a)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for start := 0; start < len(aggs); start += recalcBatchSize {
		end := start + recalcBatchSize
		if end > len(aggs) {
			end = len(aggs)
		}
		batch := aggs[start:end]

		err := withRetry(ctx, d.retry, func() error {
			return d.recalcBatch(ctx, batch, nowSec)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// cmdAgg is one distinct command's aggregate from the recalc scan.
type cmdAgg struct {
	cmd      string
	count    int64
	lastUsed int64
}

func (d *DB) recalcBatch(ctx context.Context, batch []cmdAgg, nowSec int64) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Best-effort rollback after commit

	statStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO command_stats (cmd_hash, cmd, count, last_used)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cmd_hash) DO UPDATE SET
			count = ?,
			last_used = ?
	`)
	if err != nil {
		return fmt.Errorf("prepare stat upsert: %w", err)
	}
	defer statStmt.Close()

	rankStmt, err := tx.PrepareContext(ctx, `
		UPDATE history SET rank = ? WHERE cmd = ?
	`)
	if err != nil {
		return fmt.Errorf("prepare rank update: %w", err)
	}
	defer rankStmt.Close()

	for _, a := range batch {
		hash := CommandHash(a.cmd)
		if _, err := statStmt.ExecContext(ctx,
			hash, a.cmd, a.count, a.lastUsed, a.count, a.lastUsed,
		); err != nil {
			return fmt.Errorf("upsert stat for %q: %w", a.cmd, err)
		}

		rank := Frecency(a.count, a.lastUsed, nowSec)
		if _, err := rankStmt.ExecContext(ctx, rank, a.cmd); err != nil {
			return fmt.Errorf("write rank for %q: %w", a.cmd, err)
		}
	}

	return tx.Commit()
}

// GetStat returns the aggregate for a distinct command, or nil if the
// command has never been recorded.
func (d *DB) GetStat(ctx context.Context, cmd string) (*CommandStat, error) {
	stmt, err := d.prepared(ctx, "get_stat", `
		SELECT cmd_hash, cmd, count, last_used FROM command_stats WHERE cmd_hash = ?
	`)
	if err != nil {
		return nil, err
	}

	var s CommandStat
	err = stmt.QueryRowContext(ctx, CommandHash(cmd)).Scan(&s.CmdHash, &s.Cmd, &s.Count, &s.LastUsed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read command stat: %w", err)
	}
	return &s, nil
}

// TopStats returns the highest-frecency commands evaluated at nowSec
// (0 means the current time). Used by the stats surface.
func (d *DB) TopStats(ctx context.Context, limit int, nowSec int64) ([]CommandStat, []float64, error) {
	if limit <= 0 {
		limit = 10
	}
	if nowSec == 0 {
		nowSec = time.Now().Unix()
	}

	// Fetch extra rows: recency can reorder commands whose stored counts
	// are close.
	rows, err := d.db.QueryContext(ctx, `
		SELECT cmd_hash, cmd, count, last_used FROM command_stats
		ORDER BY count DESC
		LIMIT ?
	`, limit*3)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var stats []CommandStat
	for rows.Next() {
		var s CommandStat
		if err := rows.Scan(&s.CmdHash, &s.Cmd, &s.Count, &s.LastUsed); err != nil {
			return nil, nil, err
		}
		stats = append(stats, s)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}

	// Insertion sort by frecency; the candidate set is small.
	ranks := make([]float64, len(stats))
	for i, s := range stats {
		ranks[i] = Frecency(s.Count, s.LastUsed, nowSec)
	}
	for i := 1; i < len(stats); i++ {
		for j := i; j > 0 && ranks[j] > ranks[j-1]; j-- {
			ranks[j], ranks[j-1] = ranks[j-1], ranks[j]
			stats[j], stats[j-1] = stats[j-1], stats[j]
		}
	}

	if len(stats) > limit {
		stats = stats[:limit]
		ranks = ranks[:limit]
	}
	return stats, ranks, nil
}
