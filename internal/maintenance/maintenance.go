// Package maintenance implements periodic upkeep of the history database:
// WAL checkpointing, retention pruning, index consistency checks, FTS
// optimization, and VACUUM.
package maintenance

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/runger/recall/internal/store"
)

// Default configuration values.
const (
	// DefaultInterval is the tick interval between maintenance passes.
	DefaultInterval = 5 * time.Minute

	// DefaultPruneBatchSize is the number of rows deleted per batch.
	DefaultPruneBatchSize = 1000

	// DefaultPruneYield is the sleep between prune batches.
	DefaultPruneYield = 100 * time.Millisecond

	// DefaultLowActivityThreshold is the write count below which the
	// system is considered idle enough for heavier operations.
	DefaultLowActivityThreshold = 5

	// DefaultVacuumFreeRatio is the free-page percentage that triggers
	// a VACUUM during low activity.
	DefaultVacuumFreeRatio = 25
)

// Config configures the maintenance runner.
type Config struct {
	// Interval between maintenance passes. Zero means DefaultInterval.
	Interval time.Duration

	// RetentionDays prunes records older than this. 0 keeps everything.
	RetentionDays int

	// PruneBatchSize bounds each prune transaction.
	PruneBatchSize int

	// PruneYield is the sleep between prune batches.
	PruneYield time.Duration

	// LowActivityThreshold gates FTS optimize and VACUUM.
	LowActivityThreshold int

	// VacuumFreeRatio is the free-page percent that triggers VACUUM.
	// 0 disables VACUUM.
	VacuumFreeRatio int

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

func (c *Config) applyDefaults() {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.RetentionDays < 0 {
		c.RetentionDays = 0
	}
	if c.PruneBatchSize <= 0 {
		c.PruneBatchSize = DefaultPruneBatchSize
	}
	if c.PruneYield <= 0 {
		c.PruneYield = DefaultPruneYield
	}
	if c.LowActivityThreshold <= 0 {
		c.LowActivityThreshold = DefaultLowActivityThreshold
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Stats holds cumulative maintenance counters.
type Stats struct {
	Ticks            int64
	RecordsPruned    int64
	WALCheckpoints   int64
	IndexRebuilds    int64
	FTSOptimizations int64
	Vacuums          int64
	LastTick         time.Time
}

// Runner executes periodic maintenance against the history store.
type Runner struct {
	db     *store.DB
	cfg    Config
	writes atomic.Int64 // writes since last tick

	mu    sync.Mutex
	stats Stats
}

// NewRunner creates a maintenance runner over an open writer handle.
func NewRunner(db *store.DB, cfg Config) *Runner {
	cfg.applyDefaults()
	return &Runner{db: db, cfg: cfg}
}

// RecordWrite counts a write for activity tracking. Called from the
// ingestion path.
func (r *Runner) RecordWrite() {
	r.writes.Add(1)
}

// GetStats returns a snapshot of the counters.
func (r *Runner) GetStats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stats
}

// Run starts the maintenance loop and blocks until ctx is cancelled.
// Intended to be called as a goroutine.
func (r *Runner) Run(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	r.cfg.Logger.Info("maintenance runner started",
		"interval", r.cfg.Interval,
		"retention_days", r.cfg.RetentionDays,
	)

	for {
		select {
		case <-ctx.Done():
			r.cfg.Logger.Info("maintenance runner stopping")
			return
		case <-ticker.C:
			r.Tick(ctx)
		}
	}
}

// Tick performs one maintenance pass. Exposed for the one-shot CLI path.
func (r *Runner) Tick(ctx context.Context) {
	r.mu.Lock()
	r.stats.Ticks++
	r.stats.LastTick = time.Now()
	r.mu.Unlock()

	writeCount := r.writes.Swap(0)
	lowActivity := writeCount < int64(r.cfg.LowActivityThreshold)

	r.walCheckpoint(ctx, lowActivity)

	if r.cfg.RetentionDays > 0 {
		if pruned := r.retentionPrune(ctx); pruned > 0 {
			// Pruning invalidates stored counts; rebuild them from what
			// remains.
			if err := r.db.RecalcAll(ctx, 0); err != nil {
				r.cfg.Logger.Warn("stat recalculation after prune failed", "error", err)
			}
		}
	}

	r.checkIndex(ctx)

	if lowActivity {
		r.ftsOptimize(ctx)
		r.maybeVacuum(ctx)
	}
}

// walCheckpoint runs PASSIVE during active use, TRUNCATE when idle.
func (r *Runner) walCheckpoint(ctx context.Context, lowActivity bool) {
	mode := "PASSIVE"
	if lowActivity {
		mode = "TRUNCATE"
	}

	// PRAGMA arguments cannot be bound; mode is one of two constants.
	if _, err := r.db.DB().ExecContext(ctx, "PRAGMA wal_checkpoint("+mode+")"); err != nil {
		r.cfg.Logger.Warn("WAL checkpoint failed", "mode", mode, "error", err)
		return
	}

	r.mu.Lock()
	r.stats.WALCheckpoints++
	r.mu.Unlock()
}

// retentionPrune deletes expired records in batches, yielding between
// batches so the other process's writes interleave.
func (r *Runner) retentionPrune(ctx context.Context) int64 {
	cutoff := time.Now().Unix() - int64(r.cfg.RetentionDays)*24*60*60
	var total int64

	for {
		select {
		case <-ctx.Done():
			return total
		default:
		}

		res, err := r.db.DB().ExecContext(ctx, `
			DELETE FROM history
			WHERE id IN (SELECT id FROM history WHERE ts < ? LIMIT ?)
		`, cutoff, r.cfg.PruneBatchSize)
		if err != nil {
			r.cfg.Logger.Warn("retention prune batch failed", "error", err)
			break
		}
		deleted, err := res.RowsAffected()
		if err != nil {
			r.cfg.Logger.Warn("rows affected unavailable", "error", err)
			break
		}

		total += deleted
		r.mu.Lock()
		r.stats.RecordsPruned += deleted
		r.mu.Unlock()

		if deleted < int64(r.cfg.PruneBatchSize) {
			break
		}

		select {
		case <-ctx.Done():
			return total
		case <-time.After(r.cfg.PruneYield):
		}
	}

	if total > 0 {
		r.cfg.Logger.Info("retention prune completed", "deleted", total, "cutoff", cutoff)
	}
	return total
}

// checkIndex verifies history/index consistency and rebuilds on drift.
func (r *Runner) checkIndex(ctx context.Context) {
	drift, err := r.db.CheckDrift(ctx)
	if err != nil {
		r.cfg.Logger.Warn("index drift check failed", "error", err)
		return
	}
	if drift == nil {
		return
	}

	r.cfg.Logger.Warn("index drift detected during maintenance",
		"history_count", drift.HistoryCount,
		"index_count", drift.IndexCount,
	)
	if err := r.db.RebuildIndex(ctx); err != nil {
		r.cfg.Logger.Warn("index rebuild failed", "error", err)
		return
	}
	r.mu.Lock()
	r.stats.IndexRebuilds++
	r.mu.Unlock()
}

func (r *Runner) ftsOptimize(ctx context.Context) {
	if err := r.db.OptimizeIndex(ctx); err != nil {
		r.cfg.Logger.Warn("FTS optimize failed", "error", err)
		return
	}
	r.mu.Lock()
	r.stats.FTSOptimizations++
	r.mu.Unlock()
}

// maybeVacuum reclaims space when the free-page ratio exceeds the
// configured threshold.
func (r *Runner) maybeVacuum(ctx context.Context) {
	if r.cfg.VacuumFreeRatio <= 0 {
		return
	}

	var pageCount, freeCount int64
	if err := r.db.DB().QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err != nil {
		r.cfg.Logger.Warn("page_count unavailable", "error", err)
		return
	}
	if err := r.db.DB().QueryRowContext(ctx, "PRAGMA freelist_count").Scan(&freeCount); err != nil {
		r.cfg.Logger.Warn("freelist_count unavailable", "error", err)
		return
	}
	if pageCount == 0 || freeCount*100 < pageCount*int64(r.cfg.VacuumFreeRatio) {
		return
	}

	start := time.Now()
	if _, err := r.db.DB().ExecContext(ctx, "VACUUM"); err != nil {
		r.cfg.Logger.Warn("VACUUM failed", "error", err)
		return
	}

	r.mu.Lock()
	r.stats.Vacuums++
	r.mu.Unlock()
	r.cfg.Logger.Info("VACUUM completed",
		"duration", time.Since(start),
		"free_pages", freeCount,
		"total_pages", pageCount,
	)
}
