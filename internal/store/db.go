package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrStoreClosed is returned when an operation is attempted on a closed store.
var ErrStoreClosed = errors.New("store is closed")

const (
	// defaultBusyTimeoutMs is how long SQLite waits on a lock held by the
	// other process before surfacing SQLITE_BUSY. Bounded, not infinite.
	defaultBusyTimeoutMs = 5000

	// walCheckpointInterval is how often the WAL file is checkpointed to
	// prevent unbounded growth while the writer process stays resident.
	walCheckpointInterval = 5 * time.Minute
)

// DB is the database handle for the history store. It manages the SQLite
// connection, migrations, the open-time index drift check, and a prepared
// statement cache.
type DB struct {
	closeErr  error
	db        *sql.DB
	logger    *slog.Logger
	stopCh    chan struct{}
	stoppedCh chan struct{}
	stmts     map[string]*sql.Stmt
	dbPath    string
	retry     RetryPolicy
	stmtMu    sync.RWMutex
	closeOnce sync.Once
}

// Options configures store initialization.
type Options struct {
	// Path is the database file path. Empty means DefaultDBPath().
	Path string

	// Logger for store operations. Defaults to slog.Default().
	Logger *slog.Logger

	// Retry is the busy-retry policy for write operations.
	// Zero value means DefaultRetryPolicy().
	Retry RetryPolicy

	// BusyTimeoutMs bounds the wait on a lock held by another process.
	// Defaults to defaultBusyTimeoutMs.
	BusyTimeoutMs int

	// ReadOnly opens the database read-only: no migrations, no drift
	// repair, no WAL checkpoint loop. Used by the prediction pool.
	ReadOnly bool

	// SkipDriftCheck disables the open-time index consistency check.
	// Intended for tests that construct drift deliberately.
	SkipDriftCheck bool
}

// DefaultDBPath returns the default database path
// ($XDG_DATA_HOME/recall/history.db).
func DefaultDBPath() (string, error) {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "recall", "history.db"), nil
}

// DSN builds the SQLite connection string for a database path.
// journal_mode(WAL) permits concurrent readers alongside one writer;
// synchronous(NORMAL) trades some fsync strictness for throughput while
// remaining crash-safe under WAL.
func DSN(path string, busyTimeoutMs int, readOnly bool) string {
	if busyTimeoutMs <= 0 {
		busyTimeoutMs = defaultBusyTimeoutMs
	}
	dsn := fmt.Sprintf(
		"file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(1)",
		path, busyTimeoutMs,
	)
	if readOnly {
		dsn += "&mode=ro"
	}
	return dsn
}

// Open opens or creates the store, runs migrations, and repairs full-text
// index drift before returning a usable handle. Failure to open is fatal to
// the caller; everything else here is idempotent and safe to repeat.
func Open(ctx context.Context, opts Options) (*DB, error) {
	dbPath := opts.Path
	if dbPath == "" {
		var err error
		dbPath, err = DefaultDBPath()
		if err != nil {
			return nil, err
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if !opts.ReadOnly {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	sqlDB, err := sql.Open("sqlite", DSN(dbPath, opts.BusyTimeoutMs, opts.ReadOnly))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite handles concurrency best with a single in-process writer
	// connection; cross-process concurrency is WAL's job.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := sqlDB.PingContext(ctx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	d := &DB{
		db:        sqlDB,
		logger:    logger,
		dbPath:    dbPath,
		retry:     opts.Retry.withDefaults(),
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
		stmts:     make(map[string]*sql.Stmt),
	}

	if !opts.ReadOnly {
		if err := RunMigrations(ctx, sqlDB); err != nil {
			sqlDB.Close()
			return nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		if !opts.SkipDriftCheck {
			if err := d.repairDriftAtOpen(ctx); err != nil {
				sqlDB.Close()
				return nil, err
			}
		}

		go d.walCheckpointLoop()
	} else {
		close(d.stoppedCh)
	}

	return d, nil
}

// repairDriftAtOpen runs the index consistency check and rebuilds the
// full-text index on any mismatch. Drift is logged, never surfaced.
func (d *DB) repairDriftAtOpen(ctx context.Context) error {
	drift, err := d.CheckDrift(ctx)
	if err != nil {
		return fmt.Errorf("index drift check failed: %w", err)
	}
	if drift == nil {
		return nil
	}

	d.logger.Warn("full-text index drift detected; rebuilding",
		"history_count", drift.HistoryCount,
		"index_count", drift.IndexCount,
		"history_max_id", drift.HistoryMaxID,
		"index_max_id", drift.IndexMaxID,
	)
	if err := d.RebuildIndex(ctx); err != nil {
		return fmt.Errorf("index rebuild failed: %w", err)
	}
	return nil
}

// Close closes the database connection. Safe to call multiple times.
func (d *DB) Close() error {
	d.closeOnce.Do(func() {
		if d.stopCh != nil {
			close(d.stopCh)
			<-d.stoppedCh
		}

		d.stmtMu.Lock()
		for _, stmt := range d.stmts {
			stmt.Close()
		}
		d.stmts = nil
		d.stmtMu.Unlock()

		if d.db != nil {
			// Merge the WAL into the main file before closing.
			_, _ = d.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)")
			d.closeErr = d.db.Close()
		}
	})
	return d.closeErr
}

// DB returns the underlying sql.DB for direct access.
// Prefer the typed methods; this exists for maintenance tasks and tests.
func (d *DB) DB() *sql.DB {
	return d.db
}

// Path returns the path to the database file.
func (d *DB) Path() string {
	return d.dbPath
}

// walCheckpointLoop periodically checkpoints the WAL file.
func (d *DB) walCheckpointLoop() {
	defer close(d.stoppedCh)

	ticker := time.NewTicker(walCheckpointInterval)
	defer ticker.Stop()

	for {
		select {
		case <-d.stopCh:
			return
		case <-ticker.C:
			if _, err := d.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
				d.logger.Warn("WAL checkpoint failed", "error", err)
			}
		}
	}
}

// prepared returns a cached prepared statement, preparing it on first use.
func (d *DB) prepared(ctx context.Context, name, query string) (*sql.Stmt, error) {
	d.stmtMu.RLock()
	if d.stmts == nil {
		d.stmtMu.RUnlock()
		return nil, ErrStoreClosed
	}
	if stmt, ok := d.stmts[name]; ok {
		d.stmtMu.RUnlock()
		return stmt, nil
	}
	d.stmtMu.RUnlock()

	d.stmtMu.Lock()
	defer d.stmtMu.Unlock()

	if d.stmts == nil {
		return nil, ErrStoreClosed
	}
	if stmt, ok := d.stmts[name]; ok {
		return stmt, nil
	}

	stmt, err := d.db.PrepareContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare statement %q: %w", name, err)
	}
	d.stmts[name] = stmt
	return stmt, nil
}

// Validate checks that all schema objects exist.
func (d *DB) Validate(ctx context.Context) error {
	return ValidateSchema(ctx, d.db)
}

// Version returns the current schema version.
func (d *DB) Version(ctx context.Context) (int, error) {
	return GetSchemaVersion(ctx, d.db)
}
