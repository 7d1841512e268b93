// Package predict serves low-latency command predictions for the shell
// hook. It reads the history database through a small read-only connection
// pool and memoizes results per prefix, degrading to no suggestion rather
// than surfacing errors into the prompt path.
package predict

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/runger/recall/internal/store"
)

// ErrPoolExhausted is returned when all read connections are in use.
// Callers fail fast instead of queueing; a stale prediction request has no
// value by the time a connection frees up.
var ErrPoolExhausted = errors.New("prediction pool exhausted")

// DefaultPoolSize is the maximum number of concurrent read connections.
const DefaultPoolSize = 5

// Pool is a bounded pool of read-only database connections. The bound caps
// the predictor's footprint on the shared database file regardless of how
// many prediction requests arrive at once.
type Pool struct {
	db   *sql.DB
	sem  chan struct{}
	path string
}

// NewPool opens a read-only handle to the database at path with at most
// size concurrent connections (DefaultPoolSize when size <= 0). The
// database must already exist; the read-only path never creates or
// migrates it.
func NewPool(path string, size int) (*Pool, error) {
	if size <= 0 {
		size = DefaultPoolSize
	}

	db, err := sql.Open("sqlite", store.DSN(path, 0, true))
	if err != nil {
		return nil, fmt.Errorf("open read-only database: %w", err)
	}
	db.SetMaxOpenConns(size)
	db.SetMaxIdleConns(size)
	db.SetConnMaxLifetime(0)

	return &Pool{
		db:   db,
		sem:  make(chan struct{}, size),
		path: path,
	}, nil
}

// Acquire reserves a connection, failing fast with ErrPoolExhausted when
// the pool is saturated. The returned connection must be handed back via
// Release.
func (p *Pool) Acquire(ctx context.Context) (*sql.Conn, error) {
	select {
	case p.sem <- struct{}{}:
	default:
		return nil, ErrPoolExhausted
	}

	conn, err := p.db.Conn(ctx)
	if err != nil {
		<-p.sem
		return nil, fmt.Errorf("acquire read connection: %w", err)
	}
	return conn, nil
}

// Release returns a connection to the pool.
func (p *Pool) Release(conn *sql.Conn) {
	if conn != nil {
		conn.Close()
	}
	<-p.sem
}

// InUse returns the number of currently acquired connections.
func (p *Pool) InUse() int {
	return len(p.sem)
}

// Close closes the pool and its connections.
func (p *Pool) Close() error {
	return p.db.Close()
}
