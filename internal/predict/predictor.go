package predict

import (
	"context"
	"log/slog"
	"unicode/utf8"

	"github.com/runger/recall/internal/store"
)

const (
	// MinPrefixLen is the shortest prefix worth predicting on. One
	// character matches too much history to rank meaningfully.
	MinPrefixLen = 2

	// MaxSuggestions bounds a prediction response.
	MaxSuggestions = 5

	// DefaultCacheSize bounds the prefix memoization cache.
	DefaultCacheSize = 100
)

// Suggestion is one predicted command.
type Suggestion struct {
	Cmd  string
	Rank float64
}

// Predictor answers prefix queries from the history database.
//
// It sits on the shell's prompt latency path, so every failure mode
// degrades to an empty result: a missing database, an exhausted pool, or a
// query error never blocks the shell.
type Predictor struct {
	pool   *Pool
	cache  *lruCache[string, []Suggestion]
	logger *slog.Logger
}

// Options configures a Predictor.
type Options struct {
	// Logger for degraded-path diagnostics. Defaults to slog.Default().
	Logger *slog.Logger

	// CacheSize bounds the memoization cache. Zero means DefaultCacheSize.
	CacheSize int
}

// New creates a Predictor over an open read pool.
func New(pool *Pool, opts Options) *Predictor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cacheSize := opts.CacheSize
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	return &Predictor{
		pool:   pool,
		cache:  newLRUCache[string, []Suggestion](cacheSize),
		logger: logger,
	}
}

// Predict returns up to MaxSuggestions distinct commands starting with
// prefix, highest rank first, ties broken by recency. Prefixes shorter than
// MinPrefixLen and all failures yield an empty result.
//
// Results, including empty ones, are memoized per prefix: repeated
// keystrokes on a dead prefix cost one lookup, not one query each.
func (p *Predictor) Predict(ctx context.Context, prefix string) []Suggestion {
	// MinPrefixLen counts characters, not bytes; "é" is one character.
	if utf8.RuneCountInString(prefix) < MinPrefixLen {
		return nil
	}

	if cached, ok := p.cache.Get(prefix); ok {
		return cached
	}

	results, complete := p.query(ctx, prefix)
	if complete {
		// Memoize misses too, but never failures or partial reads: an
		// empty prefix is a fact, a failed query is not.
		p.cache.Put(prefix, results)
	}
	return results
}

// Invalidate drops all memoized results. Call after bulk history changes.
func (p *Predictor) Invalidate() {
	p.cache.Clear()
}

// CacheLen returns the number of memoized prefixes.
func (p *Predictor) CacheLen() int {
	return p.cache.Len()
}

// query runs the ranked prefix lookup. The bool reports whether the result
// is complete and safe to memoize; failures and cancelled partial reads
// are not.
func (p *Predictor) query(ctx context.Context, prefix string) ([]Suggestion, bool) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		p.logger.Debug("prediction degraded", "prefix_len", len(prefix), "error", err)
		return nil, false
	}
	defer p.pool.Release(conn)

	rows, err := conn.QueryContext(ctx, `
		SELECT cmd, MAX(rank) AS r
		FROM history
		WHERE cmd LIKE ? ESCAPE '\'
		GROUP BY cmd
		ORDER BY r DESC, MAX(ts) DESC
		LIMIT ?
	`, store.EscapeLike(prefix)+"%", MaxSuggestions)
	if err != nil {
		p.logger.Debug("prediction query failed", "error", err)
		return nil, false
	}
	defer rows.Close()

	var results []Suggestion
	for rows.Next() {
		var s Suggestion
		if err := rows.Scan(&s.Cmd, &s.Rank); err != nil {
			p.logger.Debug("prediction scan failed", "error", err)
			return nil, false
		}
		results = append(results, s)

		// A cancelled caller gets whatever was read so far; the shell
		// already moved on.
		if ctx.Err() != nil {
			return results, false
		}
	}
	if err := rows.Err(); err != nil {
		p.logger.Debug("prediction rows failed", "error", err)
		return results, false
	}
	return results, true
}
