package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// Search limits.
const (
	// DefaultSearchLimit is the default number of search results.
	DefaultSearchLimit = 50

	// MaxSearchLimit is the maximum allowed search results.
	MaxSearchLimit = 500
)

// SearchOptions configures history search.
type SearchOptions struct {
	// Cwd restricts matches to records whose working directory equals
	// this value exactly. Empty means no directory filter.
	Cwd string

	// Limit is the maximum number of results.
	Limit int
}

// searchColumns is the explicit column list for all reader paths.
// Never a wildcard: unknown extra columns added by newer writers must not
// break older readers.
const searchColumns = "id, cmd, cwd, exit_code, duration_ms, session, host, ts, rank"

// Search returns matching history records, newest first.
//
// An empty query returns the most recent page. A non-empty query is a
// case-insensitive substring match against command text, collapsed to one
// row per distinct command (its most recent occurrence). LIKE wildcards in
// the query are escaped so a literal %, _ or backslash matches literally.
//
// This path deliberately scans the history table and never touches the
// full-text index: a substring scan stays correct even when the index has
// drifted.
func (d *DB) Search(ctx context.Context, query string, opts SearchOptions) ([]Record, error) {
	limit := normalizeLimit(opts.Limit)

	if query == "" {
		return d.recent(ctx, opts.Cwd, limit)
	}

	pattern := "%" + EscapeLike(query) + "%"

	// MAX(ts) with bare columns is the SQLite idiom for "the row with the
	// greatest ts in each group": collapses duplicates of a command to its
	// most recent occurrence.
	var (
		rows *sql.Rows
		err  error
	)
	if opts.Cwd != "" {
		rows, err = d.db.QueryContext(ctx, `
			SELECT id, cmd, cwd, exit_code, duration_ms, session, host, MAX(ts) AS ts, rank
			FROM history
			WHERE cmd LIKE ? ESCAPE '\' AND cwd = ?
			GROUP BY cmd
			ORDER BY ts DESC
			LIMIT ?
		`, pattern, opts.Cwd, limit)
	} else {
		rows, err = d.db.QueryContext(ctx, `
			SELECT id, cmd, cwd, exit_code, duration_ms, session, host, MAX(ts) AS ts, rank
			FROM history
			WHERE cmd LIKE ? ESCAPE '\'
			GROUP BY cmd
			ORDER BY ts DESC
			LIMIT ?
		`, pattern, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// recent returns the newest records without collapsing duplicates.
func (d *DB) recent(ctx context.Context, cwd string, limit int) ([]Record, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if cwd != "" {
		rows, err = d.db.QueryContext(ctx, `
			SELECT `+searchColumns+` FROM history
			WHERE cwd = ?
			ORDER BY ts DESC
			LIMIT ?
		`, cwd, limit)
	} else {
		rows, err = d.db.QueryContext(ctx, `
			SELECT `+searchColumns+` FROM history
			ORDER BY ts DESC
			LIMIT ?
		`, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("recent query: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// SearchFTS performs a full-text MATCH against the secondary index,
// ordered by rank then recency. On any FTS error (including drift-related
// failures) it falls back to the substring scan, which is always correct.
func (d *DB) SearchFTS(ctx context.Context, query string, opts SearchOptions) ([]Record, error) {
	if query == "" {
		return d.Search(ctx, query, opts)
	}
	limit := normalizeLimit(opts.Limit)

	rows, err := d.db.QueryContext(ctx, `
		SELECT h.id, h.cmd, h.cwd, h.exit_code, h.duration_ms, h.session, h.host, MAX(h.ts) AS ts, h.rank
		FROM history_fts f
		JOIN history h ON f.rowid = h.id
		WHERE history_fts MATCH ?
		  AND (? = '' OR h.cwd = ?)
		GROUP BY h.cmd
		ORDER BY h.rank DESC, ts DESC
		LIMIT ?
	`, escapeFTSQuery(query), opts.Cwd, opts.Cwd, limit)
	if err != nil {
		d.logger.Debug("FTS search failed; falling back to scan", "error", err)
		return d.Search(ctx, query, opts)
	}
	defer rows.Close()

	results, err := scanRecords(rows)
	if err != nil {
		return d.Search(ctx, query, opts)
	}
	return results, nil
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	var records []Record
	for rows.Next() {
		var r Record
		if err := rows.Scan(
			&r.ID, &r.Cmd, &r.Cwd, &r.ExitCode, &r.DurationMs,
			&r.Session, &r.Host, &r.TS, &r.Rank,
		); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultSearchLimit
	}
	if limit > MaxSearchLimit {
		return MaxSearchLimit
	}
	return limit
}

// EscapeLike escapes LIKE pattern metacharacters so a typed %, _ or
// backslash matches literally. Pair with ESCAPE '\' in the query.
func EscapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `%`, `\%`)
	s = strings.ReplaceAll(s, `_`, `\_`)
	return s
}

// escapeFTSQuery quotes a query for FTS5 MATCH so user input is treated as
// a literal phrase rather than query syntax.
func escapeFTSQuery(query string) string {
	return `"` + strings.ReplaceAll(query, `"`, `""`) + `"`
}
