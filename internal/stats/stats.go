// Package stats aggregates history into usage reports.
package stats

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/shlex"

	"github.com/runger/recall/internal/store"
)

// DefaultTopN is the default number of rows per report section.
const DefaultTopN = 10

// Row is one line of a report section.
type Row struct {
	Label string
	Count int64
	Rank  float64
}

// Report is an aggregated view of the history.
type Report struct {
	TotalRecords   int64
	DistinctCmds   int64
	TopCommands    []Row // Highest frecency first
	TopPrograms    []Row // By invocation count of the head token
	TopDirectories []Row // By record count
}

// Gather builds a report from the store. nowSec fixes the frecency
// evaluation time (0 means now).
func Gather(ctx context.Context, db *store.DB, topN int, nowSec int64) (*Report, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}

	r := &Report{}

	err := db.DB().QueryRowContext(ctx,
		"SELECT COUNT(*), COUNT(DISTINCT cmd) FROM history",
	).Scan(&r.TotalRecords, &r.DistinctCmds)
	if err != nil {
		return nil, fmt.Errorf("count history: %w", err)
	}

	cmds, ranks, err := db.TopStats(ctx, topN, nowSec)
	if err != nil {
		return nil, fmt.Errorf("top commands: %w", err)
	}
	for i, s := range cmds {
		r.TopCommands = append(r.TopCommands, Row{Label: s.Cmd, Count: s.Count, Rank: ranks[i]})
	}

	if r.TopPrograms, err = topPrograms(ctx, db, topN); err != nil {
		return nil, err
	}
	if r.TopDirectories, err = topDirectories(ctx, db, topN); err != nil {
		return nil, err
	}
	return r, nil
}

// topPrograms aggregates command counts by head token (the program name).
func topPrograms(ctx context.Context, db *store.DB, topN int) ([]Row, error) {
	rows, err := db.DB().QueryContext(ctx, "SELECT cmd, count FROM command_stats")
	if err != nil {
		return nil, fmt.Errorf("scan command stats: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int64)
	for rows.Next() {
		var cmd string
		var count int64
		if err := rows.Scan(&cmd, &count); err != nil {
			return nil, err
		}
		if head := HeadToken(cmd); head != "" {
			counts[head] += count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sortedRows(counts, topN), nil
}

// topDirectories aggregates record counts by working directory.
func topDirectories(ctx context.Context, db *store.DB, topN int) ([]Row, error) {
	rows, err := db.DB().QueryContext(ctx, `
		SELECT cwd, COUNT(*) FROM history GROUP BY cwd ORDER BY COUNT(*) DESC LIMIT ?
	`, topN)
	if err != nil {
		return nil, fmt.Errorf("scan directories: %w", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.Label, &row.Count); err != nil {
			return nil, err
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

func sortedRows(counts map[string]int64, topN int) []Row {
	result := make([]Row, 0, len(counts))
	for label, count := range counts {
		result = append(result, Row{Label: label, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Label < result[j].Label
	})
	if len(result) > topN {
		result = result[:topN]
	}
	return result
}

// HeadToken extracts the program name from a command line, skipping
// leading environment assignments and sudo. Falls back to whitespace
// splitting when the line has shell syntax shlex cannot parse.
func HeadToken(cmd string) string {
	tokens, err := shlex.Split(cmd)
	if err != nil {
		tokens = strings.Fields(cmd)
	}

	for _, tok := range tokens {
		if tok == "sudo" || tok == "env" {
			continue
		}
		if isEnvAssignment(tok) {
			continue
		}
		return tok
	}
	return ""
}

func isEnvAssignment(tok string) bool {
	idx := strings.Index(tok, "=")
	if idx <= 0 {
		return false
	}
	for _, r := range tok[:idx] {
		if r != '_' && (r < 'A' || r > 'Z') && (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}
