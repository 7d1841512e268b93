package histfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/runger/recall/internal/store"
)

// ImportOptions configures a history import.
type ImportOptions struct {
	// Shell is "bash", "zsh", "fish" or "auto".
	Shell string

	// Path overrides the shell's conventional history file location.
	Path string

	// MaxEntries caps imported entries to the most recent N.
	// Zero means DefaultMaxEntries.
	MaxEntries int

	// Cwd is recorded on imported rows; history files carry no directory.
	// Empty means the current working directory.
	Cwd string

	// Session labels the imported rows.
	Session string

	// Logger for progress. Defaults to slog.Default().
	Logger *slog.Logger
}

// Result summarizes an import.
type Result struct {
	Shell    string
	Parsed   int
	Imported int
	Skipped  int
}

// Import parses a shell history file and appends its entries to the
// store, skipping commands the store already has at the same timestamp so
// reruns are idempotent. Entries without timestamps inherit the import
// time.
func Import(ctx context.Context, db *store.DB, opts ImportOptions) (*Result, error) {
	shell := opts.Shell
	if shell == "" || shell == "auto" {
		shell = DetectShell()
	}
	if shell == "" {
		return nil, fmt.Errorf("cannot detect shell; pass one of bash, zsh, fish")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	entries, err := ParseFile(shell, opts.Path)
	if err != nil {
		return nil, fmt.Errorf("parse %s history: %w", shell, err)
	}

	maxEntries := opts.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	entries = trimToLimit(entries, maxEntries)

	cwd := opts.Cwd
	if cwd == "" {
		if cwd, err = os.Getwd(); err != nil {
			cwd = "/"
		}
	}
	session := opts.Session
	if session == "" {
		session = "import"
	}
	host, _ := os.Hostname()

	existing, err := existingKeys(ctx, db)
	if err != nil {
		return nil, err
	}

	now := time.Now().Unix()
	result := &Result{Shell: shell, Parsed: len(entries)}

	var records []*store.Record
	for _, e := range entries {
		ts := e.Timestamp.Unix()
		if e.Timestamp.IsZero() {
			ts = now
		}
		if existing[importKey(e.Command, ts)] {
			result.Skipped++
			continue
		}
		existing[importKey(e.Command, ts)] = true
		records = append(records, &store.Record{
			Cmd:     e.Command,
			Cwd:     cwd,
			Session: session,
			Host:    host,
			TS:      ts,
		})
	}

	if len(records) > 0 {
		if err := db.InsertBatch(ctx, records); err != nil {
			return nil, fmt.Errorf("import batch: %w", err)
		}
	}
	result.Imported = len(records)

	logger.Info("history import complete",
		"shell", shell,
		"parsed", result.Parsed,
		"imported", result.Imported,
		"skipped", result.Skipped,
	)
	return result, nil
}

// existingKeys loads (cmd, ts) pairs already stored, for dedup.
func existingKeys(ctx context.Context, db *store.DB) (map[string]bool, error) {
	rows, err := db.DB().QueryContext(ctx, "SELECT cmd, ts FROM history")
	if err != nil {
		return nil, fmt.Errorf("scan existing history: %w", err)
	}
	defer rows.Close()

	keys := make(map[string]bool)
	for rows.Next() {
		var cmd string
		var ts int64
		if err := rows.Scan(&cmd, &ts); err != nil {
			return nil, err
		}
		keys[importKey(cmd, ts)] = true
	}
	return keys, rows.Err()
}

func importKey(cmd string, ts int64) string {
	return fmt.Sprintf("%d\x00%s", ts, cmd)
}
