// Package store provides SQLite-based persistence for shell command history.
// It owns the schema, the durable write path, the frecency ranking tables,
// and the full-text index kept in sync with the history table via triggers.
package store

// SchemaVersion is the current supported schema version.
// Opening a database with a newer version fails rather than risking
// corruption from old code against a new schema.
const SchemaVersion = 1

// schemaV1 creates the complete initial schema.
//
// history is the append-only command log. Rows are never mutated after
// insert except for the rank column, which is owned by the ranking engine.
//
// history_fts is an external-content FTS5 index over history(cmd). The
// triggers keep it exactly in sync: updates are applied as delete+insert
// (never overwrite-in-place) so the FTS engine's postings stay consistent.
const schemaV1 = `
-- Command history (append-only; rank is the only mutable column)
CREATE TABLE IF NOT EXISTS history (
  id            INTEGER PRIMARY KEY AUTOINCREMENT,
  cmd           TEXT NOT NULL,
  cwd           TEXT NOT NULL,
  exit_code     INTEGER NOT NULL DEFAULT 0,
  duration_ms   INTEGER NOT NULL DEFAULT 0,
  session       TEXT NOT NULL,
  host          TEXT NOT NULL,
  ts            INTEGER NOT NULL,
  rank          REAL NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_history_ts ON history(ts);
CREATE INDEX IF NOT EXISTS idx_history_cmd ON history(cmd);
CREATE INDEX IF NOT EXISTS idx_history_cwd_ts ON history(cwd, ts);
CREATE INDEX IF NOT EXISTS idx_history_rank ON history(rank DESC, ts DESC);

-- Per-command frequency/recency aggregate, keyed by a stable hash of cmd
CREATE TABLE IF NOT EXISTS command_stats (
  cmd_hash      TEXT PRIMARY KEY,
  cmd           TEXT NOT NULL,
  count         INTEGER NOT NULL,
  last_used     INTEGER NOT NULL
);

-- Full-text index over command text (external content)
CREATE VIRTUAL TABLE IF NOT EXISTS history_fts USING fts5(
  cmd,
  content='history',
  content_rowid='id'
);

-- Sync triggers: keep history_fts an exact mirror of history(id, cmd)
CREATE TRIGGER IF NOT EXISTS history_ai AFTER INSERT ON history
BEGIN
  INSERT INTO history_fts(rowid, cmd) VALUES (NEW.id, NEW.cmd);
END;

CREATE TRIGGER IF NOT EXISTS history_ad AFTER DELETE ON history
BEGIN
  INSERT INTO history_fts(history_fts, rowid, cmd) VALUES ('delete', OLD.id, OLD.cmd);
END;

CREATE TRIGGER IF NOT EXISTS history_au AFTER UPDATE OF cmd ON history
BEGIN
  INSERT INTO history_fts(history_fts, rowid, cmd) VALUES ('delete', OLD.id, OLD.cmd);
  INSERT INTO history_fts(rowid, cmd) VALUES (NEW.id, NEW.cmd);
END;

-- Schema migrations tracking
CREATE TABLE IF NOT EXISTS schema_migrations (
  version     INTEGER PRIMARY KEY,
  applied_ts  INTEGER NOT NULL
);
`

// AllTables lists all tables for schema validation.
var AllTables = []string{
	"history",
	"command_stats",
	"history_fts",
	"schema_migrations",
}

// AllIndexes lists all indexes for schema validation.
var AllIndexes = []string{
	"idx_history_ts",
	"idx_history_cmd",
	"idx_history_cwd_ts",
	"idx_history_rank",
}

// AllTriggers lists all triggers for schema validation.
var AllTriggers = []string{
	"history_ai",
	"history_ad",
	"history_au",
}
