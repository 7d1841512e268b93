package store

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestOpen_CreatesDatabase(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "history.db")

	d, err := Open(context.Background(), Options{Path: dbPath, Logger: testLogger()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Error("Database file was not created")
	}
}

func TestOpen_CreatesDirectory(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "nested", "deeper", "history.db")

	d, err := Open(context.Background(), Options{Path: dbPath, Logger: testLogger()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	if _, err := os.Stat(filepath.Dir(dbPath)); os.IsNotExist(err) {
		t.Error("Database directory was not created")
	}
}

func TestOpen_SchemaObjectsExist(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	defer d.Close()

	if err := d.Validate(context.Background()); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestOpen_WALModeEnabled(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	defer d.Close()

	var journalMode string
	err := d.DB().QueryRowContext(context.Background(),
		"PRAGMA journal_mode").Scan(&journalMode)
	if err != nil {
		t.Fatalf("Failed to check journal mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Journal mode = %s, want wal", journalMode)
	}
}

func TestOpen_SchemaVersion(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	defer d.Close()

	version, err := d.Version(context.Background())
	if err != nil {
		t.Fatalf("Version() error = %v", err)
	}
	if version != SchemaVersion {
		t.Errorf("Schema version = %d, want %d", version, SchemaVersion)
	}
}

func TestOpen_Reopen(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "history.db")
	ctx := context.Background()

	d, err := Open(ctx, Options{Path: dbPath, Logger: testLogger()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := d.InsertOne(ctx, &Record{Cmd: "ls", Cwd: "/tmp"}); err != nil {
		t.Fatalf("InsertOne() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	d2, err := Open(ctx, Options{Path: dbPath, Logger: testLogger()})
	if err != nil {
		t.Fatalf("Reopen error = %v", err)
	}
	defer d2.Close()

	records, err := d2.Search(ctx, "", SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Records after reopen = %d, want 1", len(records))
	}
}

func TestClose_Idempotent(t *testing.T) {
	t.Parallel()

	d := newTestDB(t)
	if err := d.Close(); err != nil {
		t.Fatalf("First Close() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("Second Close() error = %v", err)
	}
}

func TestOpen_ReadOnly(t *testing.T) {
	t.Parallel()

	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "history.db")
	ctx := context.Background()

	// Writer creates the schema first.
	w, err := Open(ctx, Options{Path: dbPath, Logger: testLogger()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if err := w.InsertOne(ctx, &Record{Cmd: "ls", Cwd: "/tmp"}); err != nil {
		t.Fatalf("InsertOne() error = %v", err)
	}
	defer w.Close()

	r, err := Open(ctx, Options{Path: dbPath, Logger: testLogger(), ReadOnly: true})
	if err != nil {
		t.Fatalf("Read-only Open() error = %v", err)
	}
	defer r.Close()

	records, err := r.Search(ctx, "", SearchOptions{})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(records) != 1 {
		t.Errorf("Records via read-only handle = %d, want 1", len(records))
	}

	if err := r.InsertOne(ctx, &Record{Cmd: "rm", Cwd: "/tmp"}); err == nil {
		t.Error("InsertOne() on read-only handle succeeded, want error")
	}
}

func TestDefaultDBPath_XDGDataHome(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")

	path, err := DefaultDBPath()
	if err != nil {
		t.Fatalf("DefaultDBPath() error = %v", err)
	}
	want := filepath.Join("/custom/data", "recall", "history.db")
	if path != want {
		t.Errorf("DefaultDBPath() = %s, want %s", path, want)
	}
}

func TestDSN_ReadOnly(t *testing.T) {
	t.Parallel()

	dsn := DSN("/tmp/x.db", 0, true)
	if want := "mode=ro"; !contains(dsn, want) {
		t.Errorf("DSN = %s, missing %s", dsn, want)
	}
	if want := "busy_timeout(5000)"; !contains(dsn, want) {
		t.Errorf("DSN = %s, missing default %s", dsn, want)
	}
}

func contains(s, sub string) bool {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return true
		}
	}
	return false
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDB(t *testing.T) *DB {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	d, err := Open(context.Background(), Options{Path: dbPath, Logger: testLogger()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return d
}
