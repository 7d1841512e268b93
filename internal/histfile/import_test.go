package histfile

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/recall/internal/store"
)

func newImportDB(t *testing.T) *store.DB {
	t.Helper()

	d, err := store.Open(context.Background(), store.Options{
		Path:   filepath.Join(t.TempDir(), "history.db"),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	t.Cleanup(func() { d.Close() })
	return d
}

func writeHistFile(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "histfile")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestImport_Bash(t *testing.T) {
	d := newImportDB(t)
	path := writeHistFile(t, "#1706000001\nls -la\n#1706000002\ngit status\n")

	result, err := Import(context.Background(), d, ImportOptions{
		Shell:  "bash",
		Path:   path,
		Cwd:    "/imported",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Parsed)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Skipped)

	records, err := d.Search(context.Background(), "", store.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "/imported", records[0].Cwd)
	assert.Equal(t, "import", records[0].Session)
}

func TestImport_RerunIsIdempotent(t *testing.T) {
	d := newImportDB(t)
	path := writeHistFile(t, "#1706000001\nls -la\n#1706000002\ngit status\n")
	ctx := context.Background()
	opts := ImportOptions{
		Shell:  "bash",
		Path:   path,
		Cwd:    "/imported",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	_, err := Import(ctx, d, opts)
	require.NoError(t, err)

	second, err := Import(ctx, d, opts)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Imported)
	assert.Equal(t, 2, second.Skipped)

	records, err := d.Search(ctx, "", store.SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestImport_DedupsWithinFile(t *testing.T) {
	d := newImportDB(t)
	path := writeHistFile(t, "#1706000001\nls\n#1706000001\nls\n")

	result, err := Import(context.Background(), d, ImportOptions{
		Shell:  "bash",
		Path:   path,
		Cwd:    "/imported",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Skipped)
}

func TestImport_RespectsMaxEntries(t *testing.T) {
	d := newImportDB(t)
	path := writeHistFile(t, "#1\none\n#2\ntwo\n#3\nthree\n")

	result, err := Import(context.Background(), d, ImportOptions{
		Shell:      "bash",
		Path:       path,
		Cwd:        "/imported",
		MaxEntries: 2,
		Logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Parsed)
	assert.Equal(t, 2, result.Imported)

	// The most recent entries survive the cap.
	records, err := d.Search(context.Background(), "", store.SearchOptions{})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "three", records[0].Cmd)
}

func TestImport_RankedAfterImport(t *testing.T) {
	d := newImportDB(t)
	path := writeHistFile(t, "#1706000001\ngit status\n#1706000002\ngit status\n")

	_, err := Import(context.Background(), d, ImportOptions{
		Shell:  "bash",
		Path:   path,
		Cwd:    "/imported",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)

	stat, err := d.GetStat(context.Background(), "git status")
	require.NoError(t, err)
	require.NotNil(t, stat)
	assert.EqualValues(t, 2, stat.Count)
	assert.EqualValues(t, 1706000002, stat.LastUsed)
}

func TestImport_UnknownShell(t *testing.T) {
	d := newImportDB(t)
	t.Setenv("SHELL", "/bin/weirdsh")

	_, err := Import(context.Background(), d, ImportOptions{
		Shell:  "auto",
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	assert.Error(t, err)
}
