package predict

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/runger/recall/internal/store"
)

func newSeededDB(t *testing.T, records []*store.Record) string {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "history.db")
	d, err := store.Open(context.Background(), store.Options{
		Path:   dbPath,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer d.Close()

	if len(records) > 0 {
		if err := d.InsertBatch(context.Background(), records); err != nil {
			t.Fatalf("InsertBatch() error = %v", err)
		}
	}
	return dbPath
}

func TestPool_AcquireRelease(t *testing.T) {
	t.Parallel()

	dbPath := newSeededDB(t, nil)
	p, err := NewPool(dbPath, 2)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	defer p.Close()
	ctx := context.Background()

	conn, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if p.InUse() != 1 {
		t.Errorf("InUse = %d, want 1", p.InUse())
	}

	p.Release(conn)
	if p.InUse() != 0 {
		t.Errorf("InUse after release = %d, want 0", p.InUse())
	}
}

func TestPool_FailsFastWhenExhausted(t *testing.T) {
	t.Parallel()

	dbPath := newSeededDB(t, nil)
	p, err := NewPool(dbPath, 2)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	defer p.Close()
	ctx := context.Background()

	var held []*sql.Conn
	for i := 0; i < 2; i++ {
		conn, err := p.Acquire(ctx)
		if err != nil {
			t.Fatalf("Acquire() #%d error = %v", i+1, err)
		}
		held = append(held, conn)
	}

	// The pool at capacity rejects immediately rather than queueing.
	if _, err := p.Acquire(ctx); !errors.Is(err, ErrPoolExhausted) {
		t.Errorf("Acquire() beyond capacity error = %v, want ErrPoolExhausted", err)
	}

	p.Release(held[0])
	conn, err := p.Acquire(ctx)
	if err != nil {
		t.Errorf("Acquire() after release error = %v", err)
	}
	p.Release(conn)
	p.Release(held[1])
}

func TestPool_ReadOnlyRejectsWrites(t *testing.T) {
	t.Parallel()

	dbPath := newSeededDB(t, nil)
	p, err := NewPool(dbPath, 0)
	if err != nil {
		t.Fatalf("NewPool() error = %v", err)
	}
	defer p.Close()
	ctx := context.Background()

	conn, err := p.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	defer p.Release(conn)

	_, err = conn.ExecContext(ctx,
		"INSERT INTO history (cmd, cwd, ts, rank) VALUES ('x', '/', 1, 0)")
	if err == nil {
		t.Error("Write through read-only pool succeeded, want error")
	}
}
