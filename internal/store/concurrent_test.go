package store

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
)

// Two handles on the same database file, standing in for the two processes
// sharing the store. WAL plus the busy timeout must serialize their writes
// without either side losing records.
func TestTwoHandles_InterleavedWrites(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()

	open := func() *DB {
		d, err := Open(ctx, Options{Path: dbPath, Logger: testLogger()})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		return d
	}

	a := open()
	defer a.Close()
	b := open()
	defer b.Close()

	const perWriter = 20
	var wg sync.WaitGroup
	errs := make(chan error, 2*perWriter)

	writer := func(d *DB, name string) {
		defer wg.Done()
		for i := 0; i < perWriter; i++ {
			r := &Record{Cmd: fmt.Sprintf("%s-%d", name, i), Cwd: "/tmp"}
			if err := d.InsertOne(ctx, r); err != nil {
				errs <- fmt.Errorf("%s insert %d: %w", name, i, err)
				return
			}
		}
	}

	wg.Add(2)
	go writer(a, "alpha")
	go writer(b, "beta")
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	records, err := a.Search(ctx, "", SearchOptions{Limit: 100})
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(records) != 2*perWriter {
		t.Errorf("Records = %d, want %d", len(records), 2*perWriter)
	}

	drift, err := a.CheckDrift(ctx)
	if err != nil {
		t.Fatalf("CheckDrift() error = %v", err)
	}
	if drift != nil {
		t.Errorf("Drift after concurrent writes = %+v, want none", drift)
	}
}

// A reader handle observes a writer's committed rows without blocking it.
func TestReaderSeesCommittedWrites(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "shared.db")
	ctx := context.Background()

	w, err := Open(ctx, Options{Path: dbPath, Logger: testLogger()})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer w.Close()

	r, err := Open(ctx, Options{Path: dbPath, Logger: testLogger(), ReadOnly: true})
	if err != nil {
		t.Fatalf("Read-only Open() error = %v", err)
	}
	defer r.Close()

	for i := 0; i < 5; i++ {
		if err := w.InsertOne(ctx, &Record{Cmd: fmt.Sprintf("cmd-%d", i), Cwd: "/tmp"}); err != nil {
			t.Fatalf("InsertOne() error = %v", err)
		}
		records, err := r.Search(ctx, "", SearchOptions{})
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(records) != i+1 {
			t.Errorf("Reader saw %d records after %d commits", len(records), i+1)
		}
	}
}
