// Package picker implements the interactive history picker TUI.
package picker

import (
	"context"

	"github.com/runger/recall/internal/store"
)

// Provider supplies items to the picker. The indirection keeps the TUI
// testable without a database.
type Provider interface {
	Fetch(ctx context.Context, req Request) (Response, error)
}

// Request describes what items the picker wants.
type Request struct {
	RequestID uint64 // Monotonically increasing, for stale response detection
	Query     string // Substring filter
	Cwd       string // Non-empty restricts to this directory
	Limit     int
}

// Response carries items back from a Provider.
type Response struct {
	RequestID uint64
	Items     []string // Command strings, sanitized for display
}

// StoreProvider serves picker requests straight from the history store.
type StoreProvider struct {
	db *store.DB
}

var _ Provider = (*StoreProvider)(nil)

// NewStoreProvider creates a provider over an open store handle.
func NewStoreProvider(db *store.DB) *StoreProvider {
	return &StoreProvider{db: db}
}

// Fetch runs the substring search and returns display-safe command strings.
func (p *StoreProvider) Fetch(ctx context.Context, req Request) (Response, error) {
	records, err := p.db.Search(ctx, req.Query, store.SearchOptions{
		Cwd:   req.Cwd,
		Limit: req.Limit,
	})
	if err != nil {
		return Response{}, err
	}

	items := make([]string, 0, len(records))
	for _, r := range records {
		items = append(items, CleanForDisplay(r.Cmd))
	}
	return Response{RequestID: req.RequestID, Items: items}, nil
}
