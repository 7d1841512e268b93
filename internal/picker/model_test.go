package picker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runger/recall/internal/store"
)

// --- Mock provider ---

type mockProvider struct {
	items []string
	err   error
	calls int
	last  Request
}

func (p *mockProvider) Fetch(ctx context.Context, req Request) (Response, error) {
	p.calls++
	p.last = req
	if p.err != nil {
		return Response{}, p.err
	}
	return Response{RequestID: req.RequestID, Items: p.items}, nil
}

func newTestModel(p Provider) Model {
	m := NewModel(p, "/repo")
	m.width = 80
	m.height = 24
	return m
}

// runCmd executes a tea.Cmd synchronously and returns the resulting message.
func runCmd(cmd tea.Cmd) tea.Msg {
	if cmd == nil {
		return nil
	}
	return cmd()
}

// fetchAndApply triggers the initial fetch and feeds the response back in.
func fetchAndApply(t *testing.T, m Model) Model {
	t.Helper()

	next, cmd := m.Update(initMsg{})
	m = next.(Model)
	require.NotNil(t, cmd)

	msg := runCmd(cmd)
	require.IsType(t, fetchDoneMsg{}, msg)

	next, _ = m.Update(msg)
	return next.(Model)
}

func TestModel_LoadsItemsOnInit(t *testing.T) {
	p := &mockProvider{items: []string{"git status", "ls -la"}}
	m := fetchAndApply(t, newTestModel(p))

	assert.Equal(t, stateLoaded, m.state)
	assert.Equal(t, []string{"git status", "ls -la"}, m.items)
	assert.Equal(t, 0, m.selection)
}

func TestModel_EmptyState(t *testing.T) {
	m := fetchAndApply(t, newTestModel(&mockProvider{}))

	assert.Equal(t, stateEmpty, m.state)
	assert.Equal(t, -1, m.selection)
	assert.Contains(t, m.View(), "No matches")
}

func TestModel_ErrorState(t *testing.T) {
	p := &mockProvider{err: errors.New("database gone")}
	m := fetchAndApply(t, newTestModel(p))

	assert.Equal(t, stateError, m.state)
	assert.Contains(t, m.View(), "database gone")
}

func TestModel_StaleResponseDiscarded(t *testing.T) {
	p := &mockProvider{items: []string{"fresh"}}
	m := newTestModel(p)

	next, _ := m.Update(initMsg{})
	m = next.(Model)

	// A response from a superseded request must not land.
	next, _ = m.Update(fetchDoneMsg{requestID: m.requestID - 1, items: []string{"stale"}})
	m = next.(Model)
	assert.Equal(t, stateLoading, m.state)
	assert.Empty(t, m.items)

	next, _ = m.Update(fetchDoneMsg{requestID: m.requestID, items: []string{"fresh"}})
	m = next.(Model)
	assert.Equal(t, []string{"fresh"}, m.items)
}

func TestModel_SelectionNavigation(t *testing.T) {
	p := &mockProvider{items: []string{"a", "b", "c"}}
	m := fetchAndApply(t, newTestModel(p))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 1, m.selection)

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	assert.Equal(t, 2, m.selection, "selection must not run past the end")

	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyUp})
	m = next.(Model)
	assert.Equal(t, 1, m.selection)
}

func TestModel_EnterReturnsSelection(t *testing.T) {
	p := &mockProvider{items: []string{"first", "second"}}
	m := fetchAndApply(t, newTestModel(p))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m = next.(Model)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)

	assert.Equal(t, "second", m.Result())
	assert.NotNil(t, cmd, "Enter should quit")
}

func TestModel_EscCancelsWithEmptyResult(t *testing.T) {
	p := &mockProvider{items: []string{"first"}}
	m := fetchAndApply(t, newTestModel(p))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	m = next.(Model)

	assert.Equal(t, "", m.Result())
	assert.NotNil(t, cmd)
}

func TestModel_TypingDebouncesFetch(t *testing.T) {
	p := &mockProvider{items: []string{"git status"}}
	m := fetchAndApply(t, newTestModel(p))
	callsAfterInit := p.calls

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Equal(t, callsAfterInit, p.calls, "fetch must wait for the debounce timer")

	// An obsolete timer id fires nothing.
	next, _ = m.Update(debounceMsg{id: m.debounceID - 1})
	m = next.(Model)
	assert.Equal(t, callsAfterInit, p.calls)

	// The current timer triggers the fetch.
	next, fetchCmd := m.Update(debounceMsg{id: m.debounceID})
	m = next.(Model)
	require.NotNil(t, fetchCmd)
	runCmd(fetchCmd)
	assert.Equal(t, callsAfterInit+1, p.calls)
	assert.Equal(t, "g", p.last.Query)
}

func TestModel_TabSwitchesScope(t *testing.T) {
	p := &mockProvider{items: []string{"x"}}
	m := fetchAndApply(t, newTestModel(p))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	require.NotNil(t, cmd)
	runCmd(cmd)

	assert.Equal(t, 1, m.activeScope)
	assert.Equal(t, "/repo", p.last.Cwd)

	next, cmd = m.Update(tea.KeyMsg{Type: tea.KeyTab})
	m = next.(Model)
	runCmd(cmd)
	assert.Equal(t, "", p.last.Cwd, "wrapping back to the global scope")
}

func TestModel_DebounceTimerFires(t *testing.T) {
	p := &mockProvider{items: []string{"git status"}}
	m := fetchAndApply(t, newTestModel(p))

	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("g")})
	m = next.(Model)
	require.NotNil(t, cmd)

	// The batched cmd includes the tick; run it for real.
	done := make(chan tea.Msg, 1)
	go func() { done <- runCmd(cmd) }()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("debounce timer never fired")
	}
}

// --- StoreProvider against a real database ---

func TestStoreProvider_Fetch(t *testing.T) {
	ctx := context.Background()
	d, err := store.Open(ctx, store.Options{
		Path:   filepath.Join(t.TempDir(), "history.db"),
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	require.NoError(t, err)
	defer d.Close()

	seed := []*store.Record{
		{Cmd: "git status", Cwd: "/repo", TS: 100},
		{Cmd: "ls\t-la", Cwd: "/tmp", TS: 200},
	}
	require.NoError(t, d.InsertBatch(ctx, seed))

	p := NewStoreProvider(d)

	resp, err := p.Fetch(ctx, Request{RequestID: 7, Query: "git", Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 7, resp.RequestID)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "git status", resp.Items[0])

	// Directory scope.
	resp, err = p.Fetch(ctx, Request{Query: "", Cwd: "/tmp", Limit: 10})
	require.NoError(t, err)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "ls -la", resp.Items[0], "tabs flattened for display")
}
