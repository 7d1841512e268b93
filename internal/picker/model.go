package picker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// debounceInterval is the delay after the last keystroke before a fetch.
const debounceInterval = 100 * time.Millisecond

// pickerState is the picker's state machine.
type pickerState int

const (
	stateIdle    pickerState = iota // Before the first fetch
	stateLoading                    // Fetch in flight
	stateLoaded                     // Items on screen
	stateEmpty                      // Fetch succeeded with no items
	stateError                      // Fetch failed
	stateDone                       // User picked or cancelled
)

// Scope names a filter tab.
type Scope struct {
	Label string
	Cwd   string // Non-empty restricts results to this directory
}

// fetchDoneMsg is sent when an async Provider.Fetch completes.
type fetchDoneMsg struct {
	requestID uint64
	items     []string
	err       error
}

// debounceMsg fires after the debounce timer expires.
type debounceMsg struct {
	id uint64
}

// initMsg triggers the first fetch through Update, where state mutations
// are visible to the Bubble Tea runtime.
type initMsg struct{}

// Model is the Bubble Tea model for the history picker.
type Model struct {
	state       pickerState
	scopes      []Scope
	activeScope int
	items       []string
	selection   int // Index into items; -1 when empty
	input       textinput.Model
	err         error

	requestID   uint64 // Monotonic, for stale response detection
	debounceID  uint64 // Latest debounce timer
	provider    Provider
	cancelFetch context.CancelFunc

	width  int
	height int

	result string
}

// NewModel creates a picker over the given provider. cwd, when non-empty,
// adds a directory-scoped tab alongside the global one.
func NewModel(provider Provider, cwd string) Model {
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "search history"
	input.Focus()

	scopes := []Scope{{Label: "All"}}
	if cwd != "" {
		scopes = append(scopes, Scope{Label: "This directory", Cwd: cwd})
	}

	return Model{
		state:     stateIdle,
		scopes:    scopes,
		selection: -1,
		input:     input,
		provider:  provider,
	}
}

// Result returns the selected command, or "" if cancelled.
func (m Model) Result() string {
	return m.result
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, func() tea.Msg { return initMsg{} })
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case fetchDoneMsg:
		return m.handleFetchDone(msg)

	case debounceMsg:
		if msg.id != m.debounceID {
			return m, nil // Stale timer
		}
		return m, m.startFetch()

	case initMsg:
		return m, m.startFetch()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc, tea.KeyCtrlC:
		m.state = stateDone
		m.cancelInflight()
		return m, tea.Quit

	case tea.KeyEnter:
		if m.selection >= 0 && m.selection < len(m.items) {
			m.result = m.items[m.selection]
		}
		m.state = stateDone
		m.cancelInflight()
		return m, tea.Quit

	case tea.KeyUp, tea.KeyCtrlP:
		if m.selection > 0 {
			m.selection--
		}
		return m, nil

	case tea.KeyDown, tea.KeyCtrlN:
		if m.selection < len(m.items)-1 {
			m.selection++
		}
		return m, nil

	case tea.KeyTab:
		if len(m.scopes) > 1 {
			m.activeScope = (m.activeScope + 1) % len(m.scopes)
			return m, m.startFetch()
		}
		return m, nil
	}

	// Everything else edits the query.
	before := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.input.Value() != before {
		return m, tea.Batch(cmd, m.startDebounce())
	}
	return m, cmd
}

func (m Model) handleFetchDone(msg fetchDoneMsg) (tea.Model, tea.Cmd) {
	// A response for an older query; a newer fetch is already in flight.
	if msg.requestID != m.requestID {
		return m, nil
	}

	if msg.err != nil {
		m.state = stateError
		m.err = msg.err
		m.items = nil
		m.selection = -1
		return m, nil
	}

	m.items = msg.items
	m.err = nil
	if len(m.items) == 0 {
		m.state = stateEmpty
		m.selection = -1
	} else {
		m.state = stateLoaded
		m.clampSelection()
	}
	return m, nil
}

func (m *Model) startDebounce() tea.Cmd {
	m.debounceID++
	id := m.debounceID
	return tea.Tick(debounceInterval, func(time.Time) tea.Msg {
		return debounceMsg{id: id}
	})
}

func (m *Model) startFetch() tea.Cmd {
	m.cancelInflight()
	m.requestID++
	m.state = stateLoading

	reqID := m.requestID
	ctx, cancel := context.WithCancel(context.Background())
	m.cancelFetch = cancel

	req := Request{
		RequestID: reqID,
		Query:     m.input.Value(),
		Cwd:       m.scopes[m.activeScope].Cwd,
		Limit:     m.listHeight(),
	}

	p := m.provider
	return func() tea.Msg {
		resp, err := p.Fetch(ctx, req)
		if err != nil {
			return fetchDoneMsg{requestID: reqID, err: err}
		}
		return fetchDoneMsg{requestID: reqID, items: resp.Items}
	}
}

func (m *Model) cancelInflight() {
	if m.cancelFetch != nil {
		m.cancelFetch()
		m.cancelFetch = nil
	}
}

func (m *Model) clampSelection() {
	if len(m.items) == 0 {
		m.selection = -1
		return
	}
	if m.selection < 0 {
		m.selection = 0
	}
	if m.selection >= len(m.items) {
		m.selection = len(m.items) - 1
	}
}

// listHeight returns the visible list rows: terminal height minus the
// scope bar, query line and status line.
func (m Model) listHeight() int {
	const chrome = 3
	h := m.height - chrome
	if h < 1 {
		h = 20 // Before the first WindowSizeMsg
	}
	return h
}

// --- View rendering ---

var (
	activeScopeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62"))
	inactiveScopeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	selectedStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	normalStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	errorStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle           = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// View implements tea.Model.
func (m Model) View() string {
	if m.state == stateDone {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.viewScopeBar())
	b.WriteRune('\n')
	b.WriteString(m.viewContent())
	b.WriteRune('\n')
	b.WriteString(m.input.View())
	return b.String()
}

func (m Model) viewScopeBar() string {
	var parts []string
	for i, scope := range m.scopes {
		label := " " + scope.Label + " "
		if i == m.activeScope {
			parts = append(parts, activeScopeStyle.Render(label))
		} else {
			parts = append(parts, inactiveScopeStyle.Render(label))
		}
	}
	return strings.Join(parts, " ")
}

func (m Model) viewContent() string {
	switch m.state {
	case stateIdle, stateLoading:
		return dimStyle.Render("Loading...")
	case stateEmpty:
		return dimStyle.Render("No matches")
	case stateError:
		return errorStyle.Render(fmt.Sprintf("Error: %s", m.err))
	case stateLoaded:
		return m.viewList()
	default:
		return ""
	}
}

func (m Model) viewList() string {
	var b strings.Builder
	maxItems := m.listHeight()
	for i, item := range m.items {
		if i >= maxItems {
			break
		}
		display := item
		if m.width > 4 {
			display = MiddleTruncate(display, m.width-4)
		}

		if i == m.selection {
			b.WriteString(selectedStyle.Render("> " + display))
		} else {
			b.WriteString(normalStyle.Render("  " + display))
		}
		if i < len(m.items)-1 && i < maxItems-1 {
			b.WriteRune('\n')
		}
	}
	return b.String()
}
