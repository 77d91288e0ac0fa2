// Package tui provides an interactive search terminal for clipsearch.
package tui

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/clipsearch/internal/core/domain"
	"github.com/custodia-labs/clipsearch/internal/core/ports/driving"
)

// ErrNoSearchService is returned when the model has nothing to query.
var ErrNoSearchService = errors.New("search service not available")

// searchCompleted carries a finished search back to the model.
type searchCompleted struct {
	query string
	resp  *domain.SearchResponse
	err   error
}

// Model is the search screen: a query input above a ranked result list.
type Model struct {
	styles *Styles
	keymap *KeyMap
	input  textinput.Model

	search driving.SearchService
	ctx    context.Context

	mode       domain.QueryMode
	results    []domain.ImageResult
	failures   []domain.RecordFailure
	selected   int
	searching  bool
	focusInput bool
	err        error

	width  int
	height int
}

// NewModel creates the search screen.
func NewModel(ctx context.Context, search driving.SearchService) *Model {
	ti := textinput.New()
	ti.Placeholder = "Describe an image..."
	ti.CharLimit = 2048
	ti.Width = 60
	ti.Focus()

	return &Model{
		styles:     NewStyles(nil),
		keymap:     DefaultKeyMap(),
		input:      ti,
		search:     search,
		ctx:        ctx,
		mode:       domain.QueryModeText,
		focusInput: true,
		width:      80,
		height:     24,
	}
}

// Init starts the cursor blinking.
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(msg.Width-20, 20)
		return m, nil

	case searchCompleted:
		m.searching = false
		m.err = msg.err
		m.selected = 0
		if msg.err != nil {
			m.results, m.failures = nil, nil
			return m, nil
		}
		m.results, m.failures = msg.resp.Results, msg.resp.Failures
		if len(m.results) > 0 {
			m.focusInput = false
			m.input.Blur()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keymap.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keymap.Mode):
		m.mode = nextMode(m.mode)
		m.input.Placeholder = placeholder(m.mode)
		return m, nil
	}

	if m.focusInput {
		if key.Matches(msg, m.keymap.Search) {
			query := strings.TrimSpace(m.input.Value())
			if query == "" || m.searching {
				return m, nil
			}
			m.searching = true
			return m, m.performSearch(m.mode, query)
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keymap.Up):
		if m.selected > 0 {
			m.selected--
		}
	case key.Matches(msg, m.keymap.Down):
		if m.selected < len(m.results)-1 {
			m.selected++
		}
	case key.Matches(msg, m.keymap.Edit), key.Matches(msg, m.keymap.Search):
		m.focusInput = true
		m.input.SetValue("")
		return m, m.input.Focus()
	}
	return m, nil
}

// performSearch runs the query off the update loop.
func (m *Model) performSearch(mode domain.QueryMode, query string) tea.Cmd {
	return func() tea.Msg {
		if m.search == nil {
			return searchCompleted{query: query, err: ErrNoSearchService}
		}
		value := query
		if mode == domain.QueryModeImage {
			data, err := os.ReadFile(query)
			if err != nil {
				return searchCompleted{query: query, err: fmt.Errorf("read image: %w", err)}
			}
			value = base64.StdEncoding.EncodeToString(data)
		}
		resp, err := m.search.Search(m.ctx, domain.SearchRequest{
			Input: domain.QueryInput{Mode: mode, Value: value},
		})
		return searchCompleted{query: query, resp: resp, err: err}
	}
}

func nextMode(mode domain.QueryMode) domain.QueryMode {
	modes := domain.AllQueryModes()
	for i, m := range modes {
		if m == mode {
			return modes[(i+1)%len(modes)]
		}
	}
	return domain.QueryModeText
}

func placeholder(mode domain.QueryMode) string {
	switch mode {
	case domain.QueryModeURL:
		return "https://..."
	case domain.QueryModeImage:
		return "path/to/image.jpg"
	default:
		return "Describe an image..."
	}
}

// View renders the screen.
func (m *Model) View() string {
	sections := make([]string, 0, 8)
	sections = append(sections, m.styles.Title.Render("clipsearch"), "")

	label := m.styles.Mode.Render(fmt.Sprintf("[%s] ", m.mode))
	sections = append(sections,
		lipgloss.JoinHorizontal(lipgloss.Center, label, m.styles.InputField.Render(m.input.View())), "")

	switch {
	case m.searching:
		sections = append(sections, m.styles.Muted.Render("Searching..."))
	case m.err != nil:
		sections = append(sections, m.styles.Error.Render("Error: "+m.err.Error()))
	default:
		sections = append(sections, m.renderResults())
	}

	sections = append(sections, "", m.styles.StatusBar.Render(m.statusLine()))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderResults() string {
	if len(m.results) == 0 {
		return m.styles.Muted.Render("No results.")
	}

	// Two lines per result; header, input and status take the rest.
	visible := max((m.height-10)/2, 1)
	start := 0
	if m.selected >= visible {
		start = m.selected - visible + 1
	}
	end := min(start+visible, len(m.results))

	lines := make([]string, 0, 2*(end-start)+len(m.failures))
	for i := start; i < end; i++ {
		r := m.results[i]
		line := fmt.Sprintf("%2d. %s  %s", i+1, m.styles.Score.Render(fmt.Sprintf("%.3f", r.Score)), r.URL)
		if i == m.selected && !m.focusInput {
			line = m.styles.Selected.Render(fmt.Sprintf("%2d. %.3f  %s", i+1, r.Score, r.URL))
		}
		lines = append(lines, line, "    "+m.styles.Muted.Render(r.Link))
	}
	for _, f := range m.failures {
		lines = append(lines, m.styles.Warning.Render(fmt.Sprintf("  ! %s: %s", f.LocalID, f.Message)))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) statusLine() string {
	help := "tab mode • enter search • esc quit"
	if !m.focusInput {
		help = "↑/↓ select • / new search • tab mode • esc quit"
	}
	if len(m.results) == 0 {
		return help
	}
	return fmt.Sprintf("%d results • %s", len(m.results), help)
}

// Results returns the current results.
func (m *Model) Results() []domain.ImageResult {
	return m.results
}

// Selected returns the selected result, or nil if there are none.
func (m *Model) Selected() *domain.ImageResult {
	if m.selected < 0 || m.selected >= len(m.results) {
		return nil
	}
	return &m.results[m.selected]
}

// Mode returns the active query mode.
func (m *Model) Mode() domain.QueryMode {
	return m.mode
}

// Err returns the last search error.
func (m *Model) Err() error {
	return m.err
}

// InputFocused reports whether keystrokes go to the query input.
func (m *Model) InputFocused() bool {
	return m.focusInput
}

// Run starts the interactive program and blocks until the user quits.
func Run(ctx context.Context, search driving.SearchService) error {
	p := tea.NewProgram(NewModel(ctx, search), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
