// Package input provides text input components for the TUI.
package input

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/context-cache/ctxc/internal/cli/tui/styles"
)

// QueryInput wraps a bubbles textinput with query-specific styling.
type QueryInput struct {
	textinput textinput.Model
	styles    *styles.Styles
	width     int
}

// NewQueryInput creates a new query input component.
func NewQueryInput(s *styles.Styles) *QueryInput {
	if s == nil {
		s = styles.DefaultStyles()
	}

	ti := textinput.New()
	ti.Placeholder = "ask the cache..."
	ti.Focus()
	ti.CharLimit = 512
	ti.Width = 50

	return &QueryInput{textinput: ti, styles: s, width: 50}
}

// Init initialises the query input.
func (q *QueryInput) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles input messages.
func (q *QueryInput) Update(msg tea.Msg) (*QueryInput, tea.Cmd) {
	var cmd tea.Cmd
	q.textinput, cmd = q.textinput.Update(msg)
	return q, cmd
}

// View renders the query input.
func (q *QueryInput) View() string {
	label := q.styles.Title.Render("query> ")
	field := q.styles.InputField.Render(q.textinput.View())
	return lipgloss.JoinHorizontal(lipgloss.Center, label, field)
}

// Value returns the current input value.
func (q *QueryInput) Value() string {
	return q.textinput.Value()
}

// SetWidth sets the width of the input, leaving room for its label.
func (q *QueryInput) SetWidth(width int) {
	q.width = width
	inputWidth := width - 10
	if inputWidth < 20 {
		inputWidth = 20
	}
	q.textinput.Width = inputWidth
}

// Reset clears the input.
func (q *QueryInput) Reset() {
	q.textinput.Reset()
}
