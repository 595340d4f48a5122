// Package status provides a status bar component for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/context-cache/ctxc/internal/cli/tui/keymap"
	"github.com/context-cache/ctxc/internal/cli/tui/styles"
)

// State represents the current application state for display.
type State string

const (
	StateReady     State = "ready"
	StateSearching State = "searching"
	StateError     State = "error"
	StateResults   State = "results"
)

// Bar displays application state and keybinding hints.
type Bar struct {
	styles      *styles.Styles
	keymap      *keymap.KeyMap
	state       State
	message     string
	resultCount int
	width       int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}
	return &Bar{styles: s, keymap: km, state: StateReady, width: 80}
}

// View renders the status bar.
func (b *Bar) View() string {
	left := b.renderLeft()
	right := b.renderRight()

	padding := b.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return b.styles.StatusBar.Width(b.width).Render(left + strings.Repeat(" ", padding) + right)
}

func (b *Bar) renderLeft() string {
	switch b.state {
	case StateSearching:
		return b.styles.Muted.Render("searching...")
	case StateError:
		if b.message != "" {
			return b.styles.Error.Render(fmt.Sprintf("error: %s", b.message))
		}
		return b.styles.Error.Render("error")
	case StateReady, StateResults:
		if b.resultCount > 0 {
			return b.styles.Normal.Render(fmt.Sprintf("%d results", b.resultCount))
		}
		return b.styles.Muted.Render("ready")
	}
	return b.styles.Muted.Render("ready")
}

func (b *Bar) renderRight() string {
	bindings := b.keymap.ShortHelp()
	hints := make([]string, 0, len(bindings))
	for _, bind := range bindings {
		h := bind.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return b.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current display state.
func (b *Bar) SetState(state State) { b.state = state }

// SetMessage sets the status message shown alongside error state.
func (b *Bar) SetMessage(message string) { b.message = message }

// SetResultCount sets the result count shown in ready/results state.
func (b *Bar) SetResultCount(count int) { b.resultCount = count }

// SetWidth sets the bar's render width.
func (b *Bar) SetWidth(width int) { b.width = width }
