// Package list provides list display components for the TUI.
package list

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/context-cache/ctxc/internal/cli/tui/styles"
	"github.com/context-cache/ctxc/internal/core/domain"
)

// ResultList displays ranked retrieval results in a navigable list.
type ResultList struct {
	results  []domain.ResultItem
	selected int
	styles   *styles.Styles
	width    int
	height   int
}

// NewResultList creates a new result list component.
func NewResultList(s *styles.Styles) *ResultList {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &ResultList{
		styles: s,
		width:  80,
		height: 20,
	}
}

// Update handles list navigation messages.
func (r *ResultList) Update(msg tea.Msg) (*ResultList, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "up", "k":
			r.MoveUp()
		case "down", "j":
			r.MoveDown()
		}
	}
	return r, nil
}

// View renders the result list.
func (r *ResultList) View() string {
	if len(r.results) == 0 {
		return r.styles.Muted.Render("no results yet")
	}

	lines := make([]string, 0, len(r.results)*2+2)
	lines = append(lines, r.styles.Subtitle.Render(fmt.Sprintf("Results (%d)", len(r.results))), "")

	visibleCount := (r.height - 4) / 3
	if visibleCount < 1 {
		visibleCount = 1
	}

	start := 0
	if r.selected >= visibleCount {
		start = r.selected - visibleCount + 1
	}
	end := start + visibleCount
	if end > len(r.results) {
		end = len(r.results)
	}

	for i := start; i < end; i++ {
		lines = append(lines, r.renderResult(i, &r.results[i]))
	}

	return strings.Join(lines, "\n")
}

func (r *ResultList) renderResult(index int, item *domain.ResultItem) string {
	indicator := "  "
	if index == r.selected {
		indicator = "> "
	}

	title := item.Title
	if title == "" {
		title = "(untitled)"
	}
	maxTitleLen := r.width - 20
	if maxTitleLen < 10 {
		maxTitleLen = 10
	}
	if len(title) > maxTitleLen {
		title = title[:maxTitleLen-3] + "..."
	}

	score := fmt.Sprintf("%.3f", item.Score)

	var titleLine string
	if index == r.selected {
		titleLine = r.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, maxTitleLen, title, score))
	} else {
		titleLine = r.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, maxTitleLen, title)) +
			r.styles.Muted.Render(score)
	}

	snippet := item.Snippet
	maxSnippetLen := r.width - 6
	if maxSnippetLen < 20 {
		maxSnippetLen = 20
	}
	if len(snippet) > maxSnippetLen {
		snippet = snippet[:maxSnippetLen-3] + "..."
	}
	snippetLine := r.styles.Muted.Render("    " + snippet)

	var pathLine string
	if item.Provenance.Path != "" {
		pathLine = "\n" + r.styles.Subtitle.Render("    "+item.Provenance.Path)
	}

	return titleLine + pathLine + "\n" + snippetLine
}

// SetResults replaces the displayed results and resets the selection.
func (r *ResultList) SetResults(results []domain.ResultItem) {
	r.results = results
	r.selected = 0
}

// SelectedResult returns the currently selected result, or nil if none.
func (r *ResultList) SelectedResult() *domain.ResultItem {
	if len(r.results) == 0 || r.selected < 0 || r.selected >= len(r.results) {
		return nil
	}
	return &r.results[r.selected]
}

// MoveUp moves the selection up by one.
func (r *ResultList) MoveUp() {
	if r.selected > 0 {
		r.selected--
	}
}

// MoveDown moves the selection down by one.
func (r *ResultList) MoveDown() {
	if r.selected < len(r.results)-1 {
		r.selected++
	}
}

// SetDimensions sets the component's render width and height.
func (r *ResultList) SetDimensions(width, height int) {
	r.width = width
	r.height = height
}
