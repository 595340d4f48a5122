// Package tui provides an interactive terminal browser over query results
// and their provenance. It implements a driving adapter following the same
// hexagonal wiring as the HTTP and MCP adapters: it depends only on
// driving.Retriever, never on storage or retrieval internals.
package tui

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/context-cache/ctxc/internal/cli/tui/components/input"
	"github.com/context-cache/ctxc/internal/cli/tui/components/list"
	"github.com/context-cache/ctxc/internal/cli/tui/components/status"
	"github.com/context-cache/ctxc/internal/cli/tui/keymap"
	"github.com/context-cache/ctxc/internal/cli/tui/styles"
	"github.com/context-cache/ctxc/internal/core/domain"
	"github.com/context-cache/ctxc/internal/core/ports/driving"
)

// queryCompletedMsg carries the result of a Query call back into Update.
type queryCompletedMsg struct {
	query   domain.Query
	results []domain.ResultItem
	err     error
}

// whyCompletedMsg carries the result of a Why replay back into Update.
type whyCompletedMsg struct {
	query   domain.Query
	results []domain.ResultItem
	err     error
}

// App is the Elm-architecture model driving the query browser.
type App struct {
	retriever driving.Retriever
	ctx       context.Context

	styles *styles.Styles
	keymap *keymap.KeyMap

	queryInput *input.QueryInput
	results    *list.ResultList
	statusBar  *status.Bar

	opts domain.RetrieveOptions

	lastQueryID string
	showingWhy  bool

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a query browser bound to the given retriever.
func NewApp(retriever driving.Retriever, opts domain.RetrieveOptions) *App {
	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	return &App{
		retriever:  retriever,
		ctx:        context.Background(),
		styles:     s,
		keymap:     km,
		queryInput: input.NewQueryInput(s),
		results:    list.NewResultList(s),
		statusBar:  status.NewBar(s, km),
		opts:       opts,
	}
}

// WithContext attaches a cancellation context to the app.
func (a *App) WithContext(ctx context.Context) *App {
	a.ctx = ctx
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(tea.EnterAltScreen, a.queryInput.Init())
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width, a.height = msg.Width, msg.Height
		a.ready = true
		a.queryInput.SetWidth(msg.Width)
		a.results.SetDimensions(msg.Width, msg.Height-6)
		a.statusBar.SetWidth(msg.Width)
		return a, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return a, tea.Quit
		case "enter":
			text := a.queryInput.Value()
			if text == "" {
				return a, nil
			}
			a.showingWhy = false
			a.statusBar.SetState(status.StateSearching)
			return a, a.runQuery(text)
		case "w":
			if a.lastQueryID == "" {
				return a, nil
			}
			a.statusBar.SetState(status.StateSearching)
			return a, a.runWhy(a.lastQueryID)
		case "up", "down", "k", "j":
			a.results, cmd = a.results.Update(msg)
			return a, cmd
		}
		a.queryInput, cmd = a.queryInput.Update(msg)
		return a, cmd

	case queryCompletedMsg:
		return a, a.applyResults(msg.query.ID, msg.results, msg.err)

	case whyCompletedMsg:
		a.showingWhy = true
		return a, a.applyResults(msg.query.ID, msg.results, msg.err)
	}

	a.queryInput, cmd = a.queryInput.Update(msg)
	return a, cmd
}

// applyResults pushes a retrieval outcome into the result list and status bar.
func (a *App) applyResults(queryID string, items []domain.ResultItem, err error) tea.Cmd {
	if err != nil {
		a.statusBar.SetState(status.StateError)
		a.statusBar.SetMessage(err.Error())
		return nil
	}
	a.lastQueryID = queryID
	a.results.SetResults(items)
	a.statusBar.SetState(status.StateResults)
	a.statusBar.SetResultCount(len(items))
	return nil
}

// runQuery issues a fresh retrieval as a tea.Cmd.
func (a *App) runQuery(text string) tea.Cmd {
	return func() tea.Msg {
		q, results, err := a.retriever.Query(a.ctx, text, a.opts)
		return queryCompletedMsg{query: q, results: results, err: err}
	}
}

// runWhy replays a prior query's frozen result set as a tea.Cmd.
func (a *App) runWhy(queryID string) tea.Cmd {
	return func() tea.Msg {
		q, results, err := a.retriever.Why(a.ctx, queryID)
		return whyCompletedMsg{query: q, results: results, err: err}
	}
}

// View implements tea.Model.
func (a *App) View() string {
	if !a.ready {
		return "initialising..."
	}

	header := a.styles.Title.Render("context-cache")
	if a.showingWhy {
		header += a.styles.Muted.Render("  (replaying " + a.lastQueryID + ")")
	}

	return fmt.Sprintf(
		"%s\n\n%s\n\n%s\n\n%s",
		header,
		a.queryInput.View(),
		a.results.View(),
		a.statusBar.View(),
	)
}

// Run starts the TUI program and blocks until the user quits.
func (a *App) Run() error {
	p := tea.NewProgram(a, tea.WithAltScreen())
	_, err := p.Run()
	return err
}
