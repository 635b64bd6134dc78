package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/tributary/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/tributary/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/tributary/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/tributary/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driving"
)

// updateBuffer bounds run updates queued between renders.
const updateBuffer = 64

// App is the sync dashboard following the Elm architecture.
// It implements tea.Model for use with Bubbletea.
type App struct {
	ports *Ports

	// ctx scopes every sync started from the dashboard. Cancelling it
	// cancels in-flight runs.
	ctx    context.Context
	cancel context.CancelFunc

	styles    *styles.Styles
	keymap    *keymap.KeyMap
	statusBar *status.Bar
	spinner   spinner.Model

	connectors []domain.Connector
	runs       map[string]domain.SyncRun
	errs       map[string]error
	active     map[string]bool

	// updates carries observer callbacks from executor goroutines into
	// the update loop.
	updates chan domain.SyncRun

	cursor   int
	showHelp bool
	err      error

	width  int
	height int
	ready  bool
}

// Ensure App implements tea.Model.
var _ tea.Model = (*App)(nil)

// NewApp creates a new dashboard with the given ports.
func NewApp(ports *Ports) (*App, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("creating app: %w", err)
	}

	s := styles.DefaultStyles()
	km := keymap.DefaultKeyMap()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = s.Running

	a := &App{
		ports:     ports,
		styles:    s,
		keymap:    km,
		statusBar: status.NewBar(s, km),
		spinner:   sp,
		runs:      make(map[string]domain.SyncRun),
		errs:      make(map[string]error),
		active:    make(map[string]bool),
		updates:   make(chan domain.SyncRun, updateBuffer),
	}
	a.WithContext(context.Background())
	return a, nil
}

// WithContext sets the parent context for syncs started by the app.
func (a *App) WithContext(ctx context.Context) *App {
	if a.cancel != nil {
		a.cancel()
	}
	a.ctx, a.cancel = context.WithCancel(ctx)
	return a
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	a.statusBar.SetState(status.StateLoading)
	return tea.Batch(
		tea.SetWindowTitle("tributary - connector syncs"),
		a.loadCatalog(),
		a.waitForUpdate(),
		a.spinner.Tick,
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.SetDimensions(msg.Width, msg.Height)
		return a, nil

	case tea.KeyMsg:
		return a, a.handleKey(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case messages.CatalogLoaded:
		if msg.Err != nil {
			a.setError(msg.Err)
			return a, nil
		}
		a.connectors = msg.Connectors
		if a.cursor >= len(a.connectors) {
			a.cursor = max(len(a.connectors)-1, 0)
		}
		a.err = nil
		a.statusBar.Clear()
		a.refreshStatus()
		return a, nil

	case messages.RunUpdated:
		a.runs[msg.Run.ConnectorID] = msg.Run
		return a, a.waitForUpdate()

	case messages.SyncFinished:
		delete(a.active, msg.ConnectorID)
		if msg.Run != nil {
			a.runs[msg.ConnectorID] = *msg.Run
		}
		if msg.Err != nil {
			a.errs[msg.ConnectorID] = msg.Err
		} else {
			delete(a.errs, msg.ConnectorID)
		}
		a.refreshStatus()
		return a, nil

	case messages.ErrorOccurred:
		a.setError(msg.Err)
		return a, nil
	}

	return a, nil
}

func (a *App) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, a.keymap.Quit):
		a.cancel()
		return tea.Quit

	case key.Matches(msg, a.keymap.Help):
		a.showHelp = !a.showHelp
		if a.showHelp {
			a.statusBar.SetState(status.StateHelp)
		} else {
			a.refreshStatus()
		}
		return nil

	case key.Matches(msg, a.keymap.Up):
		if a.cursor > 0 {
			a.cursor--
		}
		return nil

	case key.Matches(msg, a.keymap.Down):
		if a.cursor < len(a.connectors)-1 {
			a.cursor++
		}
		return nil

	case key.Matches(msg, a.keymap.Sync):
		if conn := a.Selected(); conn != nil {
			return a.startSync(conn.ID)
		}
		return nil

	case key.Matches(msg, a.keymap.SyncAll):
		var cmds []tea.Cmd
		for i := range a.connectors {
			if a.connectors[i].IsPaused() {
				continue
			}
			if cmd := a.startSync(a.connectors[i].ID); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		return tea.Batch(cmds...)

	case key.Matches(msg, a.keymap.Refresh):
		a.statusBar.SetState(status.StateLoading)
		return a.loadCatalog()
	}
	return nil
}

// startSync marks the connector active and returns a command that runs the
// sync to completion. A connector already syncing is skipped.
func (a *App) startSync(connectorID string) tea.Cmd {
	if a.active[connectorID] {
		return nil
	}
	a.active[connectorID] = true
	delete(a.errs, connectorID)
	a.refreshStatus()

	ctx := a.ctx
	sync := a.ports.Sync
	updates := a.updates
	opts := driving.SyncOptions{
		Observer: func(run domain.SyncRun) {
			select {
			case updates <- run:
			case <-ctx.Done():
			}
		},
	}

	return func() tea.Msg {
		run, err := sync.Run(ctx, connectorID, opts)
		return messages.SyncFinished{ConnectorID: connectorID, Run: run, Err: err}
	}
}

func (a *App) loadCatalog() tea.Cmd {
	ctx := a.ctx
	catalog := a.ports.Catalog
	return func() tea.Msg {
		connectors, err := catalog.Load(ctx)
		return messages.CatalogLoaded{Connectors: connectors, Err: err}
	}
}

// waitForUpdate delivers the next observer callback as a message. It is
// re-armed after every RunUpdated.
func (a *App) waitForUpdate() tea.Cmd {
	ctx := a.ctx
	updates := a.updates
	return func() tea.Msg {
		select {
		case run := <-updates:
			return messages.RunUpdated{Run: run}
		case <-ctx.Done():
			return nil
		}
	}
}

func (a *App) setError(err error) {
	a.err = err
	a.statusBar.SetState(status.StateError)
	a.statusBar.SetMessage(err.Error())
}

func (a *App) refreshStatus() {
	a.statusBar.SetCounts(len(a.connectors), len(a.active))
	if a.showHelp || a.statusBar.State() == status.StateError {
		return
	}
	if len(a.active) > 0 {
		a.statusBar.SetState(status.StateSyncing)
	} else {
		a.statusBar.SetState(status.StateReady)
	}
}

// View implements tea.Model.
func (a *App) View() string {
	var b strings.Builder

	b.WriteString(a.styles.Title.Render("tributary"))
	b.WriteString(a.styles.Muted.Render("  connector syncs"))
	b.WriteString("\n\n")

	switch {
	case a.showHelp:
		b.WriteString(a.viewHelp())
	case len(a.connectors) == 0 && a.err == nil:
		b.WriteString(a.styles.Muted.Render("No connectors loaded."))
		b.WriteString("\n")
	default:
		b.WriteString(a.viewConnectors())
	}

	b.WriteString("\n")
	b.WriteString(a.statusBar.View())
	return b.String()
}

func (a *App) viewConnectors() string {
	var b strings.Builder
	for i := range a.connectors {
		conn := &a.connectors[i]

		cursor := "  "
		name := a.styles.Normal.Render(fmt.Sprintf("%-28s", conn.Name))
		if i == a.cursor {
			cursor = a.styles.Selected.Render("> ")
			name = a.styles.Selected.Render(fmt.Sprintf("%-28s", conn.Name))
		}

		fmt.Fprintf(&b, "%s%s %s %s\n",
			cursor, name,
			a.styles.Muted.Render(fmt.Sprintf("%-14s", conn.Service)),
			a.viewState(conn),
		)

		if err, ok := a.errs[conn.ID]; ok {
			b.WriteString("    " + a.styles.Error.Render(err.Error()) + "\n")
		} else if run, ok := a.runs[conn.ID]; ok && run.Error != "" && !a.active[conn.ID] {
			b.WriteString("    " + a.styles.Error.Render(run.Error) + "\n")
		}
	}
	return b.String()
}

func (a *App) viewState(conn *domain.Connector) string {
	run, hasRun := a.runs[conn.ID]

	if a.active[conn.ID] {
		state := domain.SyncTriggered
		if hasRun {
			state = run.State
		}
		label := state.String()
		if hasRun && run.Polls > 0 {
			label = fmt.Sprintf("%s (%d polls)", label, run.Polls)
		}
		return a.spinner.View() + " " + a.styles.ForState(state).Render(label)
	}

	if hasRun {
		label := run.State.String()
		if d := run.Duration(); d > 0 {
			label = fmt.Sprintf("%s in %s", label, d.Round(time.Second))
		}
		return a.styles.ForState(run.State).Render(label)
	}

	if conn.IsPaused() {
		return a.styles.Warning.Render("paused")
	}
	return a.styles.Muted.Render(string(conn.Status))
}

func (a *App) viewHelp() string {
	var b strings.Builder
	b.WriteString(a.styles.Subtitle.Render("Keys"))
	b.WriteString("\n")
	for _, group := range a.keymap.FullHelp() {
		for _, binding := range group {
			h := binding.Help()
			fmt.Fprintf(&b, "  %-6s %s\n", h.Key, a.styles.Help.Render(h.Desc))
		}
	}
	return b.String()
}

// Selected returns the connector under the cursor, or nil.
func (a *App) Selected() *domain.Connector {
	if a.cursor < 0 || a.cursor >= len(a.connectors) {
		return nil
	}
	return &a.connectors[a.cursor]
}

// Run returns the latest known run of a connector.
func (a *App) Run(connectorID string) (domain.SyncRun, bool) {
	run, ok := a.runs[connectorID]
	return run, ok
}

// Syncing reports whether a sync of the connector is in flight.
func (a *App) Syncing(connectorID string) bool {
	return a.active[connectorID]
}

// Err returns the last error that occurred.
func (a *App) Err() error {
	return a.err
}

// Ready reports whether the terminal size is known.
func (a *App) Ready() bool {
	return a.ready
}

// SetDimensions sets the terminal dimensions.
func (a *App) SetDimensions(width, height int) {
	a.width = width
	a.height = height
	a.ready = true
	a.statusBar.SetWidth(width)
}
