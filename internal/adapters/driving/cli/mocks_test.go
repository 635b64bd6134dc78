package cli

import (
	"bytes"
	"context"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driving"
)

// executeCommand runs the root command with fresh flag values and returns
// everything written to stdout and stderr.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}

// resetFlags restores every flag to its default. Flag values otherwise
// leak between executions of the shared root command.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

// withServices installs services for one test.
func withServices(t *testing.T, s *Services) {
	t.Helper()
	old := Services{
		Settings:        settingsService,
		Workspace:       workspaceService,
		Catalog:         catalogService,
		Specs:           specService,
		Sync:            syncExecutor,
		Scheduler:       scheduler,
		SchedulerConfig: schedulerConfig,
		Close:           closeServices,
	}
	SetServices(s)
	t.Cleanup(func() {
		SetServices(&old)
		bootstrapped = false
	})
}

// mockSettings implements driving.SettingsService.
type mockSettings struct {
	settings *domain.AppSettings
	err      error
	setErr   error
	creds    *domain.WorkspaceCredentials
	baseURL  *string
}

func (m *mockSettings) Get() (*domain.AppSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.settings == nil {
		defaults := domain.DefaultAppSettings()
		return &defaults, nil
	}
	return m.settings, nil
}

func (m *mockSettings) SetCredentials(creds domain.WorkspaceCredentials) error {
	if m.setErr != nil {
		return m.setErr
	}
	if err := creds.Validate(); err != nil {
		return err
	}
	m.creds = &creds
	return nil
}

func (m *mockSettings) SetBaseURL(url string) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.baseURL = &url
	return nil
}

func (m *mockSettings) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// mockWorkspace implements driving.WorkspaceService.
type mockWorkspace struct {
	account *domain.Account
	err     error
}

func (m *mockWorkspace) Verify(context.Context) (*domain.Account, error) {
	return m.account, m.err
}

// mockCatalog implements driving.CatalogService.
type mockCatalog struct {
	connectors []domain.Connector
	err        error
}

func (m *mockCatalog) Load(context.Context) ([]domain.Connector, error) {
	return m.connectors, m.err
}

func (m *mockCatalog) Get(_ context.Context, id string) (*domain.Connector, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.connectors {
		if m.connectors[i].ID == id {
			c := m.connectors[i]
			return &c, nil
		}
	}
	return nil, domain.ErrConnectorNotFound
}

// mockSpecs implements driving.AssetSpecService.
type mockSpecs struct {
	specs         []domain.AssetSpec
	err           error
	lastOverrides driving.AssetSpecOverrides
}

func (m *mockSpecs) Specs(_ context.Context, overrides driving.AssetSpecOverrides) ([]domain.AssetSpec, error) {
	m.lastOverrides = overrides
	return m.specs, m.err
}

// mockExecutor implements driving.SyncExecutor. Runs default to Succeeded.
type mockExecutor struct {
	mu       sync.Mutex
	states   map[string]domain.SyncRunState
	err      error
	calls    []string
	lastOpts driving.SyncOptions
	status   *driving.SyncStatus
	history  []domain.SyncRun
	limit    int
}

func (m *mockExecutor) Run(_ context.Context, id string, opts driving.SyncOptions) (*domain.SyncRun, error) {
	m.mu.Lock()
	m.calls = append(m.calls, id)
	m.lastOpts = opts
	state, ok := m.states[id]
	m.mu.Unlock()

	if !ok {
		state = domain.SyncSucceeded
	}
	run := &domain.SyncRun{ID: "run-" + id, ConnectorID: id, State: state}
	if state != domain.SyncSucceeded {
		run.Err = domain.ErrSyncFailed
		run.Error = domain.ErrSyncFailed.Error()
	}
	if opts.Observer != nil {
		opts.Observer(*run)
	}
	return run, nil
}

func (m *mockExecutor) RunMany(ctx context.Context, ids []string, opts driving.SyncOptions) ([]*domain.SyncRun, error) {
	if m.err != nil {
		return make([]*domain.SyncRun, len(ids)), m.err
	}
	runs := make([]*domain.SyncRun, len(ids))
	for i, id := range ids {
		runs[i], _ = m.Run(ctx, id, opts)
	}
	return runs, nil
}

func (m *mockExecutor) Status(_ context.Context, id string) (*driving.SyncStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.status == nil {
		return &driving.SyncStatus{ConnectorID: id}, nil
	}
	return m.status, nil
}

func (m *mockExecutor) History(_ context.Context, id string, limit int) ([]domain.SyncRun, error) {
	m.mu.Lock()
	m.calls = append(m.calls, id)
	m.limit = limit
	m.mu.Unlock()
	return m.history, m.err
}

// mockScheduler implements driving.Scheduler. Start returns immediately.
type mockScheduler struct {
	started  bool
	stopped  bool
	startErr error
}

func (m *mockScheduler) Start(context.Context) error {
	m.started = true
	return m.startErr
}

func (m *mockScheduler) Stop() error {
	m.stopped = true
	return nil
}

func sampleConnectors() []domain.Connector {
	return []domain.Connector{
		{
			ID: "c1", Name: "main_postgres", Service: "postgres", GroupID: "g1",
			Status: domain.ConnectorActive, SyncState: domain.RemoteScheduled, SyncFrequency: 360,
			Tables: []domain.DestinationTable{
				{
					Database: "analytics", Schema: "main_postgres", Name: "orders",
					SourceSchema: "public", SourceTable: "orders", ConnectorID: "c1",
					Columns: []domain.Column{{Name: "id", PrimaryKey: true}, {Name: "total"}},
				},
			},
		},
		{
			ID: "c2", Name: "billing", Service: "stripe", GroupID: "g1",
			Status: domain.ConnectorPaused, SyncState: domain.RemotePaused,
		},
		{
			ID: "c3", Name: "crm", Service: "salesforce", GroupID: "g1",
			Status: domain.ConnectorActive, SyncState: domain.RemoteScheduled,
		},
	}
}
