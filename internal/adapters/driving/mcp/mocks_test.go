package mcp

import (
	"context"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driving"
)

// mockCatalogService is a mock implementation of driving.CatalogService.
type mockCatalogService struct {
	connectors []domain.Connector
	err        error
}

func (m *mockCatalogService) Load(_ context.Context) ([]domain.Connector, error) {
	return m.connectors, m.err
}

func (m *mockCatalogService) Get(_ context.Context, connectorID string) (*domain.Connector, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.connectors {
		if m.connectors[i].ID == connectorID {
			c := m.connectors[i]
			return &c, nil
		}
	}
	return nil, domain.ErrConnectorNotFound
}

// mockSpecService is a mock implementation of driving.AssetSpecService.
type mockSpecService struct {
	specs         []domain.AssetSpec
	err           error
	lastOverrides driving.AssetSpecOverrides
}

func (m *mockSpecService) Specs(_ context.Context, overrides driving.AssetSpecOverrides) ([]domain.AssetSpec, error) {
	m.lastOverrides = overrides
	return m.specs, m.err
}

// mockOverrides is a no-op driving.AssetSpecOverrides.
type mockOverrides struct{}

func (mockOverrides) MetadataForTable(domain.Connector, domain.DestinationTable) map[string]any {
	return nil
}

func (mockOverrides) DepsForTable(domain.Connector, domain.DestinationTable) []domain.AssetKey {
	return nil
}

// mockSyncExecutor is a mock implementation of driving.SyncExecutor.
type mockSyncExecutor struct {
	run      *domain.SyncRun
	status   *driving.SyncStatus
	history  []domain.SyncRun
	err      error
	lastOpts driving.SyncOptions
	lastID   string
}

func (m *mockSyncExecutor) Run(_ context.Context, connectorID string, opts driving.SyncOptions) (*domain.SyncRun, error) {
	m.lastID = connectorID
	m.lastOpts = opts
	return m.run, m.err
}

func (m *mockSyncExecutor) RunMany(_ context.Context, ids []string, _ driving.SyncOptions) ([]*domain.SyncRun, error) {
	runs := make([]*domain.SyncRun, len(ids))
	for i := range ids {
		runs[i] = m.run
	}
	return runs, m.err
}

func (m *mockSyncExecutor) Status(_ context.Context, connectorID string) (*driving.SyncStatus, error) {
	m.lastID = connectorID
	return m.status, m.err
}

func (m *mockSyncExecutor) History(_ context.Context, connectorID string, _ int) ([]domain.SyncRun, error) {
	m.lastID = connectorID
	return m.history, m.err
}

func sampleConnectors() []domain.Connector {
	return []domain.Connector{
		{
			ID: "c1", Name: "main_postgres", Service: "postgres",
			Status: domain.ConnectorActive, SyncState: domain.RemoteScheduled,
			Tables: []domain.DestinationTable{
				{Database: "analytics", Schema: "main_postgres", Name: "orders", ConnectorID: "c1"},
				{Database: "analytics", Schema: "main_postgres", Name: "users", ConnectorID: "c1"},
			},
		},
		{
			ID: "c2", Name: "billing", Service: "stripe",
			Status: domain.ConnectorPaused, SyncState: domain.RemotePaused,
		},
	}
}
