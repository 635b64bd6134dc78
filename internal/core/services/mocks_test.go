package services

import (
	"context"
	"sync"
	"time"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driven"
)

// mockELT implements driven.ELTService with scripted responses.
type mockELT struct {
	mu sync.Mutex

	groups       []domain.Group
	connectors   map[string][]domain.Connector
	details      map[string]*driven.ConnectorDetails
	schemas      map[string]*driven.SchemaConfig
	destinations map[string]*domain.Destination

	// polls maps connector ID to the states returned by successive
	// GetConnector calls after the baseline. The last entry repeats.
	polls map[string][]driven.ConnectorDetails

	accountID  string
	accountErr error
	groupsErr  error
	getErr     map[string]error
	pollErr    error
	triggerErr error
	cancelErr  error
	schemaErr  error

	// triggerHook runs inside TriggerSync before it returns.
	triggerHook func(connectorID string)

	calls    map[string]int
	triggers []string
	cancels  []string

	// cancelCtxErr is the context error seen by the last CancelSync.
	cancelCtxErr error
}

var _ driven.ELTService = (*mockELT)(nil)

func newMockELT() *mockELT {
	return &mockELT{
		connectors:   make(map[string][]domain.Connector),
		details:      make(map[string]*driven.ConnectorDetails),
		schemas:      make(map[string]*driven.SchemaConfig),
		destinations: make(map[string]*domain.Destination),
		polls:        make(map[string][]driven.ConnectorDetails),
		getErr:       make(map[string]error),
		calls:        make(map[string]int),
	}
}

// addConnector registers a connector in a group with a baseline state.
func (m *mockELT) addConnector(conn domain.Connector) {
	m.connectors[conn.GroupID] = append(m.connectors[conn.GroupID], conn)
	m.details[conn.ID] = &driven.ConnectorDetails{Connector: conn}
}

func (m *mockELT) AccountInfo(_ context.Context) (*domain.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.accountErr != nil {
		return nil, m.accountErr
	}
	return &domain.Account{AccountID: m.accountID}, nil
}

func (m *mockELT) ListGroups(_ context.Context) ([]domain.Group, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["groups"]++
	return m.groups, m.groupsErr
}

func (m *mockELT) ListConnectors(_ context.Context, groupID string) ([]domain.Connector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connectors[groupID], nil
}

func (m *mockELT) GetConnector(_ context.Context, connectorID string) (*driven.ConnectorDetails, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls["get:"+connectorID]++

	if err := m.getErr[connectorID]; err != nil {
		return nil, err
	}
	base, ok := m.details[connectorID]
	if !ok {
		return nil, domain.ErrNotFound
	}

	// The first call is the baseline; later calls are polls.
	n := m.calls["get:"+connectorID] - 2
	if n < 0 {
		d := *base
		return &d, nil
	}
	if m.pollErr != nil {
		return nil, m.pollErr
	}
	script := m.polls[connectorID]
	if len(script) == 0 {
		d := *base
		return &d, nil
	}
	if n >= len(script) {
		n = len(script) - 1
	}
	d := script[n]
	return &d, nil
}

func (m *mockELT) GetSchemaConfig(_ context.Context, connectorID string) (*driven.SchemaConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.schemaErr != nil {
		return nil, m.schemaErr
	}
	if cfg, ok := m.schemas[connectorID]; ok {
		return cfg, nil
	}
	return &driven.SchemaConfig{}, nil
}

func (m *mockELT) GetDestination(_ context.Context, groupID string) (*domain.Destination, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.destinations[groupID]; ok {
		return d, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockELT) TriggerSync(_ context.Context, connectorID string) error {
	m.mu.Lock()
	m.triggers = append(m.triggers, connectorID)
	hook, err := m.triggerHook, m.triggerErr
	m.mu.Unlock()
	if hook != nil {
		hook(connectorID)
	}
	return err
}

func (m *mockELT) CancelSync(ctx context.Context, connectorID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cancels = append(m.cancels, connectorID)
	m.cancelCtxErr = ctx.Err()
	return m.cancelErr
}

func (m *mockELT) triggerCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.triggers)
}

func (m *mockELT) cancelCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.cancels)
}

// syncing returns connector state while a sync is in flight.
func syncing(conn domain.Connector) driven.ConnectorDetails {
	conn.SyncState = domain.RemoteSyncing
	return driven.ConnectorDetails{Connector: conn}
}

// finished returns connector state after a sync completed at t.
func finished(conn domain.Connector, t time.Time, ok bool, rows *int64) driven.ConnectorDetails {
	conn.SyncState = domain.RemoteScheduled
	if ok {
		conn.SucceededAt = t
	} else {
		conn.FailedAt = t
	}
	return driven.ConnectorDetails{Connector: conn, RowsSynced: rows}
}
