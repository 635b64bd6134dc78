package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tributary/internal/connectors/fivetran"
	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driven"
	"github.com/custodia-labs/tributary/internal/testutil/elttwin"
)

// newTwinLoader wires a catalog loader to an in-memory ELT twin.
func newTwinLoader(t *testing.T) (*CatalogLoader, *elttwin.Twin) {
	t.Helper()
	tw := elttwin.New("acc-1", "key", "secret")
	srv := tw.Server()
	t.Cleanup(srv.Close)

	client, err := fivetran.NewClient(fivetran.Config{
		BaseURL:           srv.URL,
		Credentials:       domain.WorkspaceCredentials{AccountID: "acc-1", APIKey: "key", APISecret: "secret"},
		MaxRetries:        1,
		RetryDelay:        time.Millisecond,
		MaxRetryDelay:     time.Millisecond,
		RequestsPerSecond: 1000,
	})
	require.NoError(t, err)
	return NewCatalogLoader(fivetran.NewService(client)), tw
}

func seedWorkspace(tw *elttwin.Twin) {
	tw.AddGroup("g1", "warehouse", "analytics")
	tw.AddConnector(elttwin.Connector{ID: "c2", GroupID: "g1", Service: "stripe", Schema: "stripe"})
	tw.AddConnector(elttwin.Connector{ID: "c1", GroupID: "g1", Service: "postgres", Schema: "pg_main"})
	tw.AddTable("c1", "public", "users", elttwin.Column{Name: "id", PrimaryKey: true}, elttwin.Column{Name: "email"})
	tw.AddTable("c1", "public", "orders", elttwin.Column{Name: "id", PrimaryKey: true})
	tw.AddTable("c1", "public", "audit_log")
	tw.DisableTable("c1", "public", "audit_log")
	tw.AddTable("c2", "stripe", "charges", elttwin.Column{Name: "id", PrimaryKey: true})
}

func TestCatalogLoader_Load(t *testing.T) {
	loader, tw := newTwinLoader(t)
	seedWorkspace(tw)

	connectors, err := loader.Load(context.Background())

	require.NoError(t, err)
	require.Len(t, connectors, 2)
	assert.Equal(t, "c1", connectors[0].ID, "connectors are ordered by ID")
	assert.Equal(t, "c2", connectors[1].ID)

	tables := connectors[0].Tables
	require.Len(t, tables, 2, "disabled tables are skipped")
	assert.Equal(t, "analytics.public.orders", tables[0].FQN())
	assert.Equal(t, "analytics.public.users", tables[1].FQN())
	assert.Equal(t, "c1", tables[1].ConnectorID)
	require.Len(t, tables[1].Columns, 2)
	assert.Equal(t, "email", tables[1].Columns[0].Name)
	assert.True(t, tables[1].Columns[1].PrimaryKey)
}

func TestCatalogLoader_Load_IsDeterministic(t *testing.T) {
	loader, tw := newTwinLoader(t)
	seedWorkspace(tw)

	first, err := loader.Load(context.Background())
	require.NoError(t, err)
	second, err := loader.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestCatalogLoader_Load_RenamedSchema(t *testing.T) {
	loader, tw := newTwinLoader(t)
	seedWorkspace(tw)
	tw.RenameSchema("c1", "public", "pg_public")

	connectors, err := loader.Load(context.Background())

	require.NoError(t, err)
	table := connectors[0].Tables[0]
	assert.Equal(t, "pg_public", table.Schema)
	assert.Equal(t, "public", table.SourceSchema)
}

func TestCatalogLoader_Load_RetriesTransientFailure(t *testing.T) {
	loader, tw := newTwinLoader(t)
	seedWorkspace(tw)
	tw.FailNext("/v1/groups", http.StatusServiceUnavailable)

	connectors, err := loader.Load(context.Background())

	require.NoError(t, err)
	assert.Len(t, connectors, 2)
}

func TestCatalogLoader_Load_UnavailableAfterRetries(t *testing.T) {
	loader, tw := newTwinLoader(t)
	seedWorkspace(tw)
	tw.FailNext("/v1/groups", http.StatusBadGateway, http.StatusBadGateway, http.StatusBadGateway)

	_, err := loader.Load(context.Background())

	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestCatalogLoader_Load_AuthErrorPassesThrough(t *testing.T) {
	loader, tw := newTwinLoader(t)
	seedWorkspace(tw)
	tw.FailNext("/v1/groups", http.StatusUnauthorized)

	_, err := loader.Load(context.Background())

	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.NotErrorIs(t, err, domain.ErrCatalogUnavailable)
}

func TestCatalogLoader_Load_Empty(t *testing.T) {
	loader, _ := newTwinLoader(t)

	connectors, err := loader.Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, connectors)
}

func TestCatalogLoader_Load_GroupWithoutDestination(t *testing.T) {
	elt := newMockELT()
	elt.groups = []domain.Group{{ID: "g1"}}
	elt.addConnector(domain.Connector{ID: "c1", GroupID: "g1"})
	elt.schemas["c1"] = &driven.SchemaConfig{Schemas: []driven.SourceSchema{{
		Name: "public", NameInDestination: "public", Enabled: true,
		Tables: []driven.SourceTable{{Name: "t", NameInDestination: "t", Enabled: true}},
	}}}

	connectors, err := NewCatalogLoader(elt).Load(context.Background())

	require.NoError(t, err)
	require.Len(t, connectors[0].Tables, 1)
	assert.Equal(t, "public.t", connectors[0].Tables[0].FQN())
}

func TestCatalogLoader_Load_DisabledSchema(t *testing.T) {
	elt := newMockELT()
	elt.groups = []domain.Group{{ID: "g1"}}
	elt.addConnector(domain.Connector{ID: "c1", GroupID: "g1"})
	elt.schemas["c1"] = &driven.SchemaConfig{Schemas: []driven.SourceSchema{{
		Name: "public", NameInDestination: "public", Enabled: false,
		Tables: []driven.SourceTable{{Name: "t", NameInDestination: "t", Enabled: true}},
	}}}

	connectors, err := NewCatalogLoader(elt).Load(context.Background())

	require.NoError(t, err)
	assert.Empty(t, connectors[0].Tables)
}

func TestCatalogLoader_Load_SchemaFailure(t *testing.T) {
	elt := newMockELT()
	elt.groups = []domain.Group{{ID: "g1"}}
	elt.addConnector(domain.Connector{ID: "c1", GroupID: "g1"})
	elt.schemaErr = fmt.Errorf("get schemas: %w", domain.ErrTransport)

	_, err := NewCatalogLoader(elt).Load(context.Background())

	assert.ErrorIs(t, err, domain.ErrCatalogUnavailable)
}

func TestCatalogLoader_Get(t *testing.T) {
	loader, tw := newTwinLoader(t)
	seedWorkspace(tw)

	conn, err := loader.Get(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "pg_main", conn.Name)
	assert.Len(t, conn.Tables, 2)

	_, err = loader.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrConnectorNotFound)
}

func TestUnavailable(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		unavailable bool
	}{
		{"transport", domain.ErrTransport, true},
		{"rate limited", domain.ErrRateLimited, true},
		{"auth", domain.ErrAuth, false},
		{"canceled", context.Canceled, false},
		{"deadline", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := unavailable("op", tt.err)
			assert.ErrorIs(t, err, tt.err)
			assert.Equal(t, tt.unavailable, errors.Is(err, domain.ErrCatalogUnavailable))
		})
	}
}
