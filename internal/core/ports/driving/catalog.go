package driving

import (
	"context"

	"github.com/custodia-labs/tributary/internal/core/domain"
)

// CatalogService enumerates the connectors of the workspace.
type CatalogService interface {
	// Load returns every connector with its enabled destination tables,
	// ordered by connector ID. Each call fetches a fresh snapshot.
	Load(ctx context.Context) ([]domain.Connector, error)

	// Get loads a single connector with its tables.
	Get(ctx context.Context, connectorID string) (*domain.Connector, error)
}

// AssetSpecService builds asset specs for the whole catalog.
type AssetSpecService interface {
	// Specs loads the catalog and returns one spec per destination table.
	// overrides may be nil.
	Specs(ctx context.Context, overrides AssetSpecOverrides) ([]domain.AssetSpec, error)
}

// WorkspaceService reports on the configured workspace.
type WorkspaceService interface {
	// Verify checks the credentials against the service and returns the
	// account they belong to.
	Verify(ctx context.Context) (*domain.Account, error)
}
