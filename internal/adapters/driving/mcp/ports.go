package mcp

import (
	"github.com/custodia-labs/tributary/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Catalog lists connectors and their tables.
	Catalog driving.CatalogService

	// Specs translates the catalog into asset specs.
	Specs driving.AssetSpecService

	// Overrides customizes asset specs. Optional.
	Overrides driving.AssetSpecOverrides

	// Sync triggers and observes connector syncs. Optional; sync tools
	// fail without it.
	Sync driving.SyncExecutor
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Catalog == nil {
		return ErrMissingCatalogService
	}
	return nil
}
