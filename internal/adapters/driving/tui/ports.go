// Package tui provides an interactive terminal dashboard for tributary.
// It implements a driving adapter following hexagonal architecture principles.
package tui

import (
	"github.com/custodia-labs/tributary/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
type Ports struct {
	// Catalog lists the connectors shown on the dashboard.
	Catalog driving.CatalogService

	// Sync runs connector syncs and reports their progress.
	Sync driving.SyncExecutor
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Catalog == nil {
		return ErrMissingCatalogService
	}
	if p.Sync == nil {
		return ErrMissingSyncExecutor
	}
	return nil
}
