// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/tributary/internal/core/domain"
)

// CatalogLoaded carries the connector catalog back to the model.
type CatalogLoaded struct {
	Connectors []domain.Connector
	Err        error
}

// RunUpdated is sent on every state change of an in-flight run.
type RunUpdated struct {
	Run domain.SyncRun
}

// SyncFinished is sent when a run returns. Run is nil when the sync could
// not start; Err then says why.
type SyncFinished struct {
	ConnectorID string
	Run         *domain.SyncRun
	Err         error
}

// ErrorOccurred is sent when an error occurs that should be displayed.
type ErrorOccurred struct {
	Err error
}
