package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/tributary/internal/core/domain"
)

// SyncOptions tunes a single sync run. Zero values fall back to the
// executor's defaults.
type SyncOptions struct {
	// PollInterval is the delay between status requests.
	PollInterval time.Duration

	// Timeout bounds the Polling phase.
	Timeout time.Duration

	// Observer, if set, receives a copy of the run after every state change.
	Observer func(run domain.SyncRun)
}

// SyncStatus represents the current state of a connector's sync.
type SyncStatus struct {
	// ConnectorID identifies the connector.
	ConnectorID string

	// Running is true while a run is in flight.
	Running bool

	// Run is a copy of the in-flight run, or the latest recorded run.
	Run *domain.SyncRun
}

// SyncExecutor triggers connector syncs and waits for them to finish.
type SyncExecutor interface {
	// Run triggers a sync of one connector and polls until it reaches a
	// terminal state. Timeouts and remote failures are reported in the
	// returned run, not as an error; an error means no run could start.
	Run(ctx context.Context, connectorID string, opts SyncOptions) (*domain.SyncRun, error)

	// RunMany syncs distinct connectors concurrently. Results are in input
	// order; the error joins every per-connector start failure.
	RunMany(ctx context.Context, connectorIDs []string, opts SyncOptions) ([]*domain.SyncRun, error)

	// Status returns the in-flight run, or the latest recorded one.
	Status(ctx context.Context, connectorID string) (*SyncStatus, error)

	// History returns recorded runs, most recent first.
	History(ctx context.Context, connectorID string, limit int) ([]domain.SyncRun, error)
}
