package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/tributary/internal/core/domain"
)

// ConnectorDetails is the live remote view of a connector, used for
// baselines and polling.
type ConnectorDetails struct {
	Connector  domain.Connector
	RowsSynced *int64
}

// SchemaConfig is a connector's schema/table selection as reported by the service.
type SchemaConfig struct {
	Schemas []SourceSchema
}

// SourceSchema is one source schema and the destination schema it loads into.
type SourceSchema struct {
	Name              string
	NameInDestination string
	Enabled           bool
	Tables            []SourceTable
}

// SourceTable is one source table and its destination name.
type SourceTable struct {
	Name              string
	NameInDestination string
	Enabled           bool
	Columns           []domain.Column
}

// ELTService is the remote ELT workspace API. Implementations classify
// failures onto domain.ErrAuth, domain.ErrRateLimited, domain.ErrTransport
// and domain.ErrNotFound.
type ELTService interface {
	// AccountInfo verifies the credentials and returns the workspace identity.
	AccountInfo(ctx context.Context) (*domain.Account, error)

	// ListGroups returns every destination group.
	ListGroups(ctx context.Context) ([]domain.Group, error)

	// ListConnectors returns the connectors in a group, without tables.
	ListConnectors(ctx context.Context, groupID string) ([]domain.Connector, error)

	// GetConnector returns the live state of one connector.
	GetConnector(ctx context.Context, connectorID string) (*ConnectorDetails, error)

	// GetSchemaConfig returns the schema/table selection of a connector.
	GetSchemaConfig(ctx context.Context, connectorID string) (*SchemaConfig, error)

	// GetDestination returns the destination a group loads into.
	GetDestination(ctx context.Context, groupID string) (*domain.Destination, error)

	// TriggerSync starts a sync of the connector.
	TriggerSync(ctx context.Context, connectorID string) error

	// CancelSync asks the service to stop an in-flight sync.
	CancelSync(ctx context.Context, connectorID string) error
}

// SyncRunStore records terminal sync runs.
type SyncRunStore interface {
	// Record persists a terminal run.
	Record(ctx context.Context, run domain.SyncRun) error

	// List returns recent runs, most recent first.
	// An empty connectorID lists runs for all connectors.
	List(ctx context.Context, connectorID string, limit int) ([]domain.SyncRun, error)

	// Latest returns the most recent run for a connector.
	// Returns domain.ErrNotFound if none exists.
	Latest(ctx context.Context, connectorID string) (*domain.SyncRun, error)

	// Prune deletes runs that ended before the cutoff.
	Prune(ctx context.Context, before time.Time) (int, error)
}
