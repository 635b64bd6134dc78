package domain

import (
	"strings"
	"time"
)

// ConnectorStatus is the setup status of a connector.
type ConnectorStatus string

// Connector statuses.
const (
	ConnectorActive ConnectorStatus = "active"
	ConnectorPaused ConnectorStatus = "paused"
	ConnectorBroken ConnectorStatus = "broken"
)

// RemoteSyncState is the connector's sync state as reported by the service.
type RemoteSyncState string

// Remote sync states.
const (
	RemoteScheduled   RemoteSyncState = "scheduled"
	RemoteSyncing     RemoteSyncState = "syncing"
	RemotePaused      RemoteSyncState = "paused"
	RemoteRescheduled RemoteSyncState = "rescheduled"
)

// Connector is a read-only mirror of a remote ELT connector: a configured
// pipeline from one source system into the destination warehouse.
type Connector struct {
	// ID is the remote connector identifier.
	ID string `json:"id" yaml:"id"`

	// Name is the connector's schema name in the destination.
	Name string `json:"name" yaml:"name"`

	// Service is the source type (e.g. "postgres", "salesforce").
	Service string `json:"service" yaml:"service"`

	// GroupID identifies the destination group the connector writes into.
	GroupID string `json:"group_id" yaml:"group_id"`

	// Status is the setup status.
	Status ConnectorStatus `json:"status" yaml:"status"`

	// SyncState is the remote sync state at load time.
	SyncState RemoteSyncState `json:"sync_state" yaml:"sync_state"`

	// SucceededAt is the completion time of the last successful sync.
	SucceededAt time.Time `json:"succeeded_at,omitzero" yaml:"succeeded_at,omitempty"`

	// FailedAt is the completion time of the last failed sync.
	FailedAt time.Time `json:"failed_at,omitzero" yaml:"failed_at,omitempty"`

	// SyncFrequency is the remote schedule in minutes.
	SyncFrequency int `json:"sync_frequency,omitempty" yaml:"sync_frequency,omitempty"`

	// Tables are the enabled destination tables, ordered by FQN.
	Tables []DestinationTable `json:"tables" yaml:"tables"`
}

// IsPaused reports whether the connector cannot currently be synced.
func (c *Connector) IsPaused() bool {
	return c.Status == ConnectorPaused || c.SyncState == RemotePaused
}

// Column describes a destination column.
type Column struct {
	Name              string `json:"name" yaml:"name"`
	NameInDestination string `json:"name_in_destination" yaml:"name_in_destination"`
	PrimaryKey        bool   `json:"primary_key,omitempty" yaml:"primary_key,omitempty"`
}

// DestinationTable is a table a connector writes into the warehouse.
// It is an immutable snapshot taken per catalog load.
type DestinationTable struct {
	// Database is the destination database, if known.
	Database string `json:"database,omitempty" yaml:"database,omitempty"`

	// Schema is the destination schema name.
	Schema string `json:"schema" yaml:"schema"`

	// Name is the destination table name.
	Name string `json:"name" yaml:"name"`

	// SourceSchema and SourceTable name the table on the source side.
	SourceSchema string `json:"source_schema,omitempty" yaml:"source_schema,omitempty"`
	SourceTable  string `json:"source_table,omitempty" yaml:"source_table,omitempty"`

	// ConnectorID back-references the owning connector.
	ConnectorID string `json:"connector_id" yaml:"connector_id"`

	// Columns are ordered by name.
	Columns []Column `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// FQN returns the fully qualified name: database.schema.table when the
// database is known, otherwise schema.table.
func (t DestinationTable) FQN() string {
	parts := make([]string, 0, 3)
	if t.Database != "" {
		parts = append(parts, t.Database)
	}
	parts = append(parts, t.Schema, t.Name)
	return strings.Join(parts, ".")
}

// Group is a destination group: one warehouse and the connectors loading it.
type Group struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Destination describes the warehouse a group loads into.
type Destination struct {
	ID       string `json:"id"`
	GroupID  string `json:"group_id"`
	Service  string `json:"service"`
	Database string `json:"database,omitempty"`
}
