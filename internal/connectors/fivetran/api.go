package fivetran

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/samber/lo"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driven"
)

// REST paths.
const (
	pathAccountInfo      = "/v1/account/info"
	pathGroups           = "/v1/groups"
	pathGroupConnectors  = "/v1/groups/%s/connectors"
	pathConnector        = "/v1/connectors/%s"
	pathConnectorSchemas = "/v1/connectors/%s/schemas"
	pathConnectorSync    = "/v1/connectors/%s/sync"
	pathConnectorCancel  = "/v1/connectors/%s/cancel"
	pathDestination      = "/v1/destinations/%s"
)

// Ensure Service implements the interface.
var _ driven.ELTService = (*Service)(nil)

// Service exposes the typed endpoints of the ELT API on top of a Client.
type Service struct {
	client *Client
}

// NewService wraps a client.
func NewService(client *Client) *Service {
	return &Service{client: client}
}

type accountJSON struct {
	AccountID   string `json:"account_id"`
	AccountName string `json:"account_name"`
	UserID      string `json:"user_id"`
}

type groupJSON struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type connectorJSON struct {
	ID            string     `json:"id"`
	GroupID       string     `json:"group_id"`
	Service       string     `json:"service"`
	Schema        string     `json:"schema"`
	Paused        bool       `json:"paused"`
	SyncFrequency int        `json:"sync_frequency"`
	SucceededAt   *time.Time `json:"succeeded_at"`
	FailedAt      *time.Time `json:"failed_at"`
	Status        struct {
		SetupState string `json:"setup_state"`
		SyncState  string `json:"sync_state"`
	} `json:"status"`
	RowsSynced *int64 `json:"rows_synced,omitempty"`
}

type columnJSON struct {
	NameInDestination string `json:"name_in_destination"`
	Enabled           bool   `json:"enabled"`
	IsPrimaryKey      bool   `json:"is_primary_key"`
}

type tableJSON struct {
	NameInDestination string                `json:"name_in_destination"`
	Enabled           bool                  `json:"enabled"`
	Columns           map[string]columnJSON `json:"columns"`
}

type schemaJSON struct {
	NameInDestination string               `json:"name_in_destination"`
	Enabled           bool                 `json:"enabled"`
	Tables            map[string]tableJSON `json:"tables"`
}

type schemasJSON struct {
	Schemas map[string]schemaJSON `json:"schemas"`
}

type destinationJSON struct {
	ID      string `json:"id"`
	GroupID string `json:"group_id"`
	Service string `json:"service"`
	Config  struct {
		Database string `json:"database"`
	} `json:"config"`
}

// accountInfo fetches the identity behind the credentials.
func (c *Client) accountInfo(ctx context.Context) (*domain.Account, error) {
	data, err := getData[accountJSON](ctx, c, pathAccountInfo)
	if err != nil {
		return nil, err
	}
	return &domain.Account{
		AccountID:   data.AccountID,
		AccountName: data.AccountName,
		UserID:      data.UserID,
	}, nil
}

// AccountInfo verifies the credentials and returns the workspace identity.
func (s *Service) AccountInfo(ctx context.Context) (*domain.Account, error) {
	info, err := s.client.accountInfo(ctx)
	if err != nil {
		return nil, fmt.Errorf("account info: %w", err)
	}
	return info, nil
}

// ListGroups returns every destination group.
func (s *Service) ListGroups(ctx context.Context) ([]domain.Group, error) {
	items, err := listAll[groupJSON](ctx, s.client, pathGroups)
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	groups := make([]domain.Group, len(items))
	for i, g := range items {
		groups[i] = domain.Group{ID: g.ID, Name: g.Name}
	}
	return groups, nil
}

// ListConnectors returns the connectors in a group, without tables.
func (s *Service) ListConnectors(ctx context.Context, groupID string) ([]domain.Connector, error) {
	items, err := listAll[connectorJSON](ctx, s.client, fmt.Sprintf(pathGroupConnectors, url.PathEscape(groupID)))
	if err != nil {
		return nil, fmt.Errorf("list connectors for group %s: %w", groupID, err)
	}
	conns := make([]domain.Connector, len(items))
	for i := range items {
		conns[i] = items[i].toDomain()
	}
	return conns, nil
}

// GetConnector returns the live state of one connector.
func (s *Service) GetConnector(ctx context.Context, connectorID string) (*driven.ConnectorDetails, error) {
	data, err := getData[connectorJSON](ctx, s.client, fmt.Sprintf(pathConnector, url.PathEscape(connectorID)))
	if err != nil {
		return nil, fmt.Errorf("get connector %s: %w", connectorID, err)
	}
	return &driven.ConnectorDetails{
		Connector:  data.toDomain(),
		RowsSynced: data.RowsSynced,
	}, nil
}

// GetSchemaConfig returns the schema/table selection of a connector,
// with schemas, tables and columns ordered by name.
func (s *Service) GetSchemaConfig(ctx context.Context, connectorID string) (*driven.SchemaConfig, error) {
	data, err := getData[schemasJSON](ctx, s.client, fmt.Sprintf(pathConnectorSchemas, url.PathEscape(connectorID)))
	if err != nil {
		return nil, fmt.Errorf("get schemas for connector %s: %w", connectorID, err)
	}

	cfg := &driven.SchemaConfig{}
	for _, schemaName := range sortedKeys(data.Schemas) {
		sj := data.Schemas[schemaName]
		schema := driven.SourceSchema{
			Name:              schemaName,
			NameInDestination: orDefault(sj.NameInDestination, schemaName),
			Enabled:           sj.Enabled,
		}
		for _, tableName := range sortedKeys(sj.Tables) {
			tj := sj.Tables[tableName]
			table := driven.SourceTable{
				Name:              tableName,
				NameInDestination: orDefault(tj.NameInDestination, tableName),
				Enabled:           tj.Enabled,
			}
			for _, colName := range sortedKeys(tj.Columns) {
				cj := tj.Columns[colName]
				if !cj.Enabled {
					continue
				}
				table.Columns = append(table.Columns, domain.Column{
					Name:              colName,
					NameInDestination: orDefault(cj.NameInDestination, colName),
					PrimaryKey:        cj.IsPrimaryKey,
				})
			}
			schema.Tables = append(schema.Tables, table)
		}
		cfg.Schemas = append(cfg.Schemas, schema)
	}
	return cfg, nil
}

// GetDestination returns the destination a group loads into.
// Destinations share their ID with the group.
func (s *Service) GetDestination(ctx context.Context, groupID string) (*domain.Destination, error) {
	data, err := getData[destinationJSON](ctx, s.client, fmt.Sprintf(pathDestination, url.PathEscape(groupID)))
	if err != nil {
		return nil, fmt.Errorf("get destination %s: %w", groupID, err)
	}
	return &domain.Destination{
		ID:       data.ID,
		GroupID:  data.GroupID,
		Service:  data.Service,
		Database: data.Config.Database,
	}, nil
}

// TriggerSync starts a sync of the connector.
func (s *Service) TriggerSync(ctx context.Context, connectorID string) error {
	path := fmt.Sprintf(pathConnectorSync, url.PathEscape(connectorID))
	if _, err := s.client.Request(ctx, http.MethodPost, path, map[string]bool{"force": true}); err != nil {
		return fmt.Errorf("trigger sync %s: %w", connectorID, err)
	}
	return nil
}

// CancelSync asks the service to stop an in-flight sync.
func (s *Service) CancelSync(ctx context.Context, connectorID string) error {
	path := fmt.Sprintf(pathConnectorCancel, url.PathEscape(connectorID))
	if _, err := s.client.Request(ctx, http.MethodPost, path, nil); err != nil {
		return fmt.Errorf("cancel sync %s: %w", connectorID, err)
	}
	return nil
}

// toDomain converts the wire form into a domain connector.
func (c *connectorJSON) toDomain() domain.Connector {
	conn := domain.Connector{
		ID:            c.ID,
		Name:          c.Schema,
		Service:       c.Service,
		GroupID:       c.GroupID,
		Status:        domain.ConnectorActive,
		SyncState:     domain.RemoteSyncState(c.Status.SyncState),
		SyncFrequency: c.SyncFrequency,
	}
	switch {
	case c.Paused:
		conn.Status = domain.ConnectorPaused
	case c.Status.SetupState == "broken":
		conn.Status = domain.ConnectorBroken
	}
	if c.SucceededAt != nil {
		conn.SucceededAt = c.SucceededAt.UTC()
	}
	if c.FailedAt != nil {
		conn.FailedAt = c.FailedAt.UTC()
	}
	return conn
}

func sortedKeys[V any](m map[string]V) []string {
	keys := lo.Keys(m)
	slices.Sort(keys)
	return keys
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
