package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driven"
	"github.com/custodia-labs/tributary/internal/core/ports/driving"
	"github.com/custodia-labs/tributary/internal/logger"
)

// Ensure CatalogLoader implements the interface.
var _ driving.CatalogService = (*CatalogLoader)(nil)

// schemaFetchLimit caps concurrent schema requests during a load.
const schemaFetchLimit = 4

// CatalogLoader enumerates connectors and their destination tables.
// Every Load fetches a fresh snapshot; nothing is cached between calls.
type CatalogLoader struct {
	elt driven.ELTService
}

// NewCatalogLoader creates a catalog loader.
func NewCatalogLoader(elt driven.ELTService) *CatalogLoader {
	return &CatalogLoader{elt: elt}
}

// Load returns every connector with its enabled tables. Connectors are
// ordered by ID and tables by FQN, so repeated loads of an unchanged
// workspace return identical sequences.
//
// Authentication failures are returned as-is; any other failure is
// wrapped in domain.ErrCatalogUnavailable.
func (l *CatalogLoader) Load(ctx context.Context) ([]domain.Connector, error) {
	logger.Section("Catalog")

	groups, err := l.elt.ListGroups(ctx)
	if err != nil {
		return nil, unavailable("list groups", err)
	}
	logger.Debug("Found %d groups", len(groups))

	var connectors []domain.Connector
	databases := make(map[string]string, len(groups))
	for _, g := range groups {
		db, err := l.database(ctx, g.ID)
		if err != nil {
			return nil, err
		}
		databases[g.ID] = db

		conns, err := l.elt.ListConnectors(ctx, g.ID)
		if err != nil {
			return nil, unavailable("list connectors", err)
		}
		connectors = append(connectors, conns...)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(schemaFetchLimit)
	for i := range connectors {
		g.Go(func() error {
			tables, err := l.tables(gctx, &connectors[i], databases[connectors[i].GroupID])
			if err != nil {
				return err
			}
			mu.Lock()
			connectors[i].Tables = tables
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	slices.SortFunc(connectors, func(a, b domain.Connector) int {
		return strings.Compare(a.ID, b.ID)
	})

	logger.Info("Loaded %d connectors", len(connectors))
	return connectors, nil
}

// Get loads a single connector with its tables.
func (l *CatalogLoader) Get(ctx context.Context, connectorID string) (*domain.Connector, error) {
	details, err := l.elt.GetConnector(ctx, connectorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConnectorNotFound, connectorID)
		}
		return nil, unavailable("get connector", err)
	}
	conn := details.Connector

	db, err := l.database(ctx, conn.GroupID)
	if err != nil {
		return nil, err
	}
	conn.Tables, err = l.tables(ctx, &conn, db)
	if err != nil {
		return nil, err
	}
	return &conn, nil
}

// database returns the warehouse database of a group, or "" when the
// group has no destination yet.
func (l *CatalogLoader) database(ctx context.Context, groupID string) (string, error) {
	dest, err := l.elt.GetDestination(ctx, groupID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			logger.Debug("Group %s has no destination", groupID)
			return "", nil
		}
		return "", unavailable("get destination", err)
	}
	return dest.Database, nil
}

// tables builds the enabled destination tables of a connector, ordered by FQN.
func (l *CatalogLoader) tables(ctx context.Context, conn *domain.Connector, database string) ([]domain.DestinationTable, error) {
	cfg, err := l.elt.GetSchemaConfig(ctx, conn.ID)
	if err != nil {
		return nil, unavailable("get schemas", err)
	}

	var tables []domain.DestinationTable
	for _, schema := range cfg.Schemas {
		if !schema.Enabled {
			continue
		}
		for _, table := range schema.Tables {
			if !table.Enabled {
				continue
			}
			columns := slices.Clone(table.Columns)
			slices.SortFunc(columns, func(a, b domain.Column) int {
				return strings.Compare(a.Name, b.Name)
			})
			tables = append(tables, domain.DestinationTable{
				Database:     database,
				Schema:       schema.NameInDestination,
				Name:         table.NameInDestination,
				SourceSchema: schema.Name,
				SourceTable:  table.Name,
				ConnectorID:  conn.ID,
				Columns:      columns,
			})
		}
	}

	slices.SortFunc(tables, func(a, b domain.DestinationTable) int {
		return strings.Compare(a.FQN(), b.FQN())
	})
	logger.Debug("Connector %s: %d tables", conn.ID, len(tables))
	return tables, nil
}

// unavailable wraps a load failure. Auth and context errors pass through.
func unavailable(op string, err error) error {
	if errors.Is(err, domain.ErrAuth) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%w: %s: %w", domain.ErrCatalogUnavailable, op, err)
}
