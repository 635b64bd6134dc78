package services

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"unicode"

	"github.com/samber/lo"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driving"
	"github.com/custodia-labs/tributary/internal/logger"
)

// Ensure AssetSpecTranslator implements the interface.
var _ driving.AssetSpecService = (*AssetSpecTranslator)(nil)

// KindFivetran marks every asset produced by a connector.
const KindFivetran = "fivetran"

// Metadata keys of the default asset spec.
const (
	MetaConnectorID   = "connector_id"
	MetaConnectorName = "connector_name"
	MetaService       = "service"
	MetaTableFQN      = "table_fqn"
	MetaColumns       = "columns"
	MetaPrimaryKey    = "primary_key"
)

// DefaultAssetSpec derives the spec of a destination table with no
// overrides applied. The key is [schema, table] in destination naming.
func DefaultAssetSpec(conn domain.Connector, table domain.DestinationTable) domain.AssetSpec {
	columns := make([]string, 0, len(table.Columns))
	var primaryKey []string
	for _, c := range table.Columns {
		name := c.NameInDestination
		if name == "" {
			name = c.Name
		}
		columns = append(columns, name)
		if c.PrimaryKey {
			primaryKey = append(primaryKey, name)
		}
	}

	metadata := map[string]any{
		MetaConnectorID:   conn.ID,
		MetaConnectorName: conn.Name,
		MetaService:       conn.Service,
		MetaTableFQN:      table.FQN(),
		MetaColumns:       columns,
	}
	if len(primaryKey) > 0 {
		metadata[MetaPrimaryKey] = primaryKey
	}

	return domain.AssetSpec{
		Key:         domain.AssetKey{table.Schema, table.Name},
		Description: fmt.Sprintf("Table %s loaded by %s connector %s", table.FQN(), conn.Service, conn.Name),
		Metadata:    metadata,
		Tags:        map[string]string{"connector": conn.ID},
		Kinds:       lo.Uniq(lo.Compact([]string{conn.Service, KindFivetran})),
		Group:       GroupName(conn.Name),
		TableFQN:    table.FQN(),
		ConnectorID: conn.ID,
	}
}

// Translate returns the default spec with overrides layered on top.
// Override metadata is merged key by key, winning on conflict; override
// deps are appended once each. The key and table identity never change,
// including the connector_id and table_fqn metadata.
// A nil overrides returns the default spec.
func Translate(conn domain.Connector, table domain.DestinationTable, overrides driving.AssetSpecOverrides) domain.AssetSpec {
	spec := DefaultAssetSpec(conn, table)
	if overrides == nil {
		return spec
	}

	maps.Copy(spec.Metadata, overrides.MetadataForTable(conn, table))
	// Identity keys always describe the table the spec was built from
	spec.Metadata[MetaConnectorID] = conn.ID
	spec.Metadata[MetaTableFQN] = table.FQN()

	for _, dep := range overrides.DepsForTable(conn, table) {
		if len(dep) == 0 || dep.Equal(spec.Key) || spec.HasDep(dep) {
			continue
		}
		spec.Deps = append(spec.Deps, slices.Clone(dep))
	}
	return spec
}

// BuildAssetSpecs translates every table of every connector, in catalog
// order. Two tables mapping to the same key fail with
// domain.ErrDuplicateAssetKey.
func BuildAssetSpecs(connectors []domain.Connector, overrides driving.AssetSpecOverrides) ([]domain.AssetSpec, error) {
	seen := make(map[string]string)
	var specs []domain.AssetSpec
	for _, conn := range connectors {
		for _, table := range conn.Tables {
			spec := Translate(conn, table, overrides)
			key := spec.Key.String()
			if prev, ok := seen[key]; ok {
				return nil, fmt.Errorf("%w: %s (tables %s and %s)", domain.ErrDuplicateAssetKey, key, prev, table.FQN())
			}
			seen[key] = table.FQN()
			specs = append(specs, spec)
		}
	}
	return specs, nil
}

// GroupName normalises a connector name into an asset group name:
// lowercase letters, digits and underscores only.
func GroupName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), "_")
}

// AssetSpecTranslator produces asset specs from a fresh catalog load.
type AssetSpecTranslator struct {
	catalog driving.CatalogService
}

// NewAssetSpecTranslator creates a translator backed by a catalog.
func NewAssetSpecTranslator(catalog driving.CatalogService) *AssetSpecTranslator {
	return &AssetSpecTranslator{catalog: catalog}
}

// Specs loads the catalog and translates it.
func (t *AssetSpecTranslator) Specs(ctx context.Context, overrides driving.AssetSpecOverrides) ([]domain.AssetSpec, error) {
	connectors, err := t.catalog.Load(ctx)
	if err != nil {
		return nil, err
	}
	specs, err := BuildAssetSpecs(connectors, overrides)
	if err != nil {
		return nil, err
	}
	logger.Debug("Built %d asset specs", len(specs))
	return specs, nil
}
