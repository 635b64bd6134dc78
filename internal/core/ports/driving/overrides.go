package driving

import "github.com/custodia-labs/tributary/internal/core/domain"

// AssetSpecOverrides customizes asset specs on top of the defaults.
// Both methods are additive: metadata is merged over the default metadata
// and deps are appended. Neither can change the asset key or table.
//
// Implementations that want the default spec can call
// services.DefaultAssetSpec themselves.
type AssetSpecOverrides interface {
	// MetadataForTable returns extra metadata for a table, or nil.
	MetadataForTable(conn domain.Connector, table domain.DestinationTable) map[string]any

	// DepsForTable returns extra upstream keys for a table, or nil.
	DepsForTable(conn domain.Connector, table domain.DestinationTable) []domain.AssetKey
}
