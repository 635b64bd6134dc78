package domain

import (
	"slices"
	"strings"
)

// AssetKey is the path identifying an asset in the orchestration graph.
type AssetKey []string

// String renders the key with "/" separators, e.g. "public/users".
func (k AssetKey) String() string {
	return strings.Join(k, "/")
}

// Equal reports whether two keys have the same path.
func (k AssetKey) Equal(other AssetKey) bool {
	return slices.Equal(k, other)
}

// ParseAssetKey splits a "/" separated key string.
func ParseAssetKey(s string) AssetKey {
	if s == "" {
		return nil
	}
	return AssetKey(strings.Split(s, "/"))
}

// AssetSpec is the declarative description of one destination table as a
// node in the orchestration graph. Specs are regenerated per catalog load
// and never persisted.
type AssetSpec struct {
	// Key identifies the asset. Never changed by overrides.
	Key AssetKey `json:"key" yaml:"key"`

	// Deps are upstream asset keys.
	Deps []AssetKey `json:"deps,omitempty" yaml:"deps,omitempty"`

	// Description is a human-readable summary.
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Metadata is free-form key/value data attached to the asset.
	Metadata map[string]any `json:"metadata,omitempty" yaml:"metadata,omitempty"`

	// Tags are string labels.
	Tags map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`

	// Kinds are compute/storage kinds shown by the orchestrator.
	Kinds []string `json:"kinds,omitempty" yaml:"kinds,omitempty"`

	// Group is the asset group name.
	Group string `json:"group,omitempty" yaml:"group,omitempty"`

	// TableFQN references the single destination table this spec describes.
	TableFQN string `json:"table_fqn" yaml:"table_fqn"`

	// ConnectorID is the connector that materializes the table.
	ConnectorID string `json:"connector_id" yaml:"connector_id"`
}

// HasDep reports whether key is already a dependency.
func (s *AssetSpec) HasDep(key AssetKey) bool {
	for _, d := range s.Deps {
		if d.Equal(key) {
			return true
		}
	}
	return false
}
