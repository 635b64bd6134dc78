package cli

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/tributary/internal/core/domain"
)

func sampleSpecs() []domain.AssetSpec {
	return []domain.AssetSpec{
		{
			Key:         domain.AssetKey{"main_postgres", "orders"},
			Deps:        []domain.AssetKey{{"public", "orders"}},
			TableFQN:    "analytics.main_postgres.orders",
			ConnectorID: "c1",
			Kinds:       []string{"fivetran", "postgres"},
		},
		{
			Key:         domain.AssetKey{"crm", "accounts"},
			TableFQN:    "analytics.crm.accounts",
			ConnectorID: "c3",
		},
	}
}

func TestSpecs_YAML(t *testing.T) {
	specs := &mockSpecs{specs: sampleSpecs()}
	withServices(t, &Services{Specs: specs})

	out, err := executeCommand(t, "specs")

	require.NoError(t, err)
	assert.Nil(t, specs.lastOverrides)

	var got []domain.AssetSpec
	require.NoError(t, yaml.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	assert.Equal(t, "main_postgres/orders", got[0].Key.String())
	assert.Equal(t, "public/orders", got[0].Deps[0].String())
}

func TestSpecs_JSONFilteredByConnector(t *testing.T) {
	withServices(t, &Services{Specs: &mockSpecs{specs: sampleSpecs()}})

	out, err := executeCommand(t, "specs", "--format", "json", "--connector", "c3")

	require.NoError(t, err)
	var got []domain.AssetSpec
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "analytics.crm.accounts", got[0].TableFQN)
}

func TestSpecs_WithOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`version: 1
rules:
  - service: postgres
    metadata:
      owner: data-eng
`), 0o600))
	specs := &mockSpecs{specs: sampleSpecs()}
	withServices(t, &Services{Specs: specs})

	_, err := executeCommand(t, "specs", "-o", path)

	require.NoError(t, err)
	require.NotNil(t, specs.lastOverrides)
	conn := sampleConnectors()[0]
	assert.Equal(t, map[string]any{"owner": "data-eng"}, specs.lastOverrides.MetadataForTable(conn, conn.Tables[0]))
}

func TestSpecs_InvalidOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overrides.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: 9\n"), 0o600))
	withServices(t, &Services{Specs: &mockSpecs{}})

	_, err := executeCommand(t, "specs", "--overrides", path)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSpecs_UnsupportedFormat(t *testing.T) {
	withServices(t, &Services{Specs: &mockSpecs{}})

	_, err := executeCommand(t, "specs", "--format", "xml")

	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported format "xml"`)
}

func TestSpecs_WatchRequiresOverrides(t *testing.T) {
	withServices(t, &Services{Specs: &mockSpecs{}})

	_, err := executeCommand(t, "specs", "--watch")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "--watch requires --overrides")
}

func TestSpecs_DuplicateKey(t *testing.T) {
	withServices(t, &Services{Specs: &mockSpecs{err: domain.ErrDuplicateAssetKey}})

	_, err := executeCommand(t, "specs")

	assert.ErrorIs(t, err, domain.ErrDuplicateAssetKey)
}
