package overrides

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driving"
)

// Ensure Rules implements the interface.
var _ driving.AssetSpecOverrides = (*Rules)(nil)

// CurrentVersion is the only supported rules file version.
const CurrentVersion = 1

// Rule attaches metadata and deps to every table it matches. Empty match
// fields match anything. Patterns use path.Match syntax.
type Rule struct {
	// Connector matches the connector ID or name.
	Connector string `yaml:"connector,omitempty"`

	// Service matches the connector's source type, e.g. "postgres".
	Service string `yaml:"service,omitempty"`

	// Table matches the table FQN or its "schema.table" form.
	Table string `yaml:"table,omitempty"`

	// Metadata is merged into the spec metadata.
	Metadata map[string]any `yaml:"metadata,omitempty"`

	// Deps are "/" separated asset keys. The placeholders {schema},
	// {table}, {source_schema} and {source_table} are expanded per table.
	Deps []string `yaml:"deps,omitempty"`
}

// file is the on-disk layout.
type file struct {
	Version int    `yaml:"version"`
	Rules   []Rule `yaml:"rules"`
}

// Rules is a parsed overrides file. Matching rules apply in file order, so
// a later rule wins a metadata key both set.
type Rules struct {
	rules []Rule
}

// Parse decodes a rules document. Unknown fields and malformed patterns are
// errors.
func Parse(data []byte) (*Rules, error) {
	var doc file
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	if doc.Version == 0 {
		doc.Version = CurrentVersion
	}
	if doc.Version != CurrentVersion {
		return nil, fmt.Errorf("%w: unsupported overrides version %d", domain.ErrInvalidInput, doc.Version)
	}

	for i, r := range doc.Rules {
		for _, pattern := range []string{r.Connector, r.Service, r.Table} {
			if _, err := path.Match(pattern, ""); err != nil {
				return nil, fmt.Errorf("%w: rule %d: pattern %q: %w", domain.ErrInvalidInput, i+1, pattern, err)
			}
		}
		for _, dep := range r.Deps {
			if strings.TrimSpace(dep) == "" {
				return nil, fmt.Errorf("%w: rule %d: empty dep", domain.ErrInvalidInput, i+1)
			}
		}
	}

	return &Rules{rules: doc.Rules}, nil
}

// Load reads and parses a rules file.
func Load(filename string) (*Rules, error) {
	data, err := os.ReadFile(filename) //nolint:gosec // user-specified overrides file
	if err != nil {
		return nil, fmt.Errorf("read overrides: %w", err)
	}
	rules, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", filename, err)
	}
	return rules, nil
}

// Len returns the number of rules.
func (r *Rules) Len() int {
	if r == nil {
		return 0
	}
	return len(r.rules)
}

// MetadataForTable merges the metadata of every matching rule.
func (r *Rules) MetadataForTable(conn domain.Connector, table domain.DestinationTable) map[string]any {
	var out map[string]any
	for _, rule := range r.matching(conn, table) {
		if len(rule.Metadata) == 0 {
			continue
		}
		if out == nil {
			out = make(map[string]any)
		}
		maps.Copy(out, rule.Metadata)
	}
	return out
}

// DepsForTable expands the deps of every matching rule.
func (r *Rules) DepsForTable(conn domain.Connector, table domain.DestinationTable) []domain.AssetKey {
	expand := strings.NewReplacer(
		"{schema}", table.Schema,
		"{table}", table.Name,
		"{source_schema}", table.SourceSchema,
		"{source_table}", table.SourceTable,
	)

	var deps []domain.AssetKey
	for _, rule := range r.matching(conn, table) {
		for _, dep := range rule.Deps {
			deps = append(deps, domain.ParseAssetKey(expand.Replace(dep)))
		}
	}
	return deps
}

func (r *Rules) matching(conn domain.Connector, table domain.DestinationTable) []Rule {
	if r == nil {
		return nil
	}
	var out []Rule
	for _, rule := range r.rules {
		if rule.matches(conn, table) {
			out = append(out, rule)
		}
	}
	return out
}

func (rule Rule) matches(conn domain.Connector, table domain.DestinationTable) bool {
	if rule.Connector != "" && !match(rule.Connector, conn.ID) && !match(rule.Connector, conn.Name) {
		return false
	}
	if rule.Service != "" && !match(rule.Service, conn.Service) {
		return false
	}
	if rule.Table != "" && !match(rule.Table, table.FQN()) && !match(rule.Table, table.Schema+"."+table.Name) {
		return false
	}
	return true
}

func match(pattern, name string) bool {
	ok, _ := path.Match(pattern, name)
	return ok
}
