package mcp

import (
	"context"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driving"
)

// ListConnectorsInput is the input schema for the list_connectors tool.
type ListConnectorsInput struct {
	Service string `json:"service,omitempty" jsonschema:"only list connectors of this source type, e.g. postgres"`
}

// ListConnectorsOutput is the output schema for the list_connectors tool.
type ListConnectorsOutput struct {
	Connectors []ConnectorOutput `json:"connectors"`
	Count      int               `json:"count"`
}

// ConnectorOutput summarises a connector.
type ConnectorOutput struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Service   string `json:"service"`
	Status    string `json:"status"`
	SyncState string `json:"sync_state"`
	Tables    int    `json:"tables"`
}

// AssetSpecsInput is the input schema for the asset_specs tool.
type AssetSpecsInput struct {
	ConnectorID string `json:"connector_id,omitempty" jsonschema:"only return specs materialized by this connector"`
}

// AssetSpecsOutput is the output schema for the asset_specs tool.
type AssetSpecsOutput struct {
	Specs []domain.AssetSpec `json:"specs"`
	Count int                `json:"count"`
}

// SyncConnectorInput is the input schema for the sync_connector tool.
type SyncConnectorInput struct {
	ConnectorID    string `json:"connector_id" jsonschema:"the connector to sync"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty" jsonschema:"give up polling after this many seconds (default from settings)"`
}

// SyncStatusInput is the input schema for the sync_status tool.
type SyncStatusInput struct {
	ConnectorID string `json:"connector_id" jsonschema:"the connector to inspect"`
}

// SyncRunOutput describes a sync run.
type SyncRunOutput struct {
	RunID       string `json:"run_id,omitempty"`
	ConnectorID string `json:"connector_id"`
	State       string `json:"state"`
	Running     bool   `json:"running"`
	StartedAt   string `json:"started_at,omitempty"`
	EndedAt     string `json:"ended_at,omitempty"`
	Polls       int    `json:"polls,omitempty"`
	RowsSynced  *int64 `json:"rows_synced,omitempty"`
	Error       string `json:"error,omitempty"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_connectors",
		Description: "List the ELT connectors in the workspace",
	}, s.handleListConnectors)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "asset_specs",
		Description: "Describe every destination table as an orchestration asset",
	}, s.handleAssetSpecs)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_connector",
		Description: "Trigger a connector sync and wait until it finishes",
	}, s.handleSyncConnector)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "sync_status",
		Description: "Show the running or most recent sync of a connector",
	}, s.handleSyncStatus)
}

func (s *Server) handleListConnectors(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListConnectorsInput,
) (*mcp.CallToolResult, ListConnectorsOutput, error) {
	connectors, err := s.ports.Catalog.Load(ctx)
	if err != nil {
		return nil, ListConnectorsOutput{}, err
	}

	output := ListConnectorsOutput{Connectors: []ConnectorOutput{}}
	for i := range connectors {
		c := &connectors[i]
		if input.Service != "" && c.Service != input.Service {
			continue
		}
		output.Connectors = append(output.Connectors, ConnectorOutput{
			ID:        c.ID,
			Name:      c.Name,
			Service:   c.Service,
			Status:    string(c.Status),
			SyncState: string(c.SyncState),
			Tables:    len(c.Tables),
		})
	}
	output.Count = len(output.Connectors)

	return nil, output, nil
}

func (s *Server) handleAssetSpecs(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AssetSpecsInput,
) (*mcp.CallToolResult, AssetSpecsOutput, error) {
	if s.ports.Specs == nil {
		return nil, AssetSpecsOutput{}, errSpecsUnavailable
	}

	specs, err := s.ports.Specs.Specs(ctx, s.ports.Overrides)
	if err != nil {
		return nil, AssetSpecsOutput{}, err
	}

	output := AssetSpecsOutput{Specs: []domain.AssetSpec{}}
	for i := range specs {
		if input.ConnectorID != "" && specs[i].ConnectorID != input.ConnectorID {
			continue
		}
		output.Specs = append(output.Specs, specs[i])
	}
	output.Count = len(output.Specs)

	return nil, output, nil
}

// handleSyncConnector blocks until the run is terminal. Failed and
// canceled runs are reported in the output, not as tool errors.
func (s *Server) handleSyncConnector(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SyncConnectorInput,
) (*mcp.CallToolResult, SyncRunOutput, error) {
	if s.ports.Sync == nil {
		return nil, SyncRunOutput{}, errSyncUnavailable
	}
	if input.ConnectorID == "" {
		return nil, SyncRunOutput{}, fmt.Errorf("%w: connector_id is required", domain.ErrInvalidInput)
	}
	if input.TimeoutSeconds < 0 {
		return nil, SyncRunOutput{}, fmt.Errorf("%w: timeout_seconds must not be negative", domain.ErrInvalidInput)
	}

	opts := driving.SyncOptions{Timeout: time.Duration(input.TimeoutSeconds) * time.Second}
	run, err := s.ports.Sync.Run(ctx, input.ConnectorID, opts)
	if err != nil {
		return nil, SyncRunOutput{}, err
	}

	return nil, runOutput(run, false), nil
}

func (s *Server) handleSyncStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SyncStatusInput,
) (*mcp.CallToolResult, SyncRunOutput, error) {
	if s.ports.Sync == nil {
		return nil, SyncRunOutput{}, errSyncUnavailable
	}
	if input.ConnectorID == "" {
		return nil, SyncRunOutput{}, fmt.Errorf("%w: connector_id is required", domain.ErrInvalidInput)
	}

	status, err := s.ports.Sync.Status(ctx, input.ConnectorID)
	if err != nil {
		return nil, SyncRunOutput{}, err
	}
	if status.Run == nil {
		return nil, SyncRunOutput{ConnectorID: status.ConnectorID, State: string(domain.SyncIdle)}, nil
	}

	return nil, runOutput(status.Run, status.Running), nil
}

func runOutput(run *domain.SyncRun, running bool) SyncRunOutput {
	out := SyncRunOutput{
		RunID:       run.ID,
		ConnectorID: run.ConnectorID,
		State:       run.State.String(),
		Running:     running,
		Polls:       run.Polls,
		RowsSynced:  run.RowsSynced,
		Error:       run.Error,
	}
	if !run.StartedAt.IsZero() {
		out.StartedAt = run.StartedAt.Format(time.RFC3339)
	}
	if !run.EndedAt.IsZero() {
		out.EndedAt = run.EndedAt.Format(time.RFC3339)
	}
	return out
}
