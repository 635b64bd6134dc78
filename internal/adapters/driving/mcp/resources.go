package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/tributary/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for tributary resources.
	uriScheme = "tributary://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for listing connectors.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "connectors",
		Name:        "connectors",
		Description: "List of all connectors in the workspace",
		MIMEType:    "application/json",
	}, s.handleConnectorsResource)

	// Template for a single connector with its tables.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "connectors/{connectorId}",
		Name:        "connector",
		Description: "A connector and its destination tables",
		MIMEType:    "application/json",
	}, s.handleConnectorResource)

	// Template for a connector's sync history.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "connectors/{connectorId}/runs",
		Name:        "connector-runs",
		Description: "Recorded sync runs of a connector, most recent first",
		MIMEType:    "application/json",
	}, s.handleRunsResource)
}

// handleConnectorsResource returns the connector list without tables.
func (s *Server) handleConnectorsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	connectors, err := s.ports.Catalog.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading catalog: %w", err)
	}

	type connectorInfo struct {
		ID      string `json:"id"`
		Name    string `json:"name"`
		Service string `json:"service"`
		Status  string `json:"status"`
		Tables  int    `json:"tables"`
	}

	infos := make([]connectorInfo, len(connectors))
	for i := range connectors {
		infos[i] = connectorInfo{
			ID:      connectors[i].ID,
			Name:    connectors[i].Name,
			Service: connectors[i].Service,
			Status:  string(connectors[i].Status),
			Tables:  len(connectors[i].Tables),
		}
	}

	return jsonResult(req.Params.URI, infos)
}

// handleConnectorResource returns one connector including its tables.
func (s *Server) handleConnectorResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract connectorId from URI: tributary://connectors/{connectorId}
	connectorID := extractConnectorID(req.Params.URI)
	if connectorID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	conn, err := s.ports.Catalog.Get(ctx, connectorID)
	if errors.Is(err, domain.ErrConnectorNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("getting connector: %w", err)
	}

	return jsonResult(req.Params.URI, conn)
}

// handleRunsResource returns the recorded runs of a connector.
func (s *Server) handleRunsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Sync == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	// Extract connectorId from URI: tributary://connectors/{connectorId}/runs
	connectorID := extractRunsConnectorID(req.Params.URI)
	if connectorID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	runs, err := s.ports.Sync.History(ctx, connectorID, 20)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	if runs == nil {
		runs = []domain.SyncRun{}
	}

	return jsonResult(req.Params.URI, runs)
}

func jsonResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling %s: %w", uri, err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractConnectorID extracts the ID from a URI like tributary://connectors/{connectorId}.
func extractConnectorID(uri string) string {
	const prefix = uriScheme + "connectors/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	id := strings.TrimPrefix(uri, prefix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}

// extractRunsConnectorID extracts the ID from a URI like tributary://connectors/{connectorId}/runs.
func extractRunsConnectorID(uri string) string {
	const prefix = uriScheme + "connectors/"
	const suffix = "/runs"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	id := strings.TrimSuffix(uri, suffix)
	if strings.Contains(id, "/") {
		return ""
	}
	return id
}
