// Package mcp provides an MCP (Model Context Protocol) server adapter for
// tributary. It lets AI assistants browse connectors, read asset specs and
// trigger connector syncs.
package mcp

import "errors"

// ErrMissingCatalogService is returned when the catalog service is not provided.
var ErrMissingCatalogService = errors.New("mcp: catalog service is required")

// errSyncUnavailable is returned by sync tools when no executor is configured.
var errSyncUnavailable = errors.New("mcp: sync executor is not configured")

// errSpecsUnavailable is returned by the asset_specs tool when no
// translator is configured.
var errSpecsUnavailable = errors.New("mcp: asset spec service is not configured")
