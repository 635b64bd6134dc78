package tui

import "errors"

// ErrMissingCatalogService is returned when the catalog service is not provided.
var ErrMissingCatalogService = errors.New("tui: catalog service is required")

// ErrMissingSyncExecutor is returned when the sync executor is not provided.
var ErrMissingSyncExecutor = errors.New("tui: sync executor is required")
