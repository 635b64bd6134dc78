package domain

import "errors"

// Domain errors represent business logic failures.
// Adapter error types map onto these via errors.Is so callers never
// need to import an adapter package to classify a failure.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// Workspace Client Errors.

	// ErrAuth indicates the workspace credentials were rejected.
	// Never retried.
	ErrAuth = errors.New("authentication failed")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransport indicates a network failure or a 5xx response.
	ErrTransport = errors.New("transport error")

	// ErrCredentialsMissing indicates no account ID, API key or secret is configured.
	ErrCredentialsMissing = errors.New("workspace credentials not configured")

	// Catalog Errors.

	// ErrCatalogUnavailable indicates the connector catalog could not be
	// loaded after the client exhausted its retries.
	ErrCatalogUnavailable = errors.New("catalog unavailable")

	// ErrDuplicateAssetKey indicates two destination tables mapped to the same asset key.
	ErrDuplicateAssetKey = errors.New("duplicate asset key")

	// Sync Errors.

	// ErrConnectorNotFound indicates the remote service does not know the connector.
	ErrConnectorNotFound = errors.New("connector not found")

	// ErrConnectorPaused indicates the connector is paused and cannot be synced.
	ErrConnectorPaused = errors.New("connector paused")

	// ErrSyncInProgress indicates a sync is already running for the connector.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrTimeout indicates a sync did not reach a terminal state in time.
	ErrTimeout = errors.New("sync timed out")

	// ErrSyncFailed indicates the remote service reported the sync as failed.
	ErrSyncFailed = errors.New("sync failed")

	// ErrInvalidTransition indicates an illegal sync run state change.
	ErrInvalidTransition = errors.New("invalid sync state transition")
)
