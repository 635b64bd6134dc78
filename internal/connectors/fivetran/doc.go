// Package fivetran implements the workspace client for the Fivetran-style
// ELT REST API.
//
// # Architecture
//
// The package implements the [driven.ELTService] port with two pieces:
//
//   - Client: authenticated request/response transport with throttling,
//     error classification and bounded retries
//   - Service: typed endpoints (groups, connectors, schemas, destinations,
//     sync trigger and cancel) decoded from the JSON envelope
//
// # Authentication
//
// Requests carry the API key and secret as HTTP Basic credentials. The
// account ID is checked against /v1/account/info by ValidateCredentials.
// Credentials are held for the client's lifetime and released by Close.
//
// # Errors and Retries
//
// Responses are classified into typed errors that also match the domain
// sentinels via errors.Is:
//
//   - 401/403: [AuthError] ([domain.ErrAuth]), never retried
//   - 429: [RateLimitError] ([domain.ErrRateLimited]), retried after Retry-After
//   - 5xx and network failures: [TransportError] ([domain.ErrTransport]), retried
//   - other 4xx: [APIError] (404 matches [domain.ErrNotFound]), not retried
//
// Retries use exponential backoff bounded by Config.MaxRetries.
//
// # Rate Limiting
//
// A token bucket throttles requests proactively. A 429 additionally opens
// a backoff window that every subsequent request waits out.
//
// # Pagination
//
// List endpoints return data.items and data.next_cursor; the Service follows
// cursors until exhausted.
package fivetran
