package fivetran

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/tributary/internal/core/domain"
)

// Client-specific errors.
var (
	// ErrClientClosed indicates Request was called after Close.
	ErrClientClosed = errors.New("fivetran: client closed")

	// ErrUnexpectedResponse indicates a 2xx body that could not be decoded.
	ErrUnexpectedResponse = errors.New("fivetran: unexpected response")
)

// AuthError indicates the credentials were rejected (401/403). Never retried.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("fivetran: authentication failed (%d): %s", e.StatusCode, e.Message)
}

// Is maps the error onto domain.ErrAuth.
func (e *AuthError) Is(target error) bool {
	return target == domain.ErrAuth
}

// RateLimitError represents a 429 response with its retry time.
type RateLimitError struct {
	RetryAt time.Time
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("fivetran: rate limit exceeded, retry at %s", e.RetryAt.Format(time.RFC3339))
}

// Is maps the error onto domain.ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == domain.ErrRateLimited
}

// TransportError represents a network failure or a 5xx response.
type TransportError struct {
	// StatusCode is zero for network failures.
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fivetran: server error %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fivetran: transport error: %v", e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is maps the error onto domain.ErrTransport.
func (e *TransportError) Is(target error) bool {
	return target == domain.ErrTransport
}

// APIError represents any other non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	Path       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("fivetran: API error %d: %s (path: %s)", e.StatusCode, e.Message, e.Path)
}

// Is maps 404 onto domain.ErrNotFound and 400/422 onto domain.ErrInvalidInput.
func (e *APIError) Is(target error) bool {
	switch target {
	case domain.ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case domain.ErrInvalidInput:
		return e.StatusCode == http.StatusBadRequest || e.StatusCode == http.StatusUnprocessableEntity
	}
	return false
}

// IsNotFound checks if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsRateLimited checks if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsUnauthorized checks if the error indicates an authentication failure.
func IsUnauthorized(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsTransient reports whether the error is worth retrying.
func IsTransient(err error) bool {
	var transportErr *TransportError
	return IsRateLimited(err) || errors.As(err, &transportErr)
}
