package fivetran

import (
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/tributary/internal/core/domain"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the default retry budget for transient errors.
	MaxRetries = 3

	// NoRetries disables retries when set as Config.MaxRetries.
	NoRetries = -1

	// RetryDelay is the initial delay between retries.
	RetryDelay = time.Second

	// MaxRetryDelay caps the exponential backoff interval.
	MaxRetryDelay = 30 * time.Second

	// PageLimit is the page size requested from list endpoints.
	PageLimit = 100
)

// Config holds everything needed to build a Client.
type Config struct {
	// BaseURL is the API root, without the /v1 prefix.
	BaseURL string

	// Credentials authenticate every request.
	Credentials domain.WorkspaceCredentials

	// MaxRetries is the retry budget for transient errors. Zero means
	// the default budget; NoRetries turns retrying off.
	MaxRetries int

	// RetryDelay and MaxRetryDelay bound the exponential backoff.
	RetryDelay    time.Duration
	MaxRetryDelay time.Duration

	// RequestsPerSecond is the proactive throttle rate.
	RequestsPerSecond float64

	// HTTPClient overrides the default client. Useful for testing.
	HTTPClient *http.Client
}

// ConfigFromSettings builds a Config from application settings.
// A max_retries of zero in settings disables retries.
func ConfigFromSettings(s domain.AppSettings) Config {
	retries := s.Client.MaxRetries
	if retries == 0 {
		retries = NoRetries
	}
	return Config{
		BaseURL:           s.Workspace.BaseURL,
		Credentials:       s.Workspace.Credentials,
		MaxRetries:        retries,
		RequestsPerSecond: s.Client.RequestsPerSecond,
	}
}

// withDefaults fills zero fields.
func (c Config) withDefaults() Config {
	if c.BaseURL == "" {
		c.BaseURL = domain.DefaultBaseURL
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	switch {
	case c.MaxRetries == 0:
		c.MaxRetries = MaxRetries
	case c.MaxRetries < 0:
		c.MaxRetries = 0
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = RetryDelay
	}
	if c.MaxRetryDelay <= 0 {
		c.MaxRetryDelay = MaxRetryDelay
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultRequestsPerSecond
	}
	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{Timeout: DefaultTimeout}
	}
	return c
}
