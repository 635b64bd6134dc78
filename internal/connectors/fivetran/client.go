package fivetran

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/logger"
)

// Client is the workspace client: an authenticated JSON client for the
// ELT REST API with throttling and bounded retries.
//
// Transient failures (rate limits, 5xx, network errors) are retried with
// exponential backoff up to MaxRetries. Authentication failures and other
// 4xx responses are returned immediately. A Client is safe for concurrent use.
type Client struct {
	cfg         Config
	http        *http.Client
	rateLimiter *RateLimiter

	mu     sync.RWMutex
	creds  domain.WorkspaceCredentials
	closed bool
}

// NewClient creates a client. Credentials are validated locally here and
// remotely by ValidateCredentials.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()
	return &Client{
		cfg:         cfg,
		http:        cfg.HTTPClient,
		rateLimiter: NewRateLimiter(cfg.RequestsPerSecond),
		creds:       cfg.Credentials,
	}, nil
}

// AccountID returns the workspace account the client is bound to.
func (c *Client) AccountID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds.AccountID
}

// RateLimiter returns the rate limiter for external access.
func (c *Client) RateLimiter() *RateLimiter {
	return c.rateLimiter
}

// Close releases the credentials. Subsequent requests fail with ErrClientClosed.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.creds = domain.WorkspaceCredentials{}
	c.closed = true
	return nil
}

// Request issues method on path (e.g. "/v1/groups") with payload encoded as
// JSON when non-nil, and returns the response body of the first 2xx answer.
func (c *Client) Request(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
	}

	attempt := 0
	operation := func() ([]byte, error) {
		attempt++
		respBody, err := c.do(ctx, method, path, body)
		if err == nil {
			return respBody, nil
		}
		if IsTransient(err) && ctx.Err() == nil {
			return nil, err
		}
		return nil, backoff.Permanent(err)
	}

	notify := func(err error, wait time.Duration) {
		observeRetry(err)
		logger.Debug("%s %s attempt %d failed, retrying in %s: %v", method, path, attempt, wait, err)
	}

	return backoff.RetryNotifyWithData(operation, c.newBackOff(ctx), notify)
}

// newBackOff builds the bounded retry policy for one request.
func (c *Client) newBackOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryDelay
	b.MaxInterval = c.cfg.MaxRetryDelay
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.cfg.MaxRetries)), ctx)
}

// maxResponseBytes caps how much of a response body is read.
var maxResponseBytes int64 = 16 << 20

// do performs a single attempt and classifies the outcome.
func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	c.mu.RLock()
	creds, closed := c.creds, c.closed
	c.mu.RUnlock()
	if closed {
		return nil, ErrClientClosed
	}

	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(creds.APIKey, creds.APISecret)
	req.Header.Set("Accept", "application/json;version=2")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		observeRequest(method, 0)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()
	observeRequest(method, resp.StatusCode)

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	if int64(len(respBody)) > maxResponseBytes {
		return nil, fmt.Errorf("%w: %s %s body exceeds %d bytes", ErrUnexpectedResponse, method, path, maxResponseBytes)
	}

	return respBody, c.classify(resp, path, respBody)
}

// classify converts a non-2xx response into a typed error.
func (c *Client) classify(resp *http.Response, path string, body []byte) error {
	code := resp.StatusCode
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusUnauthorized || code == http.StatusForbidden:
		return &AuthError{StatusCode: code, Message: errorMessage(code, body)}
	case code == http.StatusTooManyRequests:
		return c.rateLimiter.RecordRateLimit(resp)
	case code >= 500:
		return &TransportError{StatusCode: code, Err: errors.New(errorMessage(code, body))}
	default:
		return &APIError{StatusCode: code, Message: errorMessage(code, body), Path: path}
	}
}

// errorMessage extracts the envelope message, falling back to the status text.
func errorMessage(code int, body []byte) string {
	var env envelope[json.RawMessage]
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		return env.Message
	}
	return http.StatusText(code)
}

// ValidateCredentials checks the key/secret pair against the service and
// that it belongs to the configured account.
func (c *Client) ValidateCredentials(ctx context.Context) error {
	info, err := c.accountInfo(ctx)
	if err != nil {
		return fmt.Errorf("validate credentials: %w", err)
	}
	if want := c.AccountID(); info.AccountID != "" && info.AccountID != want {
		return &AuthError{
			StatusCode: http.StatusForbidden,
			Message:    fmt.Sprintf("credentials belong to account %s, not %s", info.AccountID, want),
		}
	}
	return nil
}
