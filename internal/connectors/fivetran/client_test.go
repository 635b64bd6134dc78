package fivetran

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/testutil/elttwin"
)

var testCreds = domain.WorkspaceCredentials{AccountID: "acc-1", APIKey: "key", APISecret: "secret"}

// newTestClient builds a fast client. A retries of zero disables retrying.
func newTestClient(t *testing.T, baseURL string, retries int) *Client {
	t.Helper()
	if retries == 0 {
		retries = NoRetries
	}
	c, err := NewClient(Config{
		BaseURL:           baseURL,
		Credentials:       testCreds,
		MaxRetries:        retries,
		RetryDelay:        time.Millisecond,
		MaxRetryDelay:     5 * time.Millisecond,
		RequestsPerSecond: 1000,
	})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{Credentials: domain.WorkspaceCredentials{AccountID: "a"}})
	assert.ErrorIs(t, err, domain.ErrCredentialsMissing)
}

func TestClient_Request_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, secret, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", key)
		assert.Equal(t, "secret", secret)
		assert.Equal(t, "/v1/groups", r.URL.Path)
		w.Write([]byte(`{"code":"Success","data":{}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	body, err := c.Request(context.Background(), http.MethodGet, "/v1/groups", nil)

	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"Success","data":{}}`, string(body))
}

func TestClient_Request_EncodesPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		buf, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"force":true}`, string(buf))
		w.Write([]byte(`{"code":"Success"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	_, err := c.Request(context.Background(), http.MethodPost, "/v1/connectors/x/sync", map[string]bool{"force": true})
	require.NoError(t, err)
}

func TestClient_Request_AuthErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":"AuthFailed","message":"bad key"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 5)
	_, err := c.Request(context.Background(), http.MethodGet, "/v1/groups", nil)

	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.ErrorIs(t, err, domain.ErrAuth)
	assert.Contains(t, err.Error(), "bad key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Request_ForbiddenIsAuthError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 2)
	_, err := c.Request(context.Background(), http.MethodGet, "/v1/groups", nil)

	assert.ErrorIs(t, err, domain.ErrAuth)
}

func TestClient_Request_TransportErrorRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"code":"Success"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.Request(context.Background(), http.MethodGet, "/v1/groups", nil)

	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Request_RetryBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 2)
	_, err := c.Request(context.Background(), http.MethodGet, "/v1/groups", nil)

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTransport)
	var transportErr *TransportError
	require.True(t, errors.As(err, &transportErr))
	assert.Equal(t, http.StatusServiceUnavailable, transportErr.StatusCode)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Request_NetworkErrorIsTransport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c := newTestClient(t, url, 1)
	_, err := c.Request(context.Background(), http.MethodGet, "/v1/groups", nil)

	assert.ErrorIs(t, err, domain.ErrTransport)
}

func TestClient_Request_RateLimitRetriedAfterRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set(HeaderRetryAfter, "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"code":"Success"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 2)
	_, err := c.Request(context.Background(), http.MethodGet, "/v1/groups", nil)

	require.NoError(t, err)
	assert.Equal(t, int32(2), calls.Load())
	assert.False(t, c.RateLimiter().RetryAt().IsZero())
}

func TestClient_Request_RateLimitExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set(HeaderRetryAfter, "0")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 1)
	_, err := c.Request(context.Background(), http.MethodGet, "/v1/groups", nil)

	assert.True(t, IsRateLimited(err))
	assert.ErrorIs(t, err, domain.ErrRateLimited)
}

func TestClient_Request_NotFoundNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.Request(context.Background(), http.MethodGet, "/v1/connectors/missing", nil)

	assert.True(t, IsNotFound(err))
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Request_ContextCanceled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.Request(ctx, http.MethodGet, "/v1/groups", nil)

	assert.ErrorIs(t, err, context.Canceled)
}

func TestClient_Request_ResponseTooLarge(t *testing.T) {
	orig := maxResponseBytes
	maxResponseBytes = 16
	t.Cleanup(func() { maxResponseBytes = orig })

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.Write([]byte(`{"code":"Success","data":{"items":[]}}`)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 3)
	_, err := c.Request(context.Background(), http.MethodGet, "/v1/groups", nil)

	assert.ErrorIs(t, err, ErrUnexpectedResponse)
	assert.Equal(t, int32(1), calls.Load(), "oversized bodies are not retried")
}

func TestClient_Request_BodyAtLimit(t *testing.T) {
	body := `{"code":"Success"}`
	orig := maxResponseBytes
	maxResponseBytes = int64(len(body))
	t.Cleanup(func() { maxResponseBytes = orig })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(body)) //nolint:errcheck
	}))
	defer srv.Close()

	c := newTestClient(t, srv.URL, 0)
	got, err := c.Request(context.Background(), http.MethodGet, "/v1/groups", nil)

	require.NoError(t, err)
	assert.Equal(t, body, string(got))
}

func TestClient_Close(t *testing.T) {
	c := newTestClient(t, "http://127.0.0.1:0", 0)
	require.NoError(t, c.Close())

	_, err := c.Request(context.Background(), http.MethodGet, "/v1/groups", nil)

	assert.ErrorIs(t, err, ErrClientClosed)
	assert.Empty(t, c.AccountID())
}

func TestClient_ValidateCredentials(t *testing.T) {
	tw := elttwin.New("acc-1", "key", "secret")
	srv := tw.Server()
	defer srv.Close()

	t.Run("matching account", func(t *testing.T) {
		c := newTestClient(t, srv.URL, 0)
		assert.NoError(t, c.ValidateCredentials(context.Background()))
	})

	t.Run("wrong secret", func(t *testing.T) {
		c, err := NewClient(Config{
			BaseURL:     srv.URL,
			Credentials: domain.WorkspaceCredentials{AccountID: "acc-1", APIKey: "key", APISecret: "nope"},
		})
		require.NoError(t, err)
		assert.ErrorIs(t, c.ValidateCredentials(context.Background()), domain.ErrAuth)
	})

	t.Run("different account", func(t *testing.T) {
		c, err := NewClient(Config{
			BaseURL:     srv.URL,
			Credentials: domain.WorkspaceCredentials{AccountID: "acc-2", APIKey: "key", APISecret: "secret"},
		})
		require.NoError(t, err)
		err = c.ValidateCredentials(context.Background())
		assert.ErrorIs(t, err, domain.ErrAuth)
		assert.Contains(t, err.Error(), "acc-1")
	})
}
