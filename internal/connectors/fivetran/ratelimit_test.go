package fivetran

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRateLimiter_DefaultRate(t *testing.T) {
	rl := NewRateLimiter(0)
	require.NotNil(t, rl)
	assert.True(t, rl.RetryAt().IsZero())
}

func TestRateLimiter_RecordRateLimit(t *testing.T) {
	rl := NewRateLimiter(100)
	resp := &http.Response{Header: http.Header{}}
	resp.Header.Set(HeaderRetryAfter, "30")

	err := rl.RecordRateLimit(resp)

	assert.WithinDuration(t, time.Now().Add(30*time.Second), err.RetryAt, 2*time.Second)
	assert.Equal(t, err.RetryAt, rl.RetryAt())
}

func TestRateLimiter_RecordRateLimit_KeepsLaterWindow(t *testing.T) {
	rl := NewRateLimiter(100)
	long := &http.Response{Header: http.Header{HeaderRetryAfter: []string{"60"}}}
	short := &http.Response{Header: http.Header{HeaderRetryAfter: []string{"1"}}}

	first := rl.RecordRateLimit(long)
	rl.RecordRateLimit(short)

	assert.Equal(t, first.RetryAt, rl.RetryAt())
}

func TestRateLimiter_WaitRespectsContext(t *testing.T) {
	rl := NewRateLimiter(100)
	rl.RecordRateLimit(&http.Response{Header: http.Header{HeaderRetryAfter: []string{"60"}}})

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := rl.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   time.Duration
	}{
		{"seconds", "5", 5 * time.Second},
		{"missing", "", DefaultRetryAfter},
		{"garbage", "soon", DefaultRetryAfter},
		{"past date", time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &http.Response{Header: http.Header{}}
			if tt.header != "" {
				resp.Header.Set(HeaderRetryAfter, tt.header)
			}
			assert.Equal(t, tt.want, parseRetryAfter(resp))
		})
	}

	assert.Equal(t, DefaultRetryAfter, parseRetryAfter(nil))
}
