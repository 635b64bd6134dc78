package fivetran

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestMetrics_CountRequestsAndRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"code":"Success"}`)) //nolint:errcheck
	}))
	defer srv.Close()

	unavailable := requestsTotal.WithLabelValues(http.MethodPut, "503")
	ok := requestsTotal.WithLabelValues(http.MethodPut, "200")
	retries := retriesTotal.WithLabelValues("transport")
	beforeUnavailable := counterValue(t, unavailable)
	beforeOK := counterValue(t, ok)
	beforeRetries := counterValue(t, retries)

	c := newTestClient(t, srv.URL, 3)
	_, err := c.Request(context.Background(), http.MethodPut, "/v1/groups", nil)
	require.NoError(t, err)

	assert.InDelta(t, 1, counterValue(t, unavailable)-beforeUnavailable, 0)
	assert.InDelta(t, 1, counterValue(t, ok)-beforeOK, 0)
	assert.InDelta(t, 1, counterValue(t, retries)-beforeRetries, 0)
}

func TestObserveRequest_NetworkFailureLabel(t *testing.T) {
	failed := requestsTotal.WithLabelValues(http.MethodDelete, "error")
	before := counterValue(t, failed)

	observeRequest(http.MethodDelete, 0)

	assert.InDelta(t, 1, counterValue(t, failed)-before, 0)
}
