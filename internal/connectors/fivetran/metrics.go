package fivetran

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tributary_api_requests_total",
	Help: "Requests sent to the ELT API, by method and response status",
}, []string{"method", "status"})

var retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "tributary_api_retries_total",
	Help: "Retried ELT API requests, by failure kind",
}, []string{"kind"})

func observeRequest(method string, status int) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	requestsTotal.WithLabelValues(method, label).Inc()
}

func observeRetry(err error) {
	kind := "transport"
	if IsRateLimited(err) {
		kind = "rate_limit"
	}
	retriesTotal.WithLabelValues(kind).Inc()
}
