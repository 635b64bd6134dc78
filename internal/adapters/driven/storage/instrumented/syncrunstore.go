// Package instrumented wraps driven stores with Prometheus metrics.
package instrumented

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driven"
)

// Ensure SyncRunStore implements the interface.
var _ driven.SyncRunStore = (*SyncRunStore)(nil)

// SyncRunStore records run outcomes as metrics before delegating to the
// wrapped store. Metrics are observed even when the wrapped store fails.
type SyncRunStore struct {
	inner driven.SyncRunStore

	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	rows     *prometheus.CounterVec
	polls    prometheus.Histogram
	errors   prometheus.Counter
}

// NewSyncRunStore registers the run metrics with reg and wraps inner.
func NewSyncRunStore(inner driven.SyncRunStore, reg prometheus.Registerer) *SyncRunStore {
	factory := promauto.With(reg)
	return &SyncRunStore{
		inner: inner,
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tributary_sync_runs_total",
			Help: "Finished connector sync runs, by connector and terminal state",
		}, []string{"connector", "state"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tributary_sync_run_duration_seconds",
			Help:    "Wall time from trigger to terminal state",
			Buckets: prometheus.ExponentialBuckets(5, 2, 12),
		}, []string{"state"}),
		rows: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "tributary_sync_rows_total",
			Help: "Rows reported as synced by successful runs",
		}, []string{"connector"}),
		polls: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "tributary_sync_run_polls",
			Help:    "Status requests made per run",
			Buckets: prometheus.ExponentialBuckets(1, 2, 10),
		}),
		errors: factory.NewCounter(prometheus.CounterOpts{
			Name: "tributary_sync_run_record_errors_total",
			Help: "Runs the history store failed to record",
		}),
	}
}

// Record observes the run and records it in the wrapped store.
func (s *SyncRunStore) Record(ctx context.Context, run domain.SyncRun) error {
	state := run.State.String()
	s.runs.WithLabelValues(run.ConnectorID, state).Inc()
	if !run.StartedAt.IsZero() && !run.EndedAt.IsZero() {
		s.duration.WithLabelValues(state).Observe(run.EndedAt.Sub(run.StartedAt).Seconds())
	}
	if run.RowsSynced != nil && run.State == domain.SyncSucceeded {
		s.rows.WithLabelValues(run.ConnectorID).Add(float64(*run.RowsSynced))
	}
	s.polls.Observe(float64(run.Polls))

	if err := s.inner.Record(ctx, run); err != nil {
		s.errors.Inc()
		return err
	}
	return nil
}

// List delegates to the wrapped store.
func (s *SyncRunStore) List(ctx context.Context, connectorID string, limit int) ([]domain.SyncRun, error) {
	return s.inner.List(ctx, connectorID, limit)
}

// Latest delegates to the wrapped store.
func (s *SyncRunStore) Latest(ctx context.Context, connectorID string) (*domain.SyncRun, error) {
	return s.inner.Latest(ctx, connectorID)
}

// Prune delegates to the wrapped store.
func (s *SyncRunStore) Prune(ctx context.Context, before time.Time) (int, error) {
	return s.inner.Prune(ctx, before)
}
