package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/raulk/clock"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driven"
	"github.com/custodia-labs/tributary/internal/core/ports/driving"
	"github.com/custodia-labs/tributary/internal/logger"
)

// Ensure SyncExecutor implements the interface.
var _ driving.SyncExecutor = (*SyncExecutor)(nil)

// cancelTimeout bounds the best-effort remote cancel of an aborted run.
const cancelTimeout = 10 * time.Second

// SyncExecutor triggers connector syncs and polls them to completion.
//
// Runs of distinct connectors proceed independently; a second Run for a
// connector that already has one in flight fails with
// domain.ErrSyncInProgress.
type SyncExecutor struct {
	elt      driven.ELTService
	runs     driven.SyncRunStore
	settings domain.SyncSettings
	clock    clock.Clock
	newID    func() string

	mu          sync.RWMutex
	activeSyncs map[string]*domain.SyncRun
}

// ExecutorOption configures a SyncExecutor.
type ExecutorOption func(*SyncExecutor)

// WithClock replaces the wall clock, for tests.
func WithClock(c clock.Clock) ExecutorOption {
	return func(e *SyncExecutor) { e.clock = c }
}

// WithRunIDs replaces the run ID generator.
func WithRunIDs(gen func() string) ExecutorOption {
	return func(e *SyncExecutor) { e.newID = gen }
}

// NewSyncExecutor creates a sync executor. runs is optional; without it
// finished runs are not recorded and History is empty.
func NewSyncExecutor(elt driven.ELTService, runs driven.SyncRunStore, settings domain.SyncSettings, opts ...ExecutorOption) *SyncExecutor {
	defaults := domain.DefaultAppSettings().Sync
	if settings.PollInterval <= 0 {
		settings.PollInterval = defaults.PollInterval
	}
	if settings.Timeout <= 0 {
		settings.Timeout = defaults.Timeout
	}
	if settings.Parallelism <= 0 {
		settings.Parallelism = defaults.Parallelism
	}

	e := &SyncExecutor{
		elt:         elt,
		runs:        runs,
		settings:    settings,
		clock:       clock.New(),
		newID:       uuid.NewString,
		activeSyncs: make(map[string]*domain.SyncRun),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run triggers a sync of connectorID and polls until it succeeds, fails,
// times out or ctx is canceled.
//
// An error is returned only when no run could start: the connector is
// unknown, paused, already syncing, or its baseline could not be read.
// Every other outcome is reported through the returned run.
func (e *SyncExecutor) Run(ctx context.Context, connectorID string, opts driving.SyncOptions) (*domain.SyncRun, error) {
	opts = e.withDefaults(opts)

	run := domain.NewSyncRun(e.newID(), connectorID)
	if err := e.claim(run); err != nil {
		return nil, err
	}
	defer e.release(connectorID)

	details, err := e.elt.GetConnector(ctx, connectorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrConnectorNotFound, connectorID)
		}
		return nil, fmt.Errorf("read connector %s: %w", connectorID, err)
	}
	if details.Connector.IsPaused() {
		return nil, fmt.Errorf("%w: %s", domain.ErrConnectorPaused, connectorID)
	}
	baseline := details.Connector

	logger.Info("Starting sync for connector %s (run %s)", connectorID, run.ID)

	e.transition(run, opts, func(now time.Time) error {
		return run.Transition(domain.SyncTriggered, now)
	})

	if err := e.elt.TriggerSync(ctx, connectorID); err != nil {
		if ctx.Err() != nil {
			e.abort(ctx, run, opts)
		} else {
			e.transition(run, opts, func(now time.Time) error {
				return run.Fail(fmt.Errorf("trigger: %w", err), now)
			})
		}
		return e.finish(ctx, run), nil
	}

	e.transition(run, opts, func(now time.Time) error {
		return run.Transition(domain.SyncPolling, now)
	})
	e.poll(ctx, run, baseline, opts)

	return e.finish(ctx, run), nil
}

// poll watches the connector until the run reaches a terminal state.
func (e *SyncExecutor) poll(ctx context.Context, run *domain.SyncRun, baseline domain.Connector, opts driving.SyncOptions) {
	ticker := e.clock.Ticker(opts.PollInterval)
	defer ticker.Stop()
	deadline := e.clock.Timer(opts.Timeout)
	defer deadline.Stop()

	for {
		select {
		case <-ctx.Done():
			e.abort(ctx, run, opts)
			return

		case <-deadline.C:
			logger.Warn("Sync of connector %s timed out after %s", run.ConnectorID, opts.Timeout)
			e.transition(run, opts, func(now time.Time) error {
				return run.Fail(fmt.Errorf("%w: no terminal state after %s", domain.ErrTimeout, opts.Timeout), now)
			})
			return

		case <-ticker.C:
			details, err := e.elt.GetConnector(ctx, run.ConnectorID)
			e.mu.Lock()
			run.Polls++
			e.mu.Unlock()

			if err != nil {
				if ctx.Err() != nil {
					continue
				}
				if errors.Is(err, domain.ErrTransport) || errors.Is(err, domain.ErrRateLimited) {
					logger.Debug("Poll of connector %s failed, will retry: %v", run.ConnectorID, err)
					continue
				}
				e.transition(run, opts, func(now time.Time) error {
					return run.Fail(fmt.Errorf("poll: %w", err), now)
				})
				return
			}

			if e.settle(run, baseline, details, opts) {
				return
			}
		}
	}
}

// settle moves the run to a terminal state when the connector reports a
// sync completed after the baseline. It returns true once settled.
func (e *SyncExecutor) settle(run *domain.SyncRun, baseline domain.Connector, details *driven.ConnectorDetails, opts driving.SyncOptions) bool {
	conn := details.Connector
	if conn.SyncState == domain.RemoteSyncing {
		return false
	}

	succeeded := conn.SucceededAt.After(baseline.SucceededAt)
	failed := conn.FailedAt.After(baseline.FailedAt)

	switch {
	case failed && (!succeeded || conn.FailedAt.After(conn.SucceededAt)):
		e.transition(run, opts, func(now time.Time) error {
			return run.Fail(fmt.Errorf("%w: connector %s reported failure at %s",
				domain.ErrSyncFailed, conn.ID, conn.FailedAt.Format(time.RFC3339)), now)
		})
		return true
	case succeeded:
		e.transition(run, opts, func(now time.Time) error {
			run.RowsSynced = details.RowsSynced
			return run.Transition(domain.SyncSucceeded, now)
		})
		return true
	}
	return false
}

// abort cancels the run locally and asks the service to stop the sync.
// A failed remote cancel is logged and otherwise ignored.
func (e *SyncExecutor) abort(ctx context.Context, run *domain.SyncRun, opts driving.SyncOptions) {
	e.transition(run, opts, func(now time.Time) error {
		return run.Cancel(context.Cause(ctx), now)
	})

	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cancelTimeout)
	defer cancel()
	if err := e.elt.CancelSync(cctx, run.ConnectorID); err != nil {
		logger.Warn("Remote cancel of connector %s failed: %v", run.ConnectorID, err)
	}
}

// finish records a terminal run and returns it.
func (e *SyncExecutor) finish(ctx context.Context, run *domain.SyncRun) *domain.SyncRun {
	e.mu.RLock()
	final := *run
	e.mu.RUnlock()

	switch final.State {
	case domain.SyncSucceeded:
		logger.Info("Sync of connector %s succeeded in %s", final.ConnectorID, final.Duration())
	default:
		logger.Info("Sync of connector %s ended %s: %v", final.ConnectorID, final.State, final.Err)
	}

	if e.runs != nil {
		if err := e.runs.Record(context.WithoutCancel(ctx), final); err != nil {
			logger.Warn("Failed to record run %s: %v", final.ID, err)
		}
	}
	return &final
}

// transition applies a state change under the lock and notifies the observer.
func (e *SyncExecutor) transition(run *domain.SyncRun, opts driving.SyncOptions, apply func(now time.Time) error) {
	e.mu.Lock()
	err := apply(e.clock.Now().UTC())
	snapshot := *run
	e.mu.Unlock()

	if err != nil {
		logger.Error("Run %s: %v", run.ID, err)
		return
	}
	logger.Debug("Run %s for connector %s: %s", run.ID, run.ConnectorID, snapshot.State)
	if opts.Observer != nil {
		opts.Observer(snapshot)
	}
}

// RunMany syncs distinct connectors concurrently, at most Parallelism at a
// time. Duplicate IDs are collapsed. Start failures are joined into the
// returned error and leave a nil entry in the result.
func (e *SyncExecutor) RunMany(ctx context.Context, connectorIDs []string, opts driving.SyncOptions) ([]*domain.SyncRun, error) {
	ids := lo.Uniq(connectorIDs)
	results := make([]*domain.SyncRun, len(ids))
	errs := make([]error, len(ids))

	var g errgroup.Group
	g.SetLimit(e.settings.Parallelism)
	for i, id := range ids {
		g.Go(func() error {
			run, err := e.Run(ctx, id, opts)
			results[i] = run
			if err != nil {
				errs[i] = fmt.Errorf("sync %s: %w", id, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(errs...)
}

// Status returns the in-flight run of a connector, or its latest recorded run.
func (e *SyncExecutor) Status(ctx context.Context, connectorID string) (*driving.SyncStatus, error) {
	e.mu.RLock()
	if run, ok := e.activeSyncs[connectorID]; ok {
		// Return a copy to avoid race conditions
		snapshot := *run
		e.mu.RUnlock()
		return &driving.SyncStatus{ConnectorID: connectorID, Running: true, Run: &snapshot}, nil
	}
	e.mu.RUnlock()

	status := &driving.SyncStatus{ConnectorID: connectorID}
	if e.runs == nil {
		return status, nil
	}
	latest, err := e.runs.Latest(ctx, connectorID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return status, nil
		}
		return nil, fmt.Errorf("latest run: %w", err)
	}
	status.Run = latest
	return status, nil
}

// History returns recorded runs for a connector, most recent first.
// An empty connectorID lists runs of every connector.
func (e *SyncExecutor) History(ctx context.Context, connectorID string, limit int) ([]domain.SyncRun, error) {
	if e.runs == nil {
		return nil, nil
	}
	runs, err := e.runs.List(ctx, connectorID, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

func (e *SyncExecutor) withDefaults(opts driving.SyncOptions) driving.SyncOptions {
	if opts.PollInterval <= 0 {
		opts.PollInterval = e.settings.PollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = e.settings.Timeout
	}
	return opts
}

// claim registers run as the in-flight run of its connector.
func (e *SyncExecutor) claim(run *domain.SyncRun) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.activeSyncs[run.ConnectorID]; ok {
		return fmt.Errorf("%w: %s", domain.ErrSyncInProgress, run.ConnectorID)
	}
	e.activeSyncs[run.ConnectorID] = run
	return nil
}

func (e *SyncExecutor) release(connectorID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.activeSyncs, connectorID)
}
