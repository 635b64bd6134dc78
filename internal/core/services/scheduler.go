package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driven"
	"github.com/custodia-labs/tributary/internal/core/ports/driving"
	"github.com/custodia-labs/tributary/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// historyLimit is how many results are kept per task.
const historyLimit = 100

// Scheduler runs recurring catalog refreshes and connector syncs.
// It is a pure core service with no external control API.
type Scheduler struct {
	config   domain.SchedulerConfig
	store    driven.SchedulerStore
	catalog  driving.CatalogService
	executor driving.SyncExecutor

	// tick is how often due tasks are checked.
	tick time.Duration

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup

	// inFlight holds the IDs of tasks whose last execution has not
	// finished. A task is never started twice concurrently.
	inFlight map[string]bool
}

// NewScheduler creates a scheduler with configuration.
func NewScheduler(
	config domain.SchedulerConfig,
	store driven.SchedulerStore,
	catalog driving.CatalogService,
	executor driving.SyncExecutor,
) *Scheduler {
	return &Scheduler{
		config:   config,
		store:    store,
		catalog:  catalog,
		executor: executor,
		tick:     time.Minute,
		inFlight: make(map[string]bool),
	}
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil // Already running
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.mu.Unlock()

	if err := s.initialiseTasks(ctx); err != nil {
		logger.Warn("scheduler: failed to initialise tasks: %v", err)
	}

	return s.run(ctx)
}

// Stop gracefully shuts down the scheduler, waiting for running tasks.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
	return nil
}

// taskFunc performs one execution of a task and reports how many
// connectors it handled.
type taskFunc func(s *Scheduler, ctx context.Context) (int, error)

// builtinTasks are the tasks the scheduler knows how to run, in the order
// they are registered.
var builtinTasks = []struct {
	id, name string
	run      taskFunc
}{
	{domain.TaskIDCatalogRefresh, "Catalog Refresh", (*Scheduler).runCatalogRefresh},
	{domain.TaskIDConnectorSync, "Connector Sync", (*Scheduler).runConnectorSync},
}

func lookupTask(id string) taskFunc {
	for _, b := range builtinTasks {
		if b.id == id {
			return b.run
		}
	}
	return nil
}

// initialiseTasks registers every enabled builtin task with the store.
func (s *Scheduler) initialiseTasks(ctx context.Context) error {
	var errs []error
	for _, b := range builtinTasks {
		cfg := s.config.GetTaskConfig(b.id)
		if !cfg.Enabled {
			continue
		}
		if err := s.ensureTask(ctx, b.id, b.name, cfg); err != nil {
			errs = append(errs, fmt.Errorf("task %s: %w", b.id, err))
		}
	}
	return errors.Join(errs...)
}

// ensureTask creates or updates a task in the store.
func (s *Scheduler) ensureTask(ctx context.Context, id, name string, cfg domain.TaskConfig) error {
	if cfg.Cron != "" {
		if _, err := cron.ParseStandard(cfg.Cron); err != nil {
			return fmt.Errorf("%w: cron %q: %w", domain.ErrInvalidInput, cfg.Cron, err)
		}
	}

	task, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}

	now := time.Now()
	if task == nil {
		task = &domain.ScheduledTask{
			ID:       id,
			Name:     name,
			Interval: cfg.Interval,
			Cron:     cfg.Cron,
			Enabled:  cfg.Enabled,
		}
		task.NextRun = nextRun(task, now)
	} else {
		// Recalculate next run from now when the schedule changed
		if task.Interval != cfg.Interval || task.Cron != cfg.Cron {
			task.Interval = cfg.Interval
			task.Cron = cfg.Cron
			task.NextRun = nextRun(task, now)
		}
		task.Enabled = cfg.Enabled
	}

	return s.store.SaveTask(ctx, task)
}

// nextRun returns when a task is next due after from. A cron expression
// takes precedence over the interval.
func nextRun(task *domain.ScheduledTask, from time.Time) time.Time {
	if task.Cron != "" {
		sched, err := cron.ParseStandard(task.Cron)
		if err == nil {
			return sched.Next(from)
		}
		logger.Warn("scheduler: task %s has invalid cron %q, using interval", task.ID, task.Cron)
	}
	return from.Add(task.Interval)
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context) error {
	// Check for due tasks immediately on startup
	s.checkAndRunDueTasks(ctx)

	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stopCh:
			return nil
		case <-ticker.C:
			s.checkAndRunDueTasks(ctx)
		}
	}
}

// checkAndRunDueTasks finds and executes tasks that are due.
func (s *Scheduler) checkAndRunDueTasks(ctx context.Context) {
	tasks, err := s.store.ListTasks(ctx)
	if err != nil {
		logger.Warn("scheduler: failed to list tasks: %v", err)
		return
	}

	now := time.Now()
	for i := range tasks {
		task := &tasks[i]
		if !task.Enabled {
			continue
		}
		if task.NextRun.IsZero() || !task.NextRun.After(now) {
			s.runTask(ctx, task)
		}
	}
}

// runTask executes a single task in the background and persists the
// outcome.
func (s *Scheduler) runTask(ctx context.Context, task *domain.ScheduledTask) {
	run := lookupTask(task.ID)
	if run == nil {
		logger.Warn("scheduler: unknown task ID: %s", task.ID)
		return
	}
	if !s.claimTask(task.ID) {
		logger.Debug("scheduler: task %s still running, skipping", task.ID)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.releaseTask(task.ID)

		result := &domain.TaskResult{TaskID: task.ID, StartedAt: time.Now()}
		n, err := run(s, ctx)
		result.ItemsProcessed = n
		result.EndedAt = time.Now()
		s.finish(ctx, task, result, err)
	}()
}

// claimTask marks a task in flight. It reports false when the task is
// already running.
func (s *Scheduler) claimTask(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.inFlight[id] {
		return false
	}
	s.inFlight[id] = true
	return true
}

func (s *Scheduler) releaseTask(id string) {
	s.mu.Lock()
	delete(s.inFlight, id)
	s.mu.Unlock()
}

// finish updates the task schedule and appends the result to the history.
func (s *Scheduler) finish(ctx context.Context, task *domain.ScheduledTask, result *domain.TaskResult, err error) {
	task.LastRun = result.StartedAt
	task.NextRun = nextRun(task, result.EndedAt)
	if err != nil {
		result.Error = err.Error()
		task.LastError = result.Error
		logger.Warn("scheduler: task %s failed: %v", task.ID, err)
	} else {
		result.Success = true
		task.LastError = ""
		task.LastSuccess = result.EndedAt
	}

	if err := s.store.SaveTask(ctx, task); err != nil {
		logger.Warn("scheduler: failed to save task %s: %v", task.ID, err)
	}
	if err := s.store.RecordResult(ctx, result); err != nil {
		logger.Warn("scheduler: failed to record result for %s: %v", task.ID, err)
	}
	if err := s.store.PruneHistory(ctx, historyLimit); err != nil {
		logger.Warn("scheduler: failed to prune history: %v", err)
	}
}

// runCatalogRefresh reloads the catalog and reports the connector count.
func (s *Scheduler) runCatalogRefresh(ctx context.Context) (int, error) {
	if s.catalog == nil {
		return 0, nil
	}
	connectors, err := s.catalog.Load(ctx)
	if err != nil {
		return 0, err
	}
	return len(connectors), nil
}

// runConnectorSync syncs every connector that is not paused and reports
// how many succeeded. Runs that did not succeed make the task fail.
func (s *Scheduler) runConnectorSync(ctx context.Context) (int, error) {
	if s.catalog == nil || s.executor == nil {
		return 0, nil
	}

	connectors, err := s.catalog.Load(ctx)
	if err != nil {
		return 0, err
	}
	var ids []string
	for i := range connectors {
		if !connectors[i].IsPaused() {
			ids = append(ids, connectors[i].ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	runs, err := s.executor.RunMany(ctx, ids, driving.SyncOptions{})
	errs := []error{err}
	succeeded := 0
	for _, run := range runs {
		switch {
		case run == nil:
		case run.State == domain.SyncSucceeded:
			succeeded++
		case run.Err != nil:
			errs = append(errs, fmt.Errorf("connector %s %s: %w", run.ConnectorID, run.State, run.Err))
		default:
			errs = append(errs, fmt.Errorf("connector %s %s: %s", run.ConnectorID, run.State, run.Error))
		}
	}
	return succeeded, errors.Join(errs...)
}
