package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/custodia-labs/tributary/internal/core/domain"
	"github.com/custodia-labs/tributary/internal/core/ports/driven"
)

// Ensure SyncRunStore implements the interface.
var _ driven.SyncRunStore = (*SyncRunStore)(nil)

// SyncRunStore is an in-memory implementation of driven.SyncRunStore.
type SyncRunStore struct {
	mu   sync.RWMutex
	runs map[string]domain.SyncRun
}

// NewSyncRunStore creates a new in-memory sync run store.
func NewSyncRunStore() *SyncRunStore {
	return &SyncRunStore{
		runs: make(map[string]domain.SyncRun),
	}
}

// Record stores a terminal run, replacing any run with the same ID.
func (s *SyncRunStore) Record(_ context.Context, run domain.SyncRun) error {
	if run.ID == "" || run.ConnectorID == "" {
		return domain.ErrInvalidInput
	}
	if !run.State.IsTerminal() {
		return fmt.Errorf("%w: run %s is %s", domain.ErrInvalidInput, run.ID, run.State)
	}
	if run.Error == "" && run.Err != nil {
		run.Error = run.Err.Error()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = run
	return nil
}

// List returns runs most recent first. An empty connectorID matches all.
func (s *SyncRunStore) List(_ context.Context, connectorID string, limit int) ([]domain.SyncRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var runs []domain.SyncRun
	for _, r := range s.runs {
		if connectorID == "" || r.ConnectorID == connectorID {
			runs = append(runs, r)
		}
	}
	slices.SortFunc(runs, func(a, b domain.SyncRun) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

// Latest returns the most recent run for a connector.
func (s *SyncRunStore) Latest(ctx context.Context, connectorID string) (*domain.SyncRun, error) {
	runs, _ := s.List(ctx, connectorID, 1)
	if len(runs) == 0 {
		return nil, domain.ErrNotFound
	}
	return &runs[0], nil
}

// Prune deletes runs that ended before the cutoff.
func (s *SyncRunStore) Prune(_ context.Context, before time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, r := range s.runs {
		if !r.EndedAt.IsZero() && r.EndedAt.Before(before) {
			delete(s.runs, id)
			n++
		}
	}
	return n, nil
}
