package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/custodia-labs/hcgarun/internal/core/domain"
	"github.com/custodia-labs/hcgarun/internal/core/ports/driven"
)

// Ensure RunStore implements the interface.
var _ driven.RunStore = (*RunStore)(nil)

// RunStore is an in-memory implementation of driven.RunStore.
// It stands in when the history database cannot be opened.
type RunStore struct {
	mu   sync.RWMutex
	runs map[string]domain.Run
}

// NewRunStore creates a new in-memory run store.
func NewRunStore() *RunStore {
	return &RunStore{
		runs: make(map[string]domain.Run),
	}
}

// SaveRun stores or replaces a run.
func (s *RunStore) SaveRun(_ context.Context, run *domain.Run) error {
	if run == nil || run.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *run
	cp.Stages = slices.Clone(run.Stages)
	s.runs[run.ID] = cp
	return nil
}

// GetRun retrieves a run by ID.
func (s *RunStore) GetRun(_ context.Context, id string) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	run.Stages = slices.Clone(run.Stages)
	return &run, nil
}

// ListRuns returns the most recent runs, newest first.
func (s *RunStore) ListRuns(_ context.Context, limit int) ([]domain.Run, error) {
	return s.list(func(domain.Run) bool { return true }, limit), nil
}

// ListRunsForDataset returns the most recent runs of one dataset, newest first.
func (s *RunStore) ListRunsForDataset(_ context.Context, dataset string, limit int) ([]domain.Run, error) {
	return s.list(func(r domain.Run) bool { return r.Dataset == dataset }, limit), nil
}

func (s *RunStore) list(keep func(domain.Run) bool, limit int) []domain.Run {
	s.mu.RLock()
	defer s.mu.RUnlock()

	runs := make([]domain.Run, 0, len(s.runs))
	for _, r := range s.runs {
		if keep(r) {
			r.Stages = slices.Clone(r.Stages)
			runs = append(runs, r)
		}
	}
	slices.SortFunc(runs, func(a, b domain.Run) int {
		return b.StartedAt.Compare(a.StartedAt)
	})
	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}
	return runs
}
