package services

import (
	"context"
	"errors"

	"github.com/custodia-labs/hcgarun/internal/core/domain"
	"github.com/custodia-labs/hcgarun/internal/core/ports/driven"
	"github.com/custodia-labs/hcgarun/internal/core/ports/driving"
)

// Ensure HistoryService implements the interface.
var _ driving.HistoryService = (*HistoryService)(nil)

// DefaultHistoryLimit is used when a caller passes a non-positive limit.
const DefaultHistoryLimit = 20

// HistoryService reads past pipeline runs from a RunStore.
type HistoryService struct {
	store driven.RunStore
}

// NewHistoryService creates a new history service.
func NewHistoryService(store driven.RunStore) *HistoryService {
	return &HistoryService{store: store}
}

// Recent returns the latest runs across all datasets.
func (s *HistoryService) Recent(ctx context.Context, limit int) ([]domain.Run, error) {
	if s.store == nil {
		return nil, errors.New("run store not configured")
	}
	return s.store.ListRuns(ctx, normaliseLimit(limit))
}

// ForDataset returns the latest runs for one dataset.
func (s *HistoryService) ForDataset(ctx context.Context, dataset string, limit int) ([]domain.Run, error) {
	if s.store == nil {
		return nil, errors.New("run store not configured")
	}
	if dataset == "" {
		return nil, domain.ErrMissingDataset
	}
	return s.store.ListRunsForDataset(ctx, dataset, normaliseLimit(limit))
}

// Get returns a single run by ID.
func (s *HistoryService) Get(ctx context.Context, id string) (*domain.Run, error) {
	if s.store == nil {
		return nil, errors.New("run store not configured")
	}
	if id == "" {
		return nil, domain.ErrInvalidInput
	}
	return s.store.GetRun(ctx, id)
}

func normaliseLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}
