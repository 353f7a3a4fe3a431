package driving

import (
	"context"

	"github.com/custodia-labs/hcgarun/internal/core/domain"
)

// HistoryService reads records of past pipeline runs.
type HistoryService interface {
	// Recent returns the latest runs across all datasets.
	Recent(ctx context.Context, limit int) ([]domain.Run, error)

	// ForDataset returns the latest runs for one dataset.
	ForDataset(ctx context.Context, dataset string, limit int) ([]domain.Run, error)

	// Get returns a single run by ID.
	Get(ctx context.Context, id string) (*domain.Run, error)
}
