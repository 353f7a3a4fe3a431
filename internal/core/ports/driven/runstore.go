package driven

import (
	"context"

	"github.com/custodia-labs/hcgarun/internal/core/domain"
)

// RunStore persists pipeline run records.
type RunStore interface {
	// SaveRun stores or replaces a run and its stage results.
	SaveRun(ctx context.Context, run *domain.Run) error

	// GetRun retrieves a run by ID.
	// Returns domain.ErrNotFound if the run does not exist.
	GetRun(ctx context.Context, id string) (*domain.Run, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]domain.Run, error)

	// ListRunsForDataset returns the most recent runs of one dataset, newest first.
	ListRunsForDataset(ctx context.Context, dataset string, limit int) ([]domain.Run, error)
}
