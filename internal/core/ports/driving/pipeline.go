package driving

import (
	"context"

	"github.com/custodia-labs/hcgarun/internal/core/domain"
)

// PipelineService sequences the stages of the hcga tool for one dataset.
type PipelineService interface {
	// Plan returns the invocations a run would make, in order, without running them.
	Plan(dataset string) ([]domain.Invocation, error)

	// Run executes every enabled stage for the dataset.
	// The returned run is non-nil whenever at least one stage was attempted,
	// including when err is non-nil.
	Run(ctx context.Context, dataset string) (*domain.Run, error)

	// Config returns the configuration the service runs with.
	Config() domain.PipelineConfig
}
