package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/hcgarun/internal/core/domain"
	"github.com/custodia-labs/hcgarun/internal/core/ports/driven"
	"github.com/custodia-labs/hcgarun/internal/core/ports/driving"
	"github.com/custodia-labs/hcgarun/internal/logger"
)

// Ensure PipelineService implements the interface.
var _ driving.PipelineService = (*PipelineService)(nil)

// PipelineService runs the enabled stages of the hcga tool in order.
type PipelineService struct {
	config domain.PipelineConfig
	runner driven.ProcessRunner
	store  driven.RunStore
	status io.Writer
	now    func() time.Time
	newID  func() string
}

// PipelineOption configures a PipelineService.
type PipelineOption func(*PipelineService)

// WithRunStore records every run in store. A nil store disables history.
func WithRunStore(store driven.RunStore) PipelineOption {
	return func(s *PipelineService) {
		s.store = store
	}
}

// WithStatusOutput sets where stage announcements are written.
// Defaults to os.Stdout.
func WithStatusOutput(w io.Writer) PipelineOption {
	return func(s *PipelineService) {
		if w != nil {
			s.status = w
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) PipelineOption {
	return func(s *PipelineService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator overrides how run IDs are created.
func WithIDGenerator(newID func() string) PipelineOption {
	return func(s *PipelineService) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewPipelineService creates a pipeline service.
// The configuration is copied; later changes to cfg do not affect the service.
func NewPipelineService(cfg domain.PipelineConfig, runner driven.ProcessRunner, opts ...PipelineOption) *PipelineService {
	s := &PipelineService{
		config: cfg.Clone(),
		runner: runner,
		status: os.Stdout,
		now:    time.Now,
		newID:  func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Config returns a copy of the configuration.
func (s *PipelineService) Config() domain.PipelineConfig {
	return s.config.Clone()
}

// Plan returns the invocations a run would make, in order.
func (s *PipelineService) Plan(dataset string) ([]domain.Invocation, error) {
	if err := s.check(dataset); err != nil {
		return nil, err
	}

	var plan []domain.Invocation
	for _, stage := range s.config.EnabledStages() {
		inv, err := s.config.Invocation(stage, dataset)
		if err != nil {
			return nil, err
		}
		plan = append(plan, inv)
	}
	return plan, nil
}

// Run executes the enabled stages for dataset.
// Each stage is announced on the status output before its process starts.
// Under FailureHalt the first failing stage ends the run; under
// FailureContinue the remaining stages still run. In both cases the returned
// error describes the first failure.
func (s *PipelineService) Run(ctx context.Context, dataset string) (*domain.Run, error) {
	plan, err := s.Plan(dataset)
	if err != nil {
		return nil, err
	}
	if s.runner == nil {
		return nil, errors.New("process runner not configured")
	}

	run := &domain.Run{
		ID:        s.newID(),
		Dataset:   dataset,
		Status:    domain.RunRunning,
		StartedAt: s.now(),
	}

	logger.Section("Pipeline " + dataset)
	logger.Debug("run %s: %d enabled stage(s), on failure %s", run.ID, len(plan), s.config.OnFailure)

	var firstErr error
	for _, inv := range plan {
		if ctx.Err() != nil {
			firstErr = fmt.Errorf("%w before %s: %w", domain.ErrCancelled, inv.Stage, ctx.Err())
			break
		}

		result, stageErr := s.runStage(ctx, inv)
		run.Stages = append(run.Stages, result)

		if result.Status == domain.StageCancelled {
			firstErr = fmt.Errorf("%w during %s: %w", domain.ErrCancelled, inv.Stage, stageErr)
			break
		}
		if stageErr != nil {
			if firstErr == nil {
				firstErr = stageErr
			}
			if s.config.OnFailure != domain.FailureContinue {
				logger.Info("halting after failed stage %s", inv.Stage)
				break
			}
			logger.Warn("stage %s failed, continuing with remaining stages", inv.Stage)
		}
	}

	run.EndedAt = s.now()
	run.ExitCode = domain.ExitCodeFor(firstErr)
	switch {
	case errors.Is(firstErr, domain.ErrCancelled):
		run.Status = domain.RunCancelled
	case firstErr != nil:
		run.Status = domain.RunFailed
	default:
		run.Status = domain.RunSucceeded
	}

	s.record(ctx, run)
	logger.Debug("run %s finished: %s (exit %d) in %s", run.ID, run.Status, run.ExitCode, run.Duration())

	return run, firstErr
}

// runStage announces and runs one invocation.
func (s *PipelineService) runStage(ctx context.Context, inv domain.Invocation) (domain.StageResult, error) {
	result := domain.StageResult{
		Stage:   inv.Stage,
		Command: inv.String(),
	}

	fmt.Fprintln(s.status, inv.Stage.Announcement())
	logger.Debug("exec: %s", inv.String())

	result.StartedAt = s.now()
	code, err := s.runner.Run(ctx, inv)
	result.EndedAt = s.now()
	result.ExitCode = code

	switch {
	case err == nil && code == 0:
		result.Status = domain.StageSucceeded
		logger.Debug("stage %s succeeded in %s", inv.Stage, result.Duration())
		return result, nil
	case ctx.Err() != nil:
		result.Status = domain.StageCancelled
		result.Error = ctx.Err().Error()
		return result, &domain.StageError{Stage: inv.Stage, ExitCode: code, Err: ctx.Err()}
	default:
		stageErr := &domain.StageError{Stage: inv.Stage, ExitCode: code, Err: err}
		result.Status = domain.StageFailed
		result.Error = stageErr.Error()
		logger.Debug("stage %s failed: %v", inv.Stage, stageErr)
		return result, stageErr
	}
}

// record persists the run. Failures are logged and never change the outcome.
func (s *PipelineService) record(ctx context.Context, run *domain.Run) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveRun(context.WithoutCancel(ctx), run); err != nil {
		logger.Warn("failed to record run %s: %v", run.ID, err)
	}
}

// check rejects missing identifiers and invalid configuration before any stage runs.
func (s *PipelineService) check(dataset string) error {
	if strings.TrimSpace(dataset) == "" {
		return domain.ErrMissingDataset
	}
	return s.config.Validate()
}
