package domain

import "time"

// RunStatus summarises how a pipeline run ended.
type RunStatus string

const (
	// RunRunning means the run has started but not finished.
	RunRunning RunStatus = "running"

	// RunSucceeded means every enabled stage exited with status 0.
	RunSucceeded RunStatus = "succeeded"

	// RunFailed means at least one stage failed.
	RunFailed RunStatus = "failed"

	// RunCancelled means the run was interrupted.
	RunCancelled RunStatus = "cancelled"
)

// StageStatus describes the outcome of one stage within a run.
type StageStatus string

const (
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
	StageCancelled StageStatus = "cancelled"
)

// Run is the record of one pipeline execution.
type Run struct {
	// ID is the unique identifier for the run.
	ID string

	// Dataset is the identifier the run was invoked with.
	Dataset string

	// Status is the overall outcome.
	Status RunStatus

	// ExitCode is the code the driver exits with for this run.
	ExitCode int

	// StartedAt is when the first stage was announced.
	StartedAt time.Time

	// EndedAt is when the last stage finished.
	EndedAt time.Time

	// Stages holds one result per stage that was launched, in order.
	Stages []StageResult
}

// Duration returns how long the run took.
func (r *Run) Duration() time.Duration {
	if r.EndedAt.IsZero() {
		return 0
	}
	return r.EndedAt.Sub(r.StartedAt)
}

// FirstFailure returns the first stage that did not succeed, or nil.
func (r *Run) FirstFailure() *StageResult {
	for i := range r.Stages {
		if r.Stages[i].Status != StageSucceeded {
			return &r.Stages[i]
		}
	}
	return nil
}

// StageResult records one stage invocation.
type StageResult struct {
	// Stage is the stage that ran.
	Stage StageName

	// Command is the rendered invocation, environment included.
	Command string

	// ExitCode is the child's exit status, -1 if it never exited normally.
	ExitCode int

	// Status is the stage outcome.
	Status StageStatus

	// Error holds the failure message, empty on success.
	Error string

	// StartedAt is when the process was launched.
	StartedAt time.Time

	// EndedAt is when the process exited.
	EndedAt time.Time
}

// Duration returns how long the stage took.
func (s StageResult) Duration() time.Duration {
	return s.EndedAt.Sub(s.StartedAt)
}
