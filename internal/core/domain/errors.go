package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent pipeline failures that are not stage exit codes.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingDataset indicates no dataset identifier was supplied.
	ErrMissingDataset = errors.New("dataset identifier is required")

	// ErrUnknownStage indicates a stage name that the pipeline does not define.
	ErrUnknownStage = errors.New("unknown stage")

	// ErrUnknownMode indicates an extraction mode the tool does not accept.
	ErrUnknownMode = errors.New("unknown extraction mode")

	// ErrCancelled indicates the run was interrupted before all stages completed.
	ErrCancelled = errors.New("pipeline cancelled")
)

// StageError reports a stage whose process did not exit cleanly.
// ExitCode is the child's exit status. A tool that could not be found
// reports ExitNotFound and one that could not be executed ExitNotExecutable.
// Any other start failure, or a kill by a signal, reports -1.
type StageError struct {
	Stage    StageName
	ExitCode int
	Err      error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("stage %s: %v", e.Stage, e.Err)
	}
	return fmt.Sprintf("stage %s exited with status %d", e.Stage, e.ExitCode)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Process exit codes used by the driver.
const (
	ExitOK            = 0
	ExitFailure       = 1
	ExitUsage         = 2
	ExitNotExecutable = 126
	ExitNotFound      = 127
	ExitInterrupted   = 130
)

// ExitCodeFor maps a pipeline error to the driver's exit code.
// A failing stage propagates its own status; usage errors map to ExitUsage;
// cancellation maps to ExitInterrupted.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitOK
	}
	if errors.Is(err, ErrCancelled) {
		return ExitInterrupted
	}
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		if stageErr.ExitCode > 0 {
			return stageErr.ExitCode
		}
		return ExitFailure
	}
	if errors.Is(err, ErrMissingDataset) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrUnknownStage) ||
		errors.Is(err, ErrUnknownMode) {
		return ExitUsage
	}
	return ExitFailure
}
