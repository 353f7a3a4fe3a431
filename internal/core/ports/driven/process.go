package driven

import (
	"context"

	"github.com/custodia-labs/hcgarun/internal/core/domain"
)

// ProcessRunner launches an external process and waits for it to exit.
type ProcessRunner interface {
	// Run starts the invocation and blocks until the process exits.
	// The returned exit code is the process status when it exited on its own.
	// A non-nil error means the process could not be started, was killed
	// by a signal, or ctx was cancelled; the exit code is then -1.
	// A non-zero exit code with a nil error is a normal stage failure.
	Run(ctx context.Context, inv domain.Invocation) (int, error)
}
