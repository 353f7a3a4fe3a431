package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/custodia-labs/hcgarun/internal/core/domain"
	"github.com/custodia-labs/hcgarun/internal/core/ports/driven"
	"github.com/custodia-labs/hcgarun/internal/logger"
)

// Ensure Runner implements the interface.
var _ driven.ProcessRunner = (*Runner)(nil)

// DefaultGracePeriod is how long an interrupted child may take to exit before it is killed.
const DefaultGracePeriod = 10 * time.Second

// Runner launches stage invocations with os/exec.
type Runner struct {
	// Stdin, Stdout and Stderr are connected to the child process.
	// Nil values default to the driver's own standard streams.
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	// Dir is the child's working directory. Empty means the driver's.
	Dir string

	// GracePeriod bounds the wait between interrupt and kill on cancellation.
	GracePeriod time.Duration

	// BaseEnv returns the inherited environment. Defaults to os.Environ.
	BaseEnv func() []string
}

// NewRunner creates a runner wired to the process's standard streams.
func NewRunner() *Runner {
	return &Runner{
		Stdin:       os.Stdin,
		Stdout:      os.Stdout,
		Stderr:      os.Stderr,
		GracePeriod: DefaultGracePeriod,
		BaseEnv:     os.Environ,
	}
}

// Run starts the invocation and waits for it to exit.
// Output is passed through unmodified.
func (r *Runner) Run(ctx context.Context, inv domain.Invocation) (int, error) {
	if inv.Program == "" {
		return -1, fmt.Errorf("%w: empty program", domain.ErrInvalidInput)
	}

	cmd := exec.CommandContext(ctx, inv.Program, inv.Args...)
	cmd.Dir = r.Dir
	cmd.Env = r.environ(inv.Env)
	cmd.Stdin = r.stdin()
	cmd.Stdout = r.stdout()
	cmd.Stderr = r.stderr()
	cmd.Cancel = func() error {
		logger.Debug("interrupting %s (pid %d)", inv.Stage, cmd.Process.Pid)
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = r.gracePeriod()

	if err := cmd.Start(); err != nil {
		return startFailureCode(err), fmt.Errorf("start %s: %w", inv.Program, err)
	}
	logger.Debug("started %s (pid %d)", inv.Stage, cmd.Process.Pid)

	err := cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if ctx.Err() != nil {
			return code, ctx.Err()
		}
		if code < 0 {
			// killed by a signal
			return -1, fmt.Errorf("%s: %w", inv.Stage, err)
		}
		return code, nil
	}
	if ctx.Err() != nil {
		return -1, ctx.Err()
	}
	return -1, fmt.Errorf("wait %s: %w", inv.Stage, err)
}

// startFailureCode maps a failed start to the status a shell would report.
func startFailureCode(err error) int {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return domain.ExitNotFound
	case errors.Is(err, fs.ErrPermission):
		return domain.ExitNotExecutable
	default:
		return -1
	}
}

// environ merges overrides onto the base environment.
// An override replaces any inherited variable with the same name.
func (r *Runner) environ(overrides map[string]string) []string {
	base := os.Environ
	if r.BaseEnv != nil {
		base = r.BaseEnv
	}
	inherited := base()

	env := make([]string, 0, len(inherited)+len(overrides))
	for _, kv := range inherited {
		name, _, _ := strings.Cut(kv, "=")
		if _, overridden := overrides[name]; overridden {
			continue
		}
		env = append(env, kv)
	}
	return append(env, domain.Invocation{Env: overrides}.EnvList()...)
}

func (r *Runner) stdin() io.Reader {
	if r.Stdin != nil {
		return r.Stdin
	}
	return os.Stdin
}

func (r *Runner) stdout() io.Writer {
	if r.Stdout != nil {
		return r.Stdout
	}
	return os.Stdout
}

func (r *Runner) stderr() io.Writer {
	if r.Stderr != nil {
		return r.Stderr
	}
	return os.Stderr
}

func (r *Runner) gracePeriod() time.Duration {
	if r.GracePeriod > 0 {
		return r.GracePeriod
	}
	return DefaultGracePeriod
}
