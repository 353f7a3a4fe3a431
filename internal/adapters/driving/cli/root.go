// Package cli provides the cobra command tree for hcgarun.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hcgarun/internal/core/domain"
	"github.com/custodia-labs/hcgarun/internal/core/ports/driven"
	"github.com/custodia-labs/hcgarun/internal/core/ports/driving"
	"github.com/custodia-labs/hcgarun/internal/logger"
)

// version is set at build time with -ldflags "-X .../cli.version=...".
var version = "dev"

// Services are the adapters and services the commands run against.
type Services struct {
	Settings driving.SettingsService
	History  driving.HistoryService
	Runner   driven.ProcessRunner
	Runs     driven.RunStore
	Watcher  driven.DatasetWatcher

	// Close releases anything the wiring opened. May be nil.
	Close func() error
}

// WireFunc builds Services for a config directory. An empty directory
// means the default location.
type WireFunc func(configDir string) (*Services, error)

// Injected dependencies. Tests set these directly.
var (
	settingsService driving.SettingsService
	historyService  driving.HistoryService
	processRunner   driven.ProcessRunner
	runStore        driven.RunStore
	datasetWatcher  driven.DatasetWatcher

	wire        WireFunc
	closeWiring func() error
)

// Persistent flags.
var (
	verbose   bool
	configDir string
)

var rootCmd = &cobra.Command{
	Use:   "hcgarun <dataset-id>",
	Short: "Run the hcga feature extraction pipeline for a dataset",
	Long: `Runs the enabled stages of the hcga tool for one dataset, in order:

  get_data          fetch the dataset              (disabled by default)
  extract_features  extract graph features         (enabled by default)
  feature_analysis  classify with the features     (disabled by default)

Each stage is announced before it starts and runs with OMP_NUM_THREADS=1.
The first failing stage stops the run unless --continue-on-error is set,
and its exit code becomes hcgarun's exit code.

A dataset id that matches a command name (stages, history, watch, ...) is
run with "hcgarun run <dataset-id>".`,
	Args:              datasetArg,
	SilenceErrors:     true,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(_ *cobra.Command, _ []string) {
		teardown()
	},
	RunE: runPipeline,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log driver decisions to stderr")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "directory holding config.toml (default ~/.hcgarun)")
	addPipelineFlags(rootCmd)
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the commands that would run and exit")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	})
}

// Execute runs the command tree and returns the process exit code.
// SIGINT and SIGTERM cancel the running pipeline.
func Execute(w WireFunc) int {
	wire = w

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	// cobra skips post-run hooks when RunE fails
	teardown()

	if err != nil && !quiet(err) {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return ExitCode(err)
}

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	return domain.ExitCodeFor(err)
}

// quiet reports errors the user has already seen through the tool's own output.
func quiet(err error) bool {
	var stageErr *domain.StageError
	return errors.As(err, &stageErr) || errors.Is(err, domain.ErrCancelled)
}

func datasetArg(_ *cobra.Command, args []string) error {
	switch len(args) {
	case 0:
		return fmt.Errorf("%w: usage: hcgarun <dataset-id>", domain.ErrMissingDataset)
	case 1:
		return nil
	default:
		return fmt.Errorf("%w: expected one dataset id, got %d arguments", domain.ErrInvalidInput, len(args))
	}
}

// setup configures logging and wires services that were not injected.
func setup(_ *cobra.Command, _ []string) error {
	logger.SetVerbose(verbose)

	if settingsService != nil || wire == nil {
		return nil
	}

	svc, err := wire(configDir)
	if err != nil {
		return err
	}
	settingsService = svc.Settings
	historyService = svc.History
	processRunner = svc.Runner
	runStore = svc.Runs
	datasetWatcher = svc.Watcher
	closeWiring = svc.Close
	return nil
}

func teardown() {
	if closeWiring == nil {
		return
	}
	if err := closeWiring(); err != nil {
		logger.Warn("closing: %v", err)
	}
	closeWiring = nil
}
