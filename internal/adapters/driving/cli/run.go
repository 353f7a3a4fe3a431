package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/hcgarun/internal/core/domain"
	"github.com/custodia-labs/hcgarun/internal/core/services"
)

// Pipeline flags. Zero values leave the stored setting in place.
var (
	enableStages    []string
	disableStages   []string
	toolPath        string
	extractMode     string
	workers         int
	timeout         int
	continueOnError bool
	dryRun          bool
	noHistory       bool
)

var runCmd = &cobra.Command{
	Use:   "run <dataset-id>",
	Short: "Run the pipeline for a dataset",
	Long: `Runs the pipeline exactly like "hcgarun <dataset-id>". Use this form when
the dataset id is also the name of a command, as in "hcgarun run stages".`,
	Args: datasetArg,
	RunE: runPipeline,
}

func init() {
	addPipelineFlags(runCmd)
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the commands that would run and exit")
	rootCmd.AddCommand(runCmd)
}

func addPipelineFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringSliceVar(&enableStages, "enable", nil, "enable a stage for this run (repeatable)")
	f.StringSliceVar(&disableStages, "disable", nil, "disable a stage for this run (repeatable)")
	f.StringVar(&toolPath, "tool", "", "hcga executable (default from config, then \"hcga\")")
	f.StringVarP(&extractMode, "mode", "m", "", "feature extraction mode: fast, medium, slow or all")
	f.IntVarP(&workers, "workers", "n", 0, "worker processes for extract_features")
	f.IntVar(&timeout, "timeout", 0, "per-feature timeout in seconds for extract_features")
	f.BoolVar(&continueOnError, "continue-on-error", false, "run remaining stages after a stage fails")
	f.BoolVar(&noHistory, "no-history", false, "do not record this run")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	pipeline, err := newPipeline(cmd)
	if err != nil {
		return err
	}

	if dryRun {
		plan, err := pipeline.Plan(args[0])
		if err != nil {
			return err
		}
		for _, inv := range plan {
			fmt.Fprintln(cmd.OutOrStdout(), inv.String())
		}
		return nil
	}

	_, err = pipeline.Run(cmd.Context(), args[0])
	return err
}

// newPipeline builds a pipeline service from stored settings and flags.
func newPipeline(cmd *cobra.Command) (*services.PipelineService, error) {
	if settingsService == nil {
		return nil, errors.New("settings service not configured")
	}

	cfg, err := settingsService.PipelineConfig()
	if err != nil {
		return nil, err
	}
	if err := applyFlags(&cfg); err != nil {
		return nil, err
	}

	opts := []services.PipelineOption{services.WithStatusOutput(cmd.OutOrStdout())}
	if !noHistory && settingsService.HistoryEnabled() {
		opts = append(opts, services.WithRunStore(runStore))
	}

	return services.NewPipelineService(cfg, processRunner, opts...), nil
}

// applyFlags overlays command-line flags on cfg.
func applyFlags(cfg *domain.PipelineConfig) error {
	if toolPath != "" {
		cfg.ToolPath = toolPath
	}
	if extractMode != "" {
		mode, err := domain.ParseExtractionMode(extractMode)
		if err != nil {
			return err
		}
		cfg.Mode = mode
	}
	if workers != 0 {
		cfg.Workers = workers
	}
	if timeout != 0 {
		cfg.Timeout = timeout
	}
	if continueOnError {
		cfg.OnFailure = domain.FailureContinue
	}

	for _, name := range enableStages {
		stage, err := domain.ParseStageName(name)
		if err != nil {
			return fmt.Errorf("--enable: %w", err)
		}
		cfg.Enabled[stage] = true
	}
	for _, name := range disableStages {
		stage, err := domain.ParseStageName(name)
		if err != nil {
			return fmt.Errorf("--disable: %w", err)
		}
		cfg.Enabled[stage] = false
	}

	return cfg.Validate()
}
