package domain

import (
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// Default values reproduce the reference pipeline script.
const (
	DefaultToolPath       = "hcga"
	DefaultDatasetDir     = "datasets"
	DefaultDatasetExt     = ".pkl"
	DefaultWorkers        = 2
	DefaultTimeout        = 1000
	DefaultThreadsEnvName = "OMP_NUM_THREADS"
)

// PipelineConfig describes which stages run and how the tool is invoked.
type PipelineConfig struct {
	// ToolPath is the executable name or path of the hcga tool.
	ToolPath string

	// DatasetDir is the directory holding <id>.pkl dataset files,
	// relative to the working directory.
	DatasetDir string

	// Mode is passed to extract_features as -m.
	Mode ExtractionMode

	// Workers is passed to extract_features as -n.
	Workers int

	// Timeout is passed to extract_features as --timeout.
	// It is enforced by the tool, not by the driver.
	Timeout int

	// Enabled maps each stage to whether it runs.
	// Stages missing from the map are disabled.
	Enabled map[StageName]bool

	// Env holds environment overrides applied to every stage process.
	Env map[string]string

	// OnFailure decides whether a failing stage halts the pipeline.
	OnFailure FailurePolicy
}

// DefaultPipelineConfig returns the configuration of the reference script:
// only extract_features enabled, single-threaded numeric libraries.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		ToolPath:   DefaultToolPath,
		DatasetDir: DefaultDatasetDir,
		Mode:       ModeFast,
		Workers:    DefaultWorkers,
		Timeout:    DefaultTimeout,
		Enabled: map[StageName]bool{
			StageGetData:         false,
			StageExtractFeatures: true,
			StageFeatureAnalysis: false,
		},
		Env: map[string]string{
			DefaultThreadsEnvName: "1",
		},
		OnFailure: FailureHalt,
	}
}

// Clone returns a deep copy so callers can override fields safely.
func (c PipelineConfig) Clone() PipelineConfig {
	out := c
	out.Enabled = maps.Clone(c.Enabled)
	out.Env = maps.Clone(c.Env)
	if out.Enabled == nil {
		out.Enabled = make(map[StageName]bool)
	}
	if out.Env == nil {
		out.Env = make(map[string]string)
	}
	return out
}

// IsEnabled returns true if the stage runs under this configuration.
func (c PipelineConfig) IsEnabled(stage StageName) bool {
	return c.Enabled[stage]
}

// EnabledStages returns the enabled stages in execution order.
func (c PipelineConfig) EnabledStages() []StageName {
	var stages []StageName
	for _, s := range AllStageNames() {
		if c.IsEnabled(s) {
			stages = append(stages, s)
		}
	}
	return stages
}

// Validate checks the configuration for values the tool would reject.
func (c PipelineConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.ToolPath) == "" {
		errs = append(errs, errors.New("tool path is empty"))
	}
	if _, err := ParseExtractionMode(string(c.Mode)); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be at least 1, got %d", c.Workers))
	}
	if c.Timeout < 1 {
		errs = append(errs, fmt.Errorf("timeout must be at least 1, got %d", c.Timeout))
	}
	if _, err := ParseFailurePolicy(string(c.OnFailure)); err != nil {
		errs = append(errs, err)
	}
	for stage := range c.Enabled {
		if !stage.IsValid() {
			errs = append(errs, fmt.Errorf("%w: %q", ErrUnknownStage, stage))
		}
	}
	for key := range c.Env {
		if key == "" || strings.ContainsAny(key, "=\x00") {
			errs = append(errs, fmt.Errorf("invalid environment variable name %q", key))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// DatasetPath returns the dataset file the tool reads for an identifier.
// The identifier is used verbatim: "enzymes" becomes "datasets/enzymes.pkl".
func DatasetPath(dir, id string) string {
	if dir == "" {
		return id + DefaultDatasetExt
	}
	return strings.TrimRight(dir, "/") + "/" + id + DefaultDatasetExt
}

// ArgsFor returns the tool arguments for a stage and dataset identifier.
func (c PipelineConfig) ArgsFor(stage StageName, id string) ([]string, error) {
	switch stage {
	case StageGetData:
		return []string{string(StageGetData), id}, nil
	case StageExtractFeatures:
		return []string{
			string(StageExtractFeatures),
			DatasetPath(c.DatasetDir, id),
			"-m", string(c.Mode),
			"-n", strconv.Itoa(c.Workers),
			"--timeout", strconv.Itoa(c.Timeout),
		}, nil
	case StageFeatureAnalysis:
		return []string{string(StageFeatureAnalysis), id}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStage, stage)
	}
}

// Invocation builds the resolved process call for a stage.
func (c PipelineConfig) Invocation(stage StageName, id string) (Invocation, error) {
	args, err := c.ArgsFor(stage, id)
	if err != nil {
		return Invocation{}, err
	}
	return Invocation{
		Stage:   stage,
		Program: c.ToolPath,
		Args:    args,
		Env:     maps.Clone(c.Env),
	}, nil
}
