package domain

import (
	"fmt"
	"strings"
)

// StageName identifies one step of the pipeline.
// Each stage maps onto a subcommand of the hcga tool.
type StageName string

const (
	// StageGetData downloads the raw dataset.
	StageGetData StageName = "get_data"

	// StageExtractFeatures computes graph features for every graph in the dataset.
	StageExtractFeatures StageName = "extract_features"

	// StageFeatureAnalysis classifies graphs from previously extracted features.
	StageFeatureAnalysis StageName = "feature_analysis"
)

// AllStageNames returns every stage in execution order.
func AllStageNames() []StageName {
	return []StageName{
		StageGetData,
		StageExtractFeatures,
		StageFeatureAnalysis,
	}
}

// ParseStageName converts user input into a StageName.
func ParseStageName(s string) (StageName, error) {
	name := StageName(strings.TrimSpace(s))
	for _, known := range AllStageNames() {
		if name == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStage, s)
}

// IsValid returns true if the stage is defined by the pipeline.
func (s StageName) IsValid() bool {
	_, err := ParseStageName(string(s))
	return err == nil
}

// Announcement returns the status line printed before the stage starts.
func (s StageName) Announcement() string {
	switch s {
	case StageGetData:
		return "Getting data"
	case StageExtractFeatures:
		return "Extracting features"
	case StageFeatureAnalysis:
		return "Analysing features"
	default:
		return "Running " + string(s)
	}
}

// ExtractionMode selects which feature classes the tool computes.
type ExtractionMode string

const (
	// ModeFast computes only the cheap feature classes.
	ModeFast ExtractionMode = "fast"

	// ModeMedium adds moderately expensive feature classes.
	ModeMedium ExtractionMode = "medium"

	// ModeSlow adds the expensive feature classes.
	ModeSlow ExtractionMode = "slow"

	// ModeAll computes every feature class regardless of its declared modes.
	ModeAll ExtractionMode = "all"
)

// AllExtractionModes returns the accepted modes from cheapest to most expensive.
func AllExtractionModes() []ExtractionMode {
	return []ExtractionMode{ModeFast, ModeMedium, ModeSlow, ModeAll}
}

// ParseExtractionMode converts user input into an ExtractionMode.
func ParseExtractionMode(s string) (ExtractionMode, error) {
	mode := ExtractionMode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllExtractionModes() {
		if mode == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// FailurePolicy decides what happens after a stage fails.
type FailurePolicy string

const (
	// FailureHalt stops the pipeline at the first failing stage.
	FailureHalt FailurePolicy = "halt"

	// FailureContinue runs the remaining stages after a failure.
	// The first failure still determines the exit code.
	FailureContinue FailurePolicy = "continue"
)

// ParseFailurePolicy converts user input into a FailurePolicy.
func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch FailurePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case FailureHalt:
		return FailureHalt, nil
	case FailureContinue:
		return FailureContinue, nil
	default:
		return "", fmt.Errorf("%w: failure policy %q", ErrInvalidInput, s)
	}
}
