package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/hcgarun/internal/core/domain"
	"github.com/custodia-labs/hcgarun/internal/core/ports/driven"
	"github.com/custodia-labs/hcgarun/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
const (
	keyToolPath       = "tool.path"
	keyDatasetDir     = "dataset.dir"
	keyExtractMode    = "extract.mode"
	keyExtractWorkers = "extract.workers"
	keyExtractTimeout = "extract.timeout"
	keyOnFailure      = "pipeline.on_failure"
	keyHistoryEnabled = "history.enabled"
	prefixStages      = "stages."
	prefixEnv         = "env."
)

// SettingsService reads and updates the pipeline configuration stored in a ConfigStore.
// Keys absent from the store fall back to domain.DefaultPipelineConfig.
type SettingsService struct {
	configStore driven.ConfigStore
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore) *SettingsService {
	return &SettingsService{configStore: configStore}
}

// PipelineConfig builds the pipeline configuration from stored settings.
func (s *SettingsService) PipelineConfig() (domain.PipelineConfig, error) {
	cfg := domain.DefaultPipelineConfig()

	cfg.ToolPath = s.getString(keyToolPath, cfg.ToolPath)
	cfg.DatasetDir = s.getString(keyDatasetDir, cfg.DatasetDir)
	cfg.Workers = s.getInt(keyExtractWorkers, cfg.Workers)
	cfg.Timeout = s.getInt(keyExtractTimeout, cfg.Timeout)

	if raw := s.configStore.GetString(keyExtractMode); raw != "" {
		mode, err := domain.ParseExtractionMode(raw)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", keyExtractMode, err)
		}
		cfg.Mode = mode
	}

	if raw := s.configStore.GetString(keyOnFailure); raw != "" {
		policy, err := domain.ParseFailurePolicy(raw)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", keyOnFailure, err)
		}
		cfg.OnFailure = policy
	}

	for _, key := range s.configStore.Keys(prefixStages) {
		stage, err := domain.ParseStageName(strings.TrimPrefix(key, prefixStages))
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", key, err)
		}
		val, _ := s.configStore.Get(key)
		enabled, ok := val.(bool)
		if !ok {
			return cfg, fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		cfg.Enabled[stage] = enabled
	}

	for _, key := range s.configStore.Keys(prefixEnv) {
		val, _ := s.configStore.Get(key)
		cfg.Env[strings.TrimPrefix(key, prefixEnv)] = fmt.Sprint(val)
	}

	return cfg, cfg.Validate()
}

// SetStageEnabled persists whether a stage runs by default.
func (s *SettingsService) SetStageEnabled(stage domain.StageName, enabled bool) error {
	if !stage.IsValid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownStage, stage)
	}
	if err := s.configStore.Set(prefixStages+string(stage), enabled); err != nil {
		return fmt.Errorf("save stage %s: %w", stage, err)
	}
	return nil
}

// HistoryEnabled reports whether runs are recorded. Defaults to true.
func (s *SettingsService) HistoryEnabled() bool {
	val, ok := s.configStore.Get(keyHistoryEnabled)
	if !ok {
		return true
	}
	b, ok := val.(bool)
	return !ok || b
}

// ConfigPath returns where settings are stored.
func (s *SettingsService) ConfigPath() string {
	return s.configStore.Path()
}

func (s *SettingsService) getString(key, def string) string {
	if v := s.configStore.GetString(key); v != "" {
		return v
	}
	return def
}

func (s *SettingsService) getInt(key string, def int) int {
	if _, ok := s.configStore.Get(key); !ok {
		return def
	}
	return s.configStore.GetInt(key)
}
