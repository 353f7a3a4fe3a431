package driving

import "github.com/custodia-labs/hcgarun/internal/core/domain"

// SettingsService reads and updates persisted pipeline settings.
type SettingsService interface {
	// PipelineConfig returns the stored configuration layered over the defaults.
	PipelineConfig() (domain.PipelineConfig, error)

	// SetStageEnabled persists whether a stage runs by default.
	SetStageEnabled(stage domain.StageName, enabled bool) error

	// HistoryEnabled reports whether runs are recorded.
	HistoryEnabled() bool

	// ConfigPath returns where settings are stored.
	ConfigPath() string
}
