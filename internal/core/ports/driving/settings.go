package driving

import "github.com/custodia-labs/neuroquery/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get retrieves current settings: stored values layered over defaults.
	Get() (*domain.Settings, error)

	// Save persists settings.
	Save(settings *domain.Settings) error

	// Set stores a single dotted key, e.g. "chunking.size".
	Set(key string, value any) error

	// GetDefaults returns default settings.
	GetDefaults() domain.Settings

	// ValidateEmbeddingConfig pings the configured embedding provider.
	ValidateEmbeddingConfig() error

	// ValidateLLMConfig pings the LLM used for answers.
	ValidateLLMConfig() error
}
