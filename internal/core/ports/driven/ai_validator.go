package driven

import "github.com/custodia-labs/neuroquery/internal/core/domain"

// AIConfigValidator checks that AI provider settings reach a working service.
type AIConfigValidator interface {
	// ValidateEmbedding pings the configured embedding provider.
	ValidateEmbedding(config *domain.EmbeddingSettings) error

	// ValidateLLM pings the configured LLM provider.
	ValidateLLM(config *domain.LLMSettings) error
}
