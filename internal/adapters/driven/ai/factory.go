// Package ai builds the embedding and LLM adapters named by the settings.
package ai

import (
	"fmt"

	ollamaembed "github.com/custodia-labs/neuroquery/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/neuroquery/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/neuroquery/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/neuroquery/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/neuroquery/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

// CreateEmbedder creates the embedder selected by settings.Provider.
// Unlike the LLM, an embedder is mandatory, so unconfigured settings are an error.
func CreateEmbedder(settings *domain.EmbeddingSettings) (driven.Embedder, error) {
	if settings == nil {
		return nil, fmt.Errorf("%w: embedding settings missing", domain.ErrValidation)
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamaembed.New(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.New(openaiembed.Config{
			APIKey:            settings.APIKey,
			BaseURL:           settings.BaseURL,
			Model:             settings.Model,
			Dimensions:        settings.Dimensions,
			RequestsPerSecond: settings.RequestsPerSecond,
		})

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use ollama or openai",
			domain.ErrUnsupportedType)

	default:
		return nil, fmt.Errorf("%w: embedding provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateLLMService creates the LLM selected by settings.Provider.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.Config{
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  settings.APIKey,
			BaseURL: settings.BaseURL,
			Model:   settings.Model,
		})

	default:
		return nil, fmt.Errorf("%w: LLM provider %q", domain.ErrUnsupportedType, settings.Provider)
	}
}
