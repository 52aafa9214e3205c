package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

// DefaultPingTimeout bounds each reachability check.
const DefaultPingTimeout = 5 * time.Second

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// ConfigValidator builds the configured service, pings it and closes it again.
type ConfigValidator struct {
	timeout time.Duration
}

// ValidatorOption configures a ConfigValidator.
type ValidatorOption func(*ConfigValidator)

// WithPingTimeout overrides DefaultPingTimeout.
func WithPingTimeout(d time.Duration) ValidatorOption {
	return func(v *ConfigValidator) {
		if d > 0 {
			v.timeout = d
		}
	}
}

// NewConfigValidator returns a validator with the given options applied.
func NewConfigValidator(opts ...ValidatorOption) *ConfigValidator {
	v := &ConfigValidator{timeout: DefaultPingTimeout}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// ValidateEmbedding fails with domain.ErrEmbedding when the provider does not answer.
func (v *ConfigValidator) ValidateEmbedding(settings *domain.EmbeddingSettings) error {
	embedder, err := CreateEmbedder(settings)
	if err != nil {
		return err
	}
	if err := v.ping(embedder); err != nil {
		return fmt.Errorf("%w: %s unreachable (%w)", domain.ErrEmbedding, settings.Provider, err)
	}
	return nil
}

// ValidateLLM fails with domain.ErrLLMUnavailable when the provider does not
// answer. Settings without a provider are valid: answers use the template.
func (v *ConfigValidator) ValidateLLM(settings *domain.LLMSettings) error {
	llm, err := CreateLLMService(settings)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
	if llm == nil {
		return nil
	}
	if err := v.ping(llm); err != nil {
		return fmt.Errorf("%w: %s unreachable (%w)", domain.ErrLLMUnavailable, settings.Provider, err)
	}
	return nil
}

type pinger interface {
	Ping(ctx context.Context) error
	Close() error
}

func (v *ConfigValidator) ping(svc pinger) error {
	defer svc.Close()

	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	return svc.Ping(ctx)
}
