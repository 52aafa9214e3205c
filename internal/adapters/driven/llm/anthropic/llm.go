// Package anthropic answers with the Anthropic messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/neuroquery/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/neuroquery/internal/adapters/driven/llm"
	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultMaxTokens = 1024

	apiVersion = "2023-06-01"
)

// Config configures an LLMService. Only APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService calls /v1/messages.
type LLMService struct {
	api   *httpapi.Client
	model string
}

type messagesRequest struct {
	Model       string        `json:"model"`
	System      string        `json:"system,omitempty"`
	Messages    []llm.Message `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
}

func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &LLMService{
		api: llm.NewAPI("anthropic", cfg.BaseURL, cfg.Timeout,
			httpapi.WithHeader("x-api-key", cfg.APIKey),
			httpapi.WithHeader("anthropic-version", apiVersion)),
		model: cfg.Model,
	}, nil
}

// Complete sends a leading system message as the top-level system field,
// since the API rejects system turns inside messages.
func (s *LLMService) Complete(ctx context.Context, messages []driven.ChatMessage, opts driven.CompletionOptions) (string, error) {
	system, rest := driven.SplitSystem(messages)
	req := messagesRequest{
		Model:       s.model,
		System:      system,
		Messages:    llm.Messages(rest),
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = DefaultMaxTokens
	}

	var resp messagesResponse
	if err := s.api.Post(ctx, "/v1/messages", req, &resp); err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("anthropic: %w: no text content returned", domain.ErrLLMUnavailable)
	}
	return text.String(), nil
}

func (s *LLMService) ModelName() string { return s.model }

// Ping lists models, which checks the API key without inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/v1/models")
}

func (s *LLMService) Close() error { return nil }
