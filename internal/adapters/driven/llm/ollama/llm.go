// Package ollama answers with a chat model served by a local Ollama.
package ollama

import (
	"context"
	"time"

	"github.com/custodia-labs/neuroquery/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/neuroquery/internal/adapters/driven/llm"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
)

// Config configures an LLMService. Zero fields take the defaults.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService calls /api/chat with streaming off.
type LLMService struct {
	api   *httpapi.Client
	model string
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
	Options  *options      `json:"options,omitempty"`
}

type options struct {
	NumPredict  int     `json:"num_predict,omitempty"`
	Temperature float64 `json:"temperature,omitempty"`
}

type chatResponse struct {
	Message llm.Message `json:"message"`
}

func NewLLMService(cfg Config) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	return &LLMService{
		api:   llm.NewAPI("ollama", cfg.BaseURL, cfg.Timeout),
		model: cfg.Model,
	}
}

func (s *LLMService) Complete(ctx context.Context, messages []driven.ChatMessage, opts driven.CompletionOptions) (string, error) {
	req := chatRequest{Model: s.model, Messages: llm.Messages(messages)}
	if opts.MaxTokens > 0 || opts.Temperature > 0 {
		req.Options = &options{NumPredict: opts.MaxTokens, Temperature: opts.Temperature}
	}

	var resp chatResponse
	if err := s.api.Post(ctx, "/api/chat", req, &resp); err != nil {
		return "", err
	}
	return resp.Message.Content, nil
}

func (s *LLMService) ModelName() string { return s.model }

// Ping lists local models, which needs no inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Get(ctx, "/api/tags")
}

func (s *LLMService) Close() error { return nil }
