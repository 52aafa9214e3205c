// Package llm holds what the LLM provider adapters share: the API client
// and the chat message wire shape.
package llm

import (
	"time"

	"github.com/custodia-labs/neuroquery/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

// DefaultTimeout bounds one completion request.
const DefaultTimeout = 120 * time.Second

// NewAPI returns a client whose errors wrap domain.ErrLLMUnavailable.
func NewAPI(provider, baseURL string, timeout time.Duration, opts ...httpapi.Option) *httpapi.Client {
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	opts = append([]httpapi.Option{httpapi.WithTimeout(timeout)}, opts...)
	return httpapi.New(provider, baseURL, domain.ErrLLMUnavailable, opts...)
}

// Message is a chat turn as OpenAI, Ollama and Anthropic all encode it.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Messages converts a conversation to its wire form.
func Messages(in []driven.ChatMessage) []Message {
	out := make([]Message, len(in))
	for i, m := range in {
		out[i] = Message{Role: m.Role, Content: m.Content}
	}
	return out
}
