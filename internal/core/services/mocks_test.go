package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

// --- Mock implementations shared by the service tests ---

// mockEmbedder maps text onto three dimensions: occurrences of "alpha",
// occurrences of "beta", and a constant bias so no vector is zero.
type mockEmbedder struct {
	mu      sync.Mutex
	err     error
	batches []int
	closed  bool
}

func keywordVector(text string) []float32 {
	lower := strings.ToLower(text)
	return []float32{
		float32(strings.Count(lower, "alpha")),
		float32(strings.Count(lower, "beta")),
		1,
	}
}

func (m *mockEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.batches = append(m.batches, len(texts))
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = keywordVector(t)
	}
	return out, nil
}

func (m *mockEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return keywordVector(text), nil
}

func (m *mockEmbedder) Dimensions() int              { return 3 }
func (m *mockEmbedder) ModelName() string            { return "mock-embed" }
func (m *mockEmbedder) Ping(_ context.Context) error { return nil }

func (m *mockEmbedder) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockEmbedder) batchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.batches...)
}

// mockExtractor returns canned pages per file name suffix, or an error.
type mockExtractor struct {
	mu    sync.Mutex
	pages map[string][]string
	err   error
	panic bool
}

func newMockExtractor() *mockExtractor {
	return &mockExtractor{pages: make(map[string][]string)}
}

func (m *mockExtractor) set(filename string, pages ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[filename] = pages
}

func (m *mockExtractor) Name() string { return "mock" }

func (m *mockExtractor) Extract(_ context.Context, path string) (*domain.ExtractedText, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.panic {
		panic("extractor exploded")
	}
	if m.err != nil {
		return nil, m.err
	}
	for name, pages := range m.pages {
		if strings.HasSuffix(path, "_"+name) {
			return &domain.ExtractedText{Pages: pages, PageCount: len(pages)}, nil
		}
	}
	return nil, errors.Join(domain.ErrExtraction, errors.New("no text"))
}

// mockGenerator returns a fixed answer.
type mockGenerator struct {
	answer string
	err    error

	mu      sync.Mutex
	context string
}

func (m *mockGenerator) Name() string { return "mock" }

func (m *mockGenerator) Generate(
	_ context.Context, _, contextText string, _ []domain.RetrievedChunk,
) (string, error) {
	m.mu.Lock()
	m.context = contextText
	m.mu.Unlock()
	return m.answer, m.err
}

// mockLLM implements driven.LLMService.
type mockLLM struct {
	reply    string
	err      error
	messages []driven.ChatMessage
}

func (m *mockLLM) Complete(
	_ context.Context, messages []driven.ChatMessage, _ driven.CompletionOptions,
) (string, error) {
	m.messages = messages
	return m.reply, m.err
}

func (m *mockLLM) ModelName() string            { return "mock-llm" }
func (m *mockLLM) Ping(_ context.Context) error { return nil }
func (m *mockLLM) Close() error                 { return nil }

// mockPrompts implements driven.PromptStore from a map.
type mockPrompts map[string]string

func (m mockPrompts) Load(name string) (string, error) {
	p, ok := m[name]
	if !ok {
		return "", errors.New("unknown prompt " + name)
	}
	return p, nil
}
