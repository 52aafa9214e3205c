// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"context"
	"time"

	"github.com/custodia-labs/neuroquery/internal/adapters/driven/embedding"
	"github.com/custodia-labs/neuroquery/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

var _ driven.Embedder = (*Embedder)(nil)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = domain.DefaultEmbeddingModel
	DefaultTimeout    = 60 * time.Second
	DefaultDimensions = domain.DefaultDimensions
)

// Config configures an Embedder. Zero fields take the defaults above.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions is the vector size every response must have.
	Dimensions int
}

// Embedder sends each batch as one /api/embed request.
type Embedder struct {
	api        *httpapi.Client
	model      string
	dimensions int
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// New returns an Embedder for cfg, filling zero fields with defaults.
func New(cfg Config) *Embedder {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}
	return &Embedder{
		api:        httpapi.New("ollama", cfg.BaseURL, domain.ErrEmbedding, httpapi.WithTimeout(cfg.Timeout)),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
	}
}

// EmbedDocuments embeds texts in one request, preserving input order.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var resp embedResponse
	if err := e.api.Post(ctx, "/api/embed", embedRequest{Model: e.model, Input: texts}, &resp); err != nil {
		return nil, err
	}
	return embedding.ToFloat32("ollama", resp.Embeddings, len(texts), e.dimensions)
}

// EmbedQuery embeds a single query string.
func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedDocuments(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// Dimensions returns the length of every vector this embedder produces.
func (e *Embedder) Dimensions() int { return e.dimensions }

// ModelName returns the configured embedding model.
func (e *Embedder) ModelName() string { return e.model }

// Ping lists local models, which needs no inference.
func (e *Embedder) Ping(ctx context.Context) error {
	return e.api.Get(ctx, "/api/tags")
}

// Close releases nothing; it exists to satisfy driven.Embedder.
func (e *Embedder) Close() error { return nil }
