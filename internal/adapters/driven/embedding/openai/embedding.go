// Package openai embeds text through the OpenAI /embeddings API or any
// compatible endpoint.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/neuroquery/internal/adapters/driven/embedding"
	"github.com/custodia-labs/neuroquery/internal/adapters/driven/httpapi"
	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

var _ driven.Embedder = (*Embedder)(nil)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "text-embedding-3-small"
	DefaultTimeout = 60 * time.Second
)

// nativeDimensions is used when Config.Dimensions is zero.
var nativeDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
}

// Config configures an Embedder. Only APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions is the vector size every response must have.
	// text-embedding-3-* models are asked to shorten their output to it.
	Dimensions int

	// RequestsPerSecond paces requests. Zero disables pacing.
	RequestsPerSecond float64
}

// Embedder sends each batch as one /embeddings request.
type Embedder struct {
	api        *httpapi.Client
	limiter    *RateLimiter
	model      string
	dimensions int
	shorten    bool
}

type embedRequest struct {
	Model      string   `json:"model"`
	Input      []string `json:"input"`
	Dimensions int      `json:"dimensions,omitempty"`
}

type embedResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// New returns an Embedder, or an error when the API key is missing.
func New(cfg Config) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: API key is required")
	}
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
		cfg.Dimensions = nativeDimensions[cfg.Model]
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = nativeDimensions[DefaultModel]
	}

	return &Embedder{
		api: httpapi.New("openai", cfg.BaseURL, domain.ErrEmbedding,
			httpapi.WithTimeout(cfg.Timeout),
			httpapi.WithHeader("Authorization", "Bearer "+cfg.APIKey)),
		limiter:    NewRateLimiter(cfg.RequestsPerSecond),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		shorten:    strings.HasPrefix(cfg.Model, "text-embedding-3-"),
	}, nil
}

// EmbedDocuments embeds texts in one request, preserving input order.
func (e *Embedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("openai: %w: waiting for rate limit: %w", domain.ErrEmbedding, err)
	}

	req := embedRequest{Model: e.model, Input: texts}
	if e.shorten {
		req.Dimensions = e.dimensions
	}

	var resp embedResponse
	if err := e.api.Post(ctx, "/embeddings", req, &resp); err != nil {
		var status *httpapi.StatusError
		if errors.As(err, &status) && status.Code == http.StatusTooManyRequests {
			e.limiter.RecordRateLimit(status.RetryAfter)
		}
		return nil, err
	}

	// Data may arrive in any order; Index ties each vector to its input.
	vectors := make([][]float64, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("openai: %w: embedding index %d out of range", domain.ErrEmbedding, d.Index)
		}
		vectors[d.Index] = d.Embedding
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("openai: %w: got %d embeddings for %d inputs",
			domain.ErrEmbedding, len(resp.Data), len(texts))
	}
	return embedding.ToFloat32("openai", vectors, len(texts), e.dimensions)
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

// Ping lists models, which checks the API key without running inference.
func (e *Embedder) Ping(ctx context.Context) error {
	return e.api.Get(ctx, "/models")
}

// Close releases nothing; it exists to satisfy driven.Embedder.
func (e *Embedder) Close() error { return nil }
