package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// Adapters wrap them with context using fmt.Errorf("...: %w", err) so callers
// can classify failures with errors.Is.
var (
	// ErrNotFound indicates a requested entity does not exist.
	// Deletes treat it as a no-op.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates a request was rejected before entering the pipeline:
	// bad query bounds, disallowed file type or size.
	ErrValidation = errors.New("validation failed")

	// ErrExtraction indicates raw content could not be turned into text.
	ErrExtraction = errors.New("extraction failed")

	// ErrEmbedding indicates the embedding provider failed.
	ErrEmbedding = errors.New("embedding failed")

	// ErrDimensionMismatch indicates a vector does not have the configured dimension.
	// This is a configuration error, never recovered at runtime.
	ErrDimensionMismatch = fmt.Errorf("%w: dimension mismatch", ErrEmbedding)

	// ErrIndex indicates a vector index read or write failed.
	ErrIndex = errors.New("vector index error")

	// ErrQueueStopped indicates a job was submitted after the ingestion queue stopped.
	ErrQueueStopped = errors.New("ingestion queue stopped")

	// ErrUnsupportedType indicates an unknown provider, backend or strategy name.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Answer synthesis falls back to the template generator.
	ErrLLMUnavailable = errors.New("LLM service unavailable")
)

// ErrorCode returns a short machine-readable code for err, used by
// the HTTP and MCP surfaces.
func ErrorCode(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrExtraction):
		return "extraction_error"
	case errors.Is(err, ErrEmbedding):
		return "embedding_error"
	case errors.Is(err, ErrIndex):
		return "index_error"
	default:
		return "internal_error"
	}
}
