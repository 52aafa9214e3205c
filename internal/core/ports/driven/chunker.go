package driven

import "github.com/custodia-labs/neuroquery/internal/core/domain"

// Chunker splits extracted document text into overlapping chunks.
type Chunker interface {
	// Name returns the strategy name used in configuration.
	Name() string

	// Chunk splits text into chunks indexed 0..N-1, each carrying
	// TotalChunks = N and provenance metadata. Empty text yields no chunks.
	Chunk(text, filename, fileID string) []domain.Chunk
}
