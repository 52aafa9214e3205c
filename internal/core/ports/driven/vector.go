package driven

import (
	"context"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
)

// VectorIndex persists (vector, text, metadata) triples in a named collection
// and answers nearest-neighbour queries by cosine similarity.
//
// Implementations must be safe for one writer running concurrently with
// any number of readers.
type VectorIndex interface {
	// Add stores chunks with their embeddings. The slices are positionally
	// aligned and must have equal length. Chunks are keyed by
	// domain.ChunkID(file_id, chunk_index); re-adding an id overwrites it.
	Add(ctx context.Context, chunks []domain.Chunk, embeddings [][]float32) error

	// Search returns at most topK chunks ordered by descending similarity.
	// An empty index yields an empty slice, not an error.
	Search(ctx context.Context, query []float32, topK int, filter domain.SearchFilter) ([]domain.RetrievedChunk, error)

	// DeleteByFileID removes every chunk of a document and returns how many
	// were removed. Unknown ids remove nothing.
	DeleteByFileID(ctx context.Context, fileID string) (int, error)

	// Stats returns document and chunk counts.
	Stats(ctx context.Context) (domain.IndexStats, error)

	// Close releases resources.
	Close() error
}
