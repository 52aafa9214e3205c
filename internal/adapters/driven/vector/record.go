package vector

import (
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
)

// Record is a chunk ready to be written to a backend.
type Record struct {
	ID          string
	FileID      string
	Source      string
	ChunkIndex  int
	TotalChunks int
	Content     string
	Metadata    map[string]string
	Embedding   []float32
}

// Prepare validates an Add call and pairs each chunk with its embedding.
// dimension 0 accepts any consistent length.
func Prepare(chunks []domain.Chunk, embeddings [][]float32, dimension int) ([]Record, error) {
	if len(chunks) != len(embeddings) {
		return nil, fmt.Errorf("%w: %d chunks but %d embeddings",
			domain.ErrValidation, len(chunks), len(embeddings))
	}

	records := make([]Record, 0, len(chunks))
	for i := range chunks {
		c := &chunks[i]
		if strings.TrimSpace(c.Text) == "" {
			return nil, fmt.Errorf("%w: chunk %d has no text", domain.ErrValidation, i)
		}
		if c.SourceFileID == "" {
			return nil, fmt.Errorf("%w: chunk %d has no file id", domain.ErrValidation, i)
		}
		emb := embeddings[i]
		if len(emb) == 0 {
			return nil, fmt.Errorf("%w: chunk %d has an empty embedding", domain.ErrValidation, i)
		}
		if dimension > 0 && len(emb) != dimension {
			return nil, fmt.Errorf("%w: chunk %d has %d dimensions, collection has %d",
				domain.ErrDimensionMismatch, i, len(emb), dimension)
		}

		total := c.TotalChunks
		if total <= c.ChunkIndex {
			total = c.ChunkIndex + 1
		}
		meta := c.BuildMetadata()

		records = append(records, Record{
			ID:          domain.ChunkID(c.SourceFileID, c.ChunkIndex),
			FileID:      c.SourceFileID,
			Source:      c.SourceFilename,
			ChunkIndex:  c.ChunkIndex,
			TotalChunks: total,
			Content:     c.Text,
			Metadata:    meta,
			Embedding:   emb,
		})
	}
	return records, nil
}

// StaleTails returns, per file, the smallest chunk index that is no longer
// part of the document. Rows at or past it are left over from a longer
// earlier ingestion.
func StaleTails(records []Record) map[string]int {
	tails := make(map[string]int)
	for _, r := range records {
		if cur, ok := tails[r.FileID]; !ok || r.TotalChunks > cur {
			tails[r.FileID] = r.TotalChunks
		}
	}
	return tails
}

// Candidate is a scored search hit before truncation.
type Candidate struct {
	Chunk domain.RetrievedChunk
	seq   int
}

// Ranker keeps candidates in arrival order and returns the best k.
type Ranker struct {
	items []Candidate
}

// Push records a hit.
func (r *Ranker) Push(chunk domain.RetrievedChunk) {
	r.items = append(r.items, Candidate{Chunk: chunk, seq: len(r.items)})
}

// Top returns at most k hits by descending score. Ties keep arrival order.
func (r *Ranker) Top(k int) []domain.RetrievedChunk {
	sort.SliceStable(r.items, func(i, j int) bool {
		return r.items[i].Chunk.Score > r.items[j].Chunk.Score
	})
	if k > len(r.items) {
		k = len(r.items)
	}
	out := make([]domain.RetrievedChunk, 0, k)
	for _, c := range r.items[:k] {
		out = append(out, c.Chunk)
	}
	return out
}

// Matches reports whether meta satisfies every filter entry.
func Matches(meta map[string]string, filter domain.SearchFilter) bool {
	for k, v := range filter {
		if meta[k] != v {
			return false
		}
	}
	return true
}

// ValidateQuery checks the common Search arguments.
func ValidateQuery(query []float32, topK, dimension int) error {
	if len(query) == 0 {
		return fmt.Errorf("%w: empty query embedding", domain.ErrValidation)
	}
	if topK <= 0 {
		return fmt.Errorf("%w: top_k must be positive", domain.ErrValidation)
	}
	if dimension > 0 && len(query) != dimension {
		return fmt.Errorf("%w: query has %d dimensions, collection has %d",
			domain.ErrDimensionMismatch, len(query), dimension)
	}
	return nil
}
