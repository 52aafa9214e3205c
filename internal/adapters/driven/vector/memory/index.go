// Package memory implements driven.VectorIndex in process memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/neuroquery/internal/adapters/driven/vector"
	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

type entry struct {
	record vector.Record
	norm   float64
	seq    int64
}

// Index is a brute-force cosine index held in a map.
type Index struct {
	mu        sync.RWMutex
	dimension int
	entries   map[string]*entry
	seq       int64
}

// New creates an empty index. dimension 0 accepts any consistent length.
func New(dimension int) *Index {
	return &Index{
		dimension: dimension,
		entries:   make(map[string]*entry),
	}
}

// Add upserts chunks and purges rows past each file's new chunk count.
func (i *Index) Add(_ context.Context, chunks []domain.Chunk, embeddings [][]float32) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	dim := i.dimension
	if dim == 0 {
		for _, e := range i.entries {
			dim = len(e.record.Embedding)
			break
		}
	}

	records, err := vector.Prepare(chunks, embeddings, dim)
	if err != nil {
		return err
	}

	for _, r := range records {
		if existing, ok := i.entries[r.ID]; ok {
			existing.record = r
			existing.norm = vector.Norm(r.Embedding)
			continue
		}
		i.seq++
		i.entries[r.ID] = &entry{record: r, norm: vector.Norm(r.Embedding), seq: i.seq}
	}

	for fileID, total := range vector.StaleTails(records) {
		for id, e := range i.entries {
			if e.record.FileID == fileID && e.record.ChunkIndex >= total {
				delete(i.entries, id)
			}
		}
	}
	return nil
}

// Search returns the topK most similar chunks.
func (i *Index) Search(
	_ context.Context, query []float32, topK int, filter domain.SearchFilter,
) ([]domain.RetrievedChunk, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	if err := vector.ValidateQuery(query, topK, i.dimension); err != nil {
		return nil, err
	}

	ordered := make([]*entry, 0, len(i.entries))
	for _, e := range i.entries {
		if vector.Matches(e.record.Metadata, filter) {
			ordered = append(ordered, e)
		}
	}
	// Map iteration is random; insertion order keeps ties deterministic.
	sort.Slice(ordered, func(a, b int) bool { return ordered[a].seq < ordered[b].seq })

	queryNorm := vector.Norm(query)
	var ranker vector.Ranker
	for _, e := range ordered {
		meta := make(map[string]string, len(e.record.Metadata))
		for k, v := range e.record.Metadata {
			meta[k] = v
		}
		ranker.Push(domain.RetrievedChunk{
			ID:       e.record.ID,
			Content:  e.record.Content,
			Metadata: meta,
			Score:    vector.Cosine(query, e.record.Embedding, queryNorm, e.norm),
		})
	}
	return ranker.Top(topK), nil
}

// DeleteByFileID removes every chunk of a document.
func (i *Index) DeleteByFileID(_ context.Context, fileID string) (int, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	removed := 0
	for id, e := range i.entries {
		if e.record.FileID == fileID {
			delete(i.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Stats counts distinct documents and chunks.
func (i *Index) Stats(_ context.Context) (domain.IndexStats, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	files := make(map[string]struct{})
	for _, e := range i.entries {
		files[e.record.FileID] = struct{}{}
	}
	return domain.IndexStats{DocumentCount: len(files), ChunkCount: len(i.entries)}, nil
}

// Close is a no-op.
func (i *Index) Close() error {
	return nil
}
