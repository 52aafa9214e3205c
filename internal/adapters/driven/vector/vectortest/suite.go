// Package vectortest is a behavioural test suite every driven.VectorIndex
// backend runs against itself.
package vectortest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

// Dimension is the vector size the suite's factory must accept.
const Dimension = 3

// Factory returns a fresh, empty index with Dimension dimensions.
type Factory func(t *testing.T) driven.VectorIndex

// Chunks builds n chunks of one document with aligned unit-ish embeddings.
func Chunks(fileID string, n int) ([]domain.Chunk, [][]float32) {
	chunks := make([]domain.Chunk, n)
	embs := make([][]float32, n)
	for i := 0; i < n; i++ {
		chunks[i] = domain.Chunk{
			ID:             domain.ChunkID(fileID, i),
			Text:           fmt.Sprintf("%s chunk %d", fileID, i),
			SourceFileID:   fileID,
			SourceFilename: fileID + ".pdf",
			ChunkIndex:     i,
			TotalChunks:    n,
			PageCount:      1,
			Metadata:       map[string]string{domain.MetaPage: "1"},
		}
		embs[i] = []float32{1, float32(i), 0}
	}
	return chunks, embs
}

// Run executes the suite.
func Run(t *testing.T, factory Factory) {
	t.Run("EmptyIndex", func(t *testing.T) { testEmpty(t, factory(t)) })
	t.Run("AddAndSearch", func(t *testing.T) { testAddAndSearch(t, factory(t)) })
	t.Run("TopKBound", func(t *testing.T) { testTopK(t, factory(t)) })
	t.Run("OverwriteByID", func(t *testing.T) { testOverwrite(t, factory(t)) })
	t.Run("ShorterReingestPurgesTail", func(t *testing.T) { testStaleTail(t, factory(t)) })
	t.Run("DeleteByFileID", func(t *testing.T) { testDelete(t, factory(t)) })
	t.Run("Filter", func(t *testing.T) { testFilter(t, factory(t)) })
	t.Run("Validation", func(t *testing.T) { testValidation(t, factory(t)) })
	t.Run("ConcurrentReadWrite", func(t *testing.T) { testConcurrent(t, factory(t)) })
}

func testEmpty(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	assert.Empty(t, results)

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexStats{}, stats)

	n, err := idx.DeleteByFileID(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func testAddAndSearch(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	chunks := []domain.Chunk{
		{Text: "about cats", SourceFileID: "a", SourceFilename: "a.pdf", ChunkIndex: 0, TotalChunks: 1},
		{Text: "about dogs", SourceFileID: "b", SourceFilename: "b.pdf", ChunkIndex: 0, TotalChunks: 1},
	}
	embs := [][]float32{{1, 0, 0}, {0, 1, 0}}
	require.NoError(t, idx.Add(ctx, chunks, embs))

	results, err := idx.Search(ctx, []float32{0.9, 0.1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a:0", results[0].ID)
	assert.Equal(t, "about cats", results[0].Content)
	assert.Equal(t, "a", results[0].FileID())
	assert.Equal(t, "a.pdf", results[0].Filename())
	assert.Equal(t, 0, results[0].ChunkIndex())
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
	assert.InDelta(t, 0.9939, results[0].Score, 1e-3)

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.DocumentCount)
	assert.Equal(t, 2, stats.ChunkCount)
}

func testTopK(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	chunks, embs := Chunks("doc", 5)
	require.NoError(t, idx.Add(ctx, chunks, embs))

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 3, nil)
	require.NoError(t, err)
	assert.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
	assert.Equal(t, "doc:0", results[0].ID)
}

func testOverwrite(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	chunks, embs := Chunks("doc", 2)
	require.NoError(t, idx.Add(ctx, chunks, embs))

	chunks[0].Text = "rewritten"
	require.NoError(t, idx.Add(ctx, chunks, embs))

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ChunkCount)

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "rewritten", results[0].Content)
}

func testStaleTail(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	chunks, embs := Chunks("doc", 4)
	require.NoError(t, idx.Add(ctx, chunks, embs))

	shorter, shorterEmbs := Chunks("doc", 2)
	require.NoError(t, idx.Add(ctx, shorter, shorterEmbs))

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.ChunkCount)

	n, err := idx.DeleteByFileID(ctx, "doc")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func testDelete(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	a, aEmbs := Chunks("a", 3)
	b, bEmbs := Chunks("b", 2)
	require.NoError(t, idx.Add(ctx, a, aEmbs))
	require.NoError(t, idx.Add(ctx, b, bEmbs))

	n, err := idx.DeleteByFileID(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = idx.DeleteByFileID(ctx, "a")
	require.NoError(t, err)
	assert.Zero(t, n)

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 10, nil)
	require.NoError(t, err)
	for _, r := range results {
		assert.NotEqual(t, "a", r.FileID())
	}

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.IndexStats{DocumentCount: 1, ChunkCount: 2}, stats)
}

func testFilter(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	a, aEmbs := Chunks("a", 2)
	b, bEmbs := Chunks("b", 2)
	require.NoError(t, idx.Add(ctx, a, aEmbs))
	require.NoError(t, idx.Add(ctx, b, bEmbs))

	results, err := idx.Search(ctx, []float32{1, 0, 0}, 10, domain.SearchFilter{domain.MetaFileID: "b"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.Equal(t, "b", r.FileID())
	}

	results, err = idx.Search(ctx, []float32{1, 0, 0}, 10, domain.SearchFilter{domain.MetaSource: "a.pdf"})
	require.NoError(t, err)
	assert.Len(t, results, 2)

	results, err = idx.Search(ctx, []float32{1, 0, 0}, 10, domain.SearchFilter{domain.MetaChunkIndex: "1"})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func testValidation(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	chunks, embs := Chunks("doc", 2)

	err := idx.Add(ctx, chunks, embs[:1])
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = idx.Add(ctx, chunks[:1], [][]float32{{1, 2}})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = idx.Search(ctx, []float32{1, 0}, 3, nil)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = idx.Search(ctx, []float32{1, 0, 0}, 0, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.ChunkCount)
}

func testConcurrent(t *testing.T, idx driven.VectorIndex) {
	ctx := context.Background()
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			chunks, embs := Chunks(fmt.Sprintf("doc-%d", i), 3)
			assert.NoError(t, idx.Add(ctx, chunks, embs))
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				results, err := idx.Search(ctx, []float32{1, 0, 0}, 3, nil)
				assert.NoError(t, err)
				assert.LessOrEqual(t, len(results), 3)
			}
		}()
	}
	wg.Wait()

	stats, err := idx.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, stats.DocumentCount)
	assert.Equal(t, 30, stats.ChunkCount)
}
