package vector

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
)

func TestEncodeDecodeEmbedding(t *testing.T) {
	vec := []float32{0.5, -1.25, float32(math.Pi), 0}

	blob := EncodeEmbedding(vec)
	require.Len(t, blob, 16)

	got, err := DecodeEmbedding(blob)
	require.NoError(t, err)
	assert.Equal(t, vec, got)
}

func TestDecodeEmbedding_BadLength(t *testing.T) {
	_, err := DecodeEmbedding([]byte{1, 2, 3})

	assert.Error(t, err)
}

func TestEncodeEmbedding_Empty(t *testing.T) {
	assert.Nil(t, EncodeEmbedding(nil))

	got, err := DecodeEmbedding(nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1},
		{"scaled", []float32{1, 0}, []float32{5, 0}, 1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"length mismatch", []float32{1}, []float32{1, 1}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, CosineSimilarity(tt.a, tt.b), 1e-6)
		})
	}
}

func chunk(fileID string, index, total int, text string) domain.Chunk {
	return domain.Chunk{
		Text:           text,
		SourceFileID:   fileID,
		SourceFilename: fileID + ".pdf",
		ChunkIndex:     index,
		TotalChunks:    total,
	}
}

func TestPrepare(t *testing.T) {
	records, err := Prepare(
		[]domain.Chunk{chunk("f", 0, 2, "a"), chunk("f", 1, 2, "b")},
		[][]float32{{1, 0}, {0, 1}},
		2,
	)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "f:0", records[0].ID)
	assert.Equal(t, "f:1", records[1].ID)
	assert.Equal(t, "f.pdf", records[1].Metadata[domain.MetaSource])
	assert.Equal(t, "2", records[1].Metadata[domain.MetaTotalChunks])
}

func TestPrepare_Errors(t *testing.T) {
	tests := []struct {
		name    string
		chunks  []domain.Chunk
		embs    [][]float32
		dim     int
		wantErr error
	}{
		{"length mismatch", []domain.Chunk{chunk("f", 0, 1, "a")}, nil, 0, domain.ErrValidation},
		{"empty text", []domain.Chunk{chunk("f", 0, 1, " ")}, [][]float32{{1}}, 0, domain.ErrValidation},
		{"no file id", []domain.Chunk{chunk("", 0, 1, "a")}, [][]float32{{1}}, 0, domain.ErrValidation},
		{"empty embedding", []domain.Chunk{chunk("f", 0, 1, "a")}, [][]float32{{}}, 0, domain.ErrValidation},
		{"wrong dimension", []domain.Chunk{chunk("f", 0, 1, "a")}, [][]float32{{1, 2, 3}}, 2, domain.ErrDimensionMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Prepare(tt.chunks, tt.embs, tt.dim)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPrepare_DimensionMismatchIsEmbeddingError(t *testing.T) {
	_, err := Prepare([]domain.Chunk{chunk("f", 0, 1, "a")}, [][]float32{{1}}, 3)

	assert.ErrorIs(t, err, domain.ErrEmbedding)
}

func TestStaleTails(t *testing.T) {
	records, err := Prepare(
		[]domain.Chunk{chunk("a", 0, 2, "x"), chunk("a", 1, 2, "y"), chunk("b", 0, 1, "z")},
		[][]float32{{1}, {1}, {1}},
		1,
	)
	require.NoError(t, err)

	assert.Equal(t, map[string]int{"a": 2, "b": 1}, StaleTails(records))
}

func TestRanker_TopStable(t *testing.T) {
	var r Ranker
	r.Push(domain.RetrievedChunk{ID: "low", Score: 0.1})
	r.Push(domain.RetrievedChunk{ID: "tie-1", Score: 0.5})
	r.Push(domain.RetrievedChunk{ID: "high", Score: 0.9})
	r.Push(domain.RetrievedChunk{ID: "tie-2", Score: 0.5})

	top := r.Top(3)

	require.Len(t, top, 3)
	assert.Equal(t, "high", top[0].ID)
	assert.Equal(t, "tie-1", top[1].ID)
	assert.Equal(t, "tie-2", top[2].ID)
}

func TestRanker_TopMoreThanAvailable(t *testing.T) {
	var r Ranker
	r.Push(domain.RetrievedChunk{ID: "only"})

	assert.Len(t, r.Top(10), 1)

	var empty Ranker
	assert.Empty(t, empty.Top(3))
}

func TestMatches(t *testing.T) {
	meta := map[string]string{"file_id": "f", "source": "a.pdf"}

	assert.True(t, Matches(meta, nil))
	assert.True(t, Matches(meta, domain.SearchFilter{"file_id": "f"}))
	assert.False(t, Matches(meta, domain.SearchFilter{"file_id": "g"}))
	assert.False(t, Matches(meta, domain.SearchFilter{"missing": "x"}))
}

func TestValidateQuery(t *testing.T) {
	assert.NoError(t, ValidateQuery([]float32{1, 2}, 3, 2))
	assert.ErrorIs(t, ValidateQuery(nil, 3, 2), domain.ErrValidation)
	assert.ErrorIs(t, ValidateQuery([]float32{1}, 0, 0), domain.ErrValidation)
	assert.ErrorIs(t, ValidateQuery([]float32{1}, 3, 2), domain.ErrDimensionMismatch)
}
