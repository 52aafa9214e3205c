// Package embedding holds the vector checks shared by the embedding
// provider adapters.
package embedding

import (
	"fmt"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
)

// ToFloat32 converts provider vectors to float32, checking that there is one
// vector per input and that every vector has the configured dimension.
func ToFloat32(provider string, vectors [][]float64, inputs, dimensions int) ([][]float32, error) {
	if len(vectors) != inputs {
		return nil, fmt.Errorf("%s: %w: got %d embeddings for %d inputs",
			provider, domain.ErrEmbedding, len(vectors), inputs)
	}

	out := make([][]float32, len(vectors))
	for i, vec := range vectors {
		if len(vec) == 0 {
			return nil, fmt.Errorf("%s: %w: empty embedding at position %d", provider, domain.ErrEmbedding, i)
		}
		if dimensions > 0 && len(vec) != dimensions {
			return nil, fmt.Errorf("%s: %w: got %d values, configured %d",
				provider, domain.ErrDimensionMismatch, len(vec), dimensions)
		}
		f := make([]float32, len(vec))
		for j, v := range vec {
			f[j] = float32(v)
		}
		out[i] = f
	}
	return out, nil
}
