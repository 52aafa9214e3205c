package vector

import "math"

// Norm returns the Euclidean length of v.
func Norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

// Cosine returns the cosine similarity of a and b given their precomputed
// norms. Mismatched lengths and zero-magnitude vectors score 0.
func Cosine(a, b []float32, normA, normB float64) float64 {
	if len(a) != len(b) || normA == 0 || normB == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (normA * normB)
}

// CosineSimilarity computes the cosine similarity of a and b.
func CosineSimilarity(a, b []float32) float64 {
	return Cosine(a, b, Norm(a), Norm(b))
}
