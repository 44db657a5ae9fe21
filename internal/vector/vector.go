// Package vector provides similarity math for embedding vectors.
package vector

import (
	"math"

	"github.com/custodia-labs/quire/internal/core/domain"
)

// Cosine returns the cosine similarity of a and b: dot(a,b)/(|a||b|),
// in [-1, 1]. A zero-magnitude operand yields 0 rather than dividing
// by zero. Vectors of different lengths fail with
// domain.ErrDimensionMismatch.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.ErrDimensionMismatch
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
