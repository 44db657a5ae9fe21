package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/quire/internal/core/domain"
)

func TestCosine_Identity(t *testing.T) {
	a := []float32{0.3, -0.2, 0.9}

	got, err := Cosine(a, a)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got, 1e-9)
}

func TestCosine_Symmetry(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-4, 0.5, 2}

	ab, err := Cosine(a, b)
	require.NoError(t, err)
	ba, err := Cosine(b, a)
	require.NoError(t, err)

	assert.Equal(t, ab, ba)
}

func TestCosine_Bounds(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{-1, 0}

	got, err := Cosine(a, b)
	require.NoError(t, err)
	assert.InDelta(t, -1.0, got, 1e-9)
	assert.GreaterOrEqual(t, got, -1.0-1e-9)
	assert.LessOrEqual(t, got, 1.0+1e-9)
}

func TestCosine_ZeroVector(t *testing.T) {
	zero := []float32{0, 0, 0}
	b := []float32{1, 2, 3}

	got, err := Cosine(zero, b)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = Cosine(b, zero)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)

	got, err = Cosine(zero, zero)
	require.NoError(t, err)
	assert.Equal(t, 0.0, got)
}

func TestCosine_DimensionMismatch(t *testing.T) {
	a := []float32{1, 2}
	b := []float32{1, 2, 3}

	_, err := Cosine(a, b)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestCosine_Orthogonal(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}

	got, err := Cosine(a, b)
	require.NoError(t, err)
	assert.InDelta(t, 0.0, got, 1e-9)
}
