package embedder

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalise_ProducesUnitVector(t *testing.T) {
	v := []float32{3, 4} // 3-4-5 triangle, norm 5
	out := normalise(v)

	var sumSq float64
	for _, x := range out {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-5)
	assert.True(t, VerifyUnitNorm(out))
}

func TestNormalise_ZeroVectorUnchanged(t *testing.T) {
	v := []float32{0, 0, 0}
	out := normalise(v)
	assert.Equal(t, v, out)
}

func TestVerifyUnitNorm_RejectsNonUnit(t *testing.T) {
	assert.False(t, VerifyUnitNorm([]float32{1, 1}))
}
