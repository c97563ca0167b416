package floatutils

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaxSliceTies(t *testing.T) {
	max, indices := MaxSlice([]float64{1, 3, 0, 3})
	require.Equal(t, 3.0, max)
	require.Equal(t, []int{1, 3}, indices)
	require.Equal(t, 1, Argmax([]float64{1, 3, 0, 3}))
}

func TestSoftmax(t *testing.T) {
	probs := Softmax([]float64{1000, 1000}, 1.0)
	require.InDelta(t, 0.5, probs[0], 1e-12)
	require.InDelta(t, 0.5, probs[1], 1e-12)

	// A low temperature concentrates the mass on the best action
	probs = Softmax([]float64{0, 1}, 0.01)
	require.Greater(t, probs[1], 0.999)
}

func TestClip(t *testing.T) {
	require.Equal(t, 1.0, Clip(5, -1, 1))
	require.Equal(t, -1.0, Clip(-5, -1, 1))
	require.Equal(t, 0.5, Clip(0.5, -1, 1))
}
