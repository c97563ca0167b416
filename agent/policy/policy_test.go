package policy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinearDecayMonotone(t *testing.T) {
	const init, final, episodes = 0.1, 0.0001, 7
	decay, err := NewLinearDecay(init, final, episodes)
	require.NoError(t, err)

	prev := decay.Value()
	require.Equal(t, init, prev)
	for i := 0; i < 3*episodes; i++ {
		next := decay.Step()
		require.LessOrEqual(t, next, prev)
		require.GreaterOrEqual(t, next, final)
		prev = next
	}
	require.Equal(t, final, decay.Value())
}

func TestLinearDecayRejectsBadSchedule(t *testing.T) {
	_, err := NewLinearDecay(0.1, 0.2, 10)
	require.Error(t, err)

	_, err = NewLinearDecay(0.2, 0.1, 0)
	require.Error(t, err)
}

func TestEGreedyExtremes(t *testing.T) {
	q := []float64{0.1, 0.7}

	greedy := NewEGreedy(0, 1)
	for i := 0; i < 100; i++ {
		require.Equal(t, 1, greedy.SelectAction(q))
	}

	random := NewEGreedy(1, 1)
	counts := make([]int, 2)
	for i := 0; i < 2000; i++ {
		counts[random.SelectAction(q)]++
	}
	require.InDelta(t, 1000, counts[0], 150)
}

func TestGreedyTiesLowestIndex(t *testing.T) {
	require.Equal(t, 0, Greedy{}.SelectAction([]float64{3, 3}))
	require.Equal(t, 1, Greedy{}.SelectAction([]float64{1, 3}))
}

func TestSoftmaxSelection(t *testing.T) {
	_, err := NewSoftmax(0, 1)
	require.Error(t, err)

	s, err := NewSoftmax(1, 3)
	require.NoError(t, err)

	probs := s.Probabilities([]float64{0, 0})
	require.InDelta(t, 0.5, probs[0], 1e-12)

	// A large gap in action values makes selection near-greedy
	for i := 0; i < 100; i++ {
		require.Equal(t, 1, s.SelectAction([]float64{0, 100}))
	}
}

func TestFixedProbability(t *testing.T) {
	_, err := NewFixedProbability(1.5, 1)
	require.Error(t, err)

	never, err := NewFixedProbability(0, 1)
	require.NoError(t, err)
	always, err := NewFixedProbability(1, 1)
	require.NoError(t, err)

	for i := 0; i < 100; i++ {
		require.Equal(t, NoFlap, never.SelectAction(nil))
		require.Equal(t, Flap, always.SelectAction([]float64{100, -100}))
	}

	sometimes, err := NewFixedProbability(DefaultFlapProbability, 7)
	require.NoError(t, err)
	flaps := 0
	for i := 0; i < 5000; i++ {
		flaps += sometimes.SelectAction(nil)
	}
	require.InDelta(t, 1000, flaps, 150)
}

func TestMethodValidate(t *testing.T) {
	require.NoError(t, EpsilonGreedy.Validate())
	require.NoError(t, Boltzmann.Validate())
	require.Error(t, Method("Thompson").Validate())
}
