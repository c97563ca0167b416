package expreplay

import (
	"testing"

	"github.com/samuelfneumann/deepflap/timestep"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// transition returns a transition whose reward identifies it
func transition(id int) timestep.Transition {
	state := []float64{float64(id % 2), 1, 0}
	next := []float64{1, float64(id % 2), 0}
	action := mat.NewVecDense(2, []float64{1, 0})
	if id%3 == 0 {
		action = mat.NewVecDense(2, []float64{0, 1})
	}
	return timestep.Transition{
		State:     state,
		Action:    action,
		Reward:    float64(id),
		NextState: next,
		Terminal:  id%5 == 0,
	}
}

func TestAddEvictsOldest(t *testing.T) {
	const capacity, extra = 5, 3
	buffer, err := New(capacity, 2, 3, 2, 1)
	require.NoError(t, err)

	for i := 0; i < capacity+extra; i++ {
		require.NoError(t, buffer.Add(transition(i)))
		require.LessOrEqual(t, buffer.Len(), capacity)
	}
	require.Equal(t, capacity, buffer.Len())

	stored := buffer.Transitions()
	require.Len(t, stored, capacity)
	for i, tr := range stored {
		want := transition(i + extra)
		require.Equal(t, want.Reward, tr.Reward)
		require.Equal(t, want.State, tr.State)
		require.Equal(t, want.NextState, tr.NextState)
		require.Equal(t, want.Terminal, tr.Terminal)
		require.Equal(t, want.ActionIndex(), tr.ActionIndex())
	}
}

func TestSampleInsufficientData(t *testing.T) {
	buffer, err := New(10, 4, 3, 2, 1)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		require.NoError(t, buffer.Add(transition(i)))
	}

	_, err = buffer.Sample()
	require.Error(t, err)
	require.True(t, IsInsufficientData(err))

	batch, err := buffer.SampleN(3)
	require.NoError(t, err)
	require.Equal(t, 3, batch.Size())
}

func TestSampleDistinct(t *testing.T) {
	buffer, err := New(20, 8, 3, 2, 42)
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		require.NoError(t, buffer.Add(transition(i)))
	}

	for trial := 0; trial < 50; trial++ {
		batch, err := buffer.Sample()
		require.NoError(t, err)
		require.Equal(t, 8, batch.Size())
		require.Len(t, batch.States, 8*3)
		require.Len(t, batch.Actions, 8*2)

		seen := make(map[float64]bool)
		for i, r := range batch.Rewards {
			require.False(t, seen[r], "transition sampled twice")
			seen[r] = true

			// Each row stays aligned with its transition
			want := transition(int(r))
			require.Equal(t, want.State, batch.States[i*3:(i+1)*3])
			require.Equal(t, want.Terminal, batch.Terminals[i])
		}
	}
}

func TestAddRejectsBadSizes(t *testing.T) {
	buffer, err := New(4, 1, 3, 2, 1)
	require.NoError(t, err)

	bad := transition(1)
	bad.State = []float64{1}
	require.Error(t, buffer.Add(bad))

	bad = transition(1)
	bad.Action = mat.NewVecDense(3, nil)
	require.Error(t, buffer.Add(bad))
	require.Equal(t, 0, buffer.Len())
}

func TestNewRejectsBadConfig(t *testing.T) {
	_, err := New(0, 1, 3, 2, 1)
	require.Error(t, err)

	_, err = Config{MaxReplayCapacity: 4, BatchSize: 0}.Create(3, 2, 1)
	require.Error(t, err)
	require.Error(t, Config{MaxReplayCapacity: 4}.Validate())
}
