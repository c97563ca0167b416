package flappy

import (
	"testing"

	"github.com/samuelfneumann/deepflap/environment"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestResetFrame(t *testing.T) {
	f := New(1)
	frame, err := f.Reset()
	require.NoError(t, err)
	require.Equal(t, int(ViewportW), frame.Bounds().Dx())
	require.Equal(t, int(ViewportH), frame.Bounds().Dy())
	require.Equal(t, 0, f.Score())
}

func TestFrameStepNeedsComputerPlayer(t *testing.T) {
	f := New(1)
	_, _, _, err := f.FrameStep(environment.OneHot(0))
	require.Error(t, err)

	f.SetPlayerComputer()
	_, reward, terminal, err := f.FrameStep(environment.OneHot(0))
	require.NoError(t, err)
	require.False(t, terminal)
	require.Equal(t, AliveReward, reward)
}

func TestFrameStepRejectsBadAction(t *testing.T) {
	f := New(1)
	f.SetPlayerComputer()

	_, _, _, err := f.FrameStep(mat.NewVecDense(3, []float64{0, 1, 0}))
	require.Error(t, err)

	_, _, _, err = f.FrameStep(mat.NewVecDense(2, []float64{0, 0}))
	require.Error(t, err)
}

func TestFallingBirdCrashes(t *testing.T) {
	f := New(1)
	f.SetPlayerComputer()

	var (
		reward   float64
		terminal bool
		steps    int
	)
	for steps = 0; steps < 300 && !terminal; steps++ {
		var err error
		_, reward, terminal, err = f.FrameStep(environment.OneHot(0))
		require.NoError(t, err)
	}
	require.True(t, terminal)
	require.Equal(t, CrashReward, reward)

	// The next step starts a new episode
	_, _, terminal, err := f.FrameStep(environment.OneHot(0))
	require.NoError(t, err)
	require.False(t, terminal)
	require.Equal(t, 1, f.Steps())
}

func TestFlappingOutlastsFalling(t *testing.T) {
	run := func(flapEvery int) int {
		f := New(3)
		f.SetPlayerComputer()
		for steps := 1; steps <= 1000; steps++ {
			action := 0
			if flapEvery > 0 && steps%flapEvery == 0 {
				action = 1
			}
			_, _, terminal, err := f.FrameStep(environment.OneHot(action))
			require.NoError(t, err)
			if terminal {
				return steps
			}
		}
		return 1000
	}
	require.Greater(t, run(8), run(0))
}

func TestCoordinateConversion(t *testing.T) {
	x, y := PixelToWorldCoord(WorldToPixelCoord(2.5, 7))
	require.InDelta(t, 2.5, x, 1e-9)
	require.InDelta(t, 7, y, 1e-9)
}
