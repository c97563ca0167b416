package deepq

import (
	"testing"

	"github.com/samuelfneumann/deepflap/expreplay"
	"github.com/samuelfneumann/deepflap/initwfn"
	"github.com/samuelfneumann/deepflap/network"
	"github.com/samuelfneumann/deepflap/solver"
	"github.com/stretchr/testify/require"
)

func TestDoubleTarget(t *testing.T) {
	// The learned network ranks action 0 first, so its target value is
	// used even though action 1 has the larger target value
	targets := Targets([]float64{1}, []bool{false}, []float64{2, 5},
		[]float64{3, 1}, 2, 0.9)
	require.InDelta(t, 2.8, targets[0], 1e-12)
}

func TestVanillaTarget(t *testing.T) {
	targets := Targets([]float64{1, -1}, []bool{false, true},
		[]float64{2, 5, 100, 100}, nil, 2, 0.9)
	require.InDelta(t, 5.5, targets[0], 1e-12)
	require.Equal(t, -1.0, targets[1])
}

func newTestConfig(t *testing.T, structure network.Structure,
	double bool) Config {
	t.Helper()

	s, err := solver.NewVanilla(0.05, 1, -1)
	require.NoError(t, err)
	init, err := initwfn.NewGlorotU(1.0)
	require.NoError(t, err)

	return Config{
		Network:   network.NewConfig(structure, 4),
		Solver:    s,
		InitWFn:   init,
		BatchSize: 3,
		Gamma:     0.9,
		Double:    double,
	}
}

func testBatch() expreplay.Batch {
	return expreplay.Batch{
		States:     []float64{1, 0, 0, 1, 1, 1},
		Actions:    []float64{1, 0, 0, 1, 1, 0},
		Rewards:    []float64{0.1, 1, -1},
		NextStates: []float64{0, 1, 1, 1, 0, 0},
		Terminals:  []bool{false, false, true},
	}
}

func TestLearnReducesLoss(t *testing.T) {
	d, err := New(2, 2, newTestConfig(t, network.Normal, false))
	require.NoError(t, err)
	defer d.Close()

	first, err := d.Learn(testBatch())
	require.NoError(t, err)

	var last float64
	for i := 0; i < 200; i++ {
		last, err = d.Learn(testBatch())
		require.NoError(t, err)
	}
	require.Less(t, last, first)
}

func TestSyncTarget(t *testing.T) {
	for _, double := range []bool{false, true} {
		for _, structure := range []network.Structure{network.Normal,
			network.Dueling} {
			d, err := New(2, 2, newTestConfig(t, structure, double))
			require.NoError(t, err)
			require.Equal(t, structure, d.Structure())

			before, err := d.ActionValues([]float64{1, 0})
			require.NoError(t, err)

			for i := 0; i < 3; i++ {
				_, err := d.Learn(testBatch())
				require.NoError(t, err)
			}

			// Acting uses the newly learned weights
			after, err := d.ActionValues([]float64{1, 0})
			require.NoError(t, err)
			require.NotEqual(t, before, after)

			learned, err := d.StateDict()
			require.NoError(t, err)
			target, err := d.TargetStateDict()
			require.NoError(t, err)
			require.NotEqual(t, learned, target)

			require.NoError(t, d.SyncTarget())
			target, err = d.TargetStateDict()
			require.NoError(t, err)
			require.Equal(t, learned, target)

			require.NoError(t, d.Close())
		}
	}
}

func TestLoadStateDict(t *testing.T) {
	src, err := New(2, 2, newTestConfig(t, network.Dueling, true))
	require.NoError(t, err)
	defer src.Close()
	_, err = src.Learn(testBatch())
	require.NoError(t, err)

	dst, err := New(2, 2, newTestConfig(t, network.Dueling, true))
	require.NoError(t, err)
	defer dst.Close()

	sd, err := src.StateDict()
	require.NoError(t, err)
	require.NoError(t, dst.LoadStateDict(sd))

	target, err := dst.TargetStateDict()
	require.NoError(t, err)
	require.Equal(t, sd, target)

	want, err := src.ActionValues([]float64{0, 1})
	require.NoError(t, err)
	have, err := dst.ActionValues([]float64{0, 1})
	require.NoError(t, err)
	require.InDeltaSlice(t, want, have, 1e-12)

	normal, err := New(2, 2, newTestConfig(t, network.Normal, false))
	require.NoError(t, err)
	defer normal.Close()
	require.Error(t, normal.LoadStateDict(sd))
}

func TestLearnRejectsBatchSize(t *testing.T) {
	d, err := New(2, 2, newTestConfig(t, network.Normal, false))
	require.NoError(t, err)
	defer d.Close()

	batch := testBatch()
	batch.Rewards = batch.Rewards[:2]
	_, err = d.Learn(batch)
	require.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	c := newTestConfig(t, network.Normal, false)
	c.Gamma = 1.5
	require.Error(t, c.Validate())

	c = newTestConfig(t, network.Normal, false)
	c.Solver = nil
	_, err := New(2, 2, c)
	require.Error(t, err)
}
