package checkpointer

import (
	"encoding/gob"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samuelfneumann/deepflap/network"
	"github.com/stretchr/testify/require"
)

func stateDict() network.StateDict {
	return network.StateDict{
		"hidden0W": {Shape: []int{2, 2}, Data: []float64{1, 2, 3, 4}},
		"outW":     {Shape: []int{2, 1}, Data: []float64{-1, 0.5}},
	}
}

func TestSaveLoad(t *testing.T) {
	dir := t.TempDir()
	record := NewRecord(7, 0.05, stateDict(), network.Dueling, 42.5)

	path, err := Save(record, EpisodeFilename(7), dir)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "checkpoint-episode-7.bin"), path)

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, record, loaded)

	fitness, err := loaded.Fitness()
	require.NoError(t, err)
	require.Equal(t, 42.5, fitness)
}

func TestLoadRawLegacyCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.bin")
	record := Record{
		Episode:   3,
		Epsilon:   0.1,
		StateDict: stateDict(),
		Structure: network.Normal,
		Scores:    map[string]float64{LegacyTimeStepKey: 12},
	}

	file, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, gob.NewEncoder(file).Encode(record))
	require.NoError(t, file.Close())

	loaded, err := Load(path)
	require.NoError(t, err)
	fitness, err := loaded.Fitness()
	require.NoError(t, err)
	require.Equal(t, 12.0, fitness)
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Load(filepath.Join(dir, "missing.bin"))
	var loadErr *LoadError
	require.True(t, errors.As(err, &loadErr))
	require.True(t, loadErr.NotFound)

	garbage := filepath.Join(dir, "garbage.bin")
	require.NoError(t, os.WriteFile(garbage, []byte("not a checkpoint"), 0644))
	_, err = Load(garbage)
	require.True(t, errors.As(err, &loadErr))
	require.False(t, loadErr.NotFound)
}

func TestFitnessPrefersTimeStep(t *testing.T) {
	r := Record{Scores: map[string]float64{
		TimeStepKey:       3,
		LegacyTimeStepKey: 9,
	}}
	fitness, err := r.Fitness()
	require.NoError(t, err)
	require.Equal(t, 3.0, fitness)

	_, err = Record{}.Fitness()
	require.Error(t, err)

	// A zero fitness is still a fitness
	fitness, err = Record{Scores: map[string]float64{TimeStepKey: 0}}.Fitness()
	require.NoError(t, err)
	require.Equal(t, 0.0, fitness)
}

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, BestFilename)
	require.NoError(t, os.WriteFile(src, []byte("weights"), 0644))

	require.NoError(t, CopyFile(src, dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	require.Equal(t, "weights", string(data))
}

func TestPolicyBestStrictlyIncreases(t *testing.T) {
	p, err := NewPolicy(2, 3, 0)
	require.NoError(t, err)

	fitnesses := []float64{5, 4, 7, 7, 3, 9, 9, 12, 1, 15}
	var promoted []float64
	for ep, fitness := range fitnesses {
		if !p.ShouldEvaluate(ep) {
			continue
		}
		d := p.Decide(ep, fitness)
		if d.Best {
			require.True(t, d.Save)
			promoted = append(promoted, fitness)
		}
	}

	require.NotEmpty(t, promoted)
	for i := 1; i < len(promoted); i++ {
		require.Greater(t, promoted[i], promoted[i-1])
	}
	require.Equal(t, promoted[len(promoted)-1], p.Best())
}

func TestPolicyGates(t *testing.T) {
	p, err := NewPolicy(4, 6, 10)
	require.NoError(t, err)

	require.True(t, p.ShouldEvaluate(0))
	require.False(t, p.ShouldEvaluate(1))
	require.True(t, p.ShouldEvaluate(4))
	require.True(t, p.ShouldEvaluate(6))

	// Test gate fires but the fitness is not better than the best
	require.Equal(t, Decision{}, p.Decide(4, 10))

	// Only the save gate fires, so the network is never promoted
	require.Equal(t, Decision{Save: true}, p.Decide(6, 100))
	require.Equal(t, 10.0, p.Best())

	// Both gates fire
	require.Equal(t, Decision{Save: true, Best: true}, p.Decide(12, 11))
	require.Equal(t, Decision{Save: true}, p.Decide(12, 11))

	_, err = NewPolicy(0, 1, 0)
	require.Error(t, err)
}

func TestRunFolder(t *testing.T) {
	start := time.Date(2021, time.March, 4, 5, 6, 7, 0, time.UTC)
	require.Equal(t, filepath.Join("model", "checkpoint_2021_03_04_05_06_07"),
		RunFolder("model", start))
}
