package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/deepflap/agent/policy"
	"github.com/samuelfneumann/deepflap/network"
	"github.com/samuelfneumann/deepflap/solver"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())
	require.Equal(t, network.Normal, c.Structure())

	learner, err := c.Learner()
	require.NoError(t, err)
	require.NoError(t, learner.Validate())
	require.False(t, learner.Double)
	require.Equal(t, solver.RMSProp, learner.Solver.Type)
}

func TestValidateRejects(t *testing.T) {
	tests := map[string]func(*Config){
		"resume without model": func(c *Config) { c.Resume = true },
		"warm-up too short":    func(c *Config) { c.Observation = c.BatchSize - 1 },
		"memory below batch":   func(c *Config) { c.MemorySize = c.BatchSize - 1 },
		"final above init":     func(c *Config) { c.FinalE = c.InitE + 0.1 },
		"zero test freq":       func(c *Config) { c.TestModelFreq = 0 },
		"zero save freq":       func(c *Config) { c.SaveCheckpointFreq = 0 },
		"zero target freq":     func(c *Config) { c.UpdateTargetQNetworkFreq = 0 },
		"unknown method": func(c *Config) {
			c.AdvancedMethods = []AdvancedMethod{"Rainbow"}
		},
		"unknown exploration": func(c *Config) { c.Exploration = "Random" },
		"cold boltzmann": func(c *Config) {
			c.Exploration = policy.Boltzmann
			c.Temperature = 0
		},
	}

	for name, modify := range tests {
		t.Run(name, func(t *testing.T) {
			c := Default()
			modify(&c)
			require.Error(t, c.Validate())
		})
	}
}

func TestAdvancedMethods(t *testing.T) {
	c := Default()
	c.AdvancedMethods = []AdvancedMethod{DoubleDQN, DuelingDQN}
	require.NoError(t, c.Validate())
	require.Equal(t, network.Dueling, c.Structure())

	learner, err := c.Learner()
	require.NoError(t, err)
	require.True(t, learner.Double)
	require.Equal(t, network.Dueling, learner.Network.Structure)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.json")
	data := `{
		"AdvancedMethods": ["Double DQN"],
		"Exploration": "Boltzmann Exploration",
		"BatchSize": 8,
		"Observation": 16,
		"Solver": {
			"Type": "Adam",
			"Config": {"StepSize": 0.01, "Epsilon": 1e-8, "Beta1": 0.9,
				"Beta2": 0.999, "Batch": 1}
		}
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, c.Validate())
	require.True(t, c.Has(DoubleDQN))
	require.Equal(t, policy.Boltzmann, c.Exploration)
	require.Equal(t, 8, c.BatchSize)
	require.Equal(t, Default().MemorySize, c.MemorySize)

	learner, err := c.Learner()
	require.NoError(t, err)
	require.Equal(t, solver.Adam, learner.Solver.Type)

	_, err = Load(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
}
