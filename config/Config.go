// Package config implements the configuration of a training run
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/deepflap/agent/deepq"
	"github.com/samuelfneumann/deepflap/agent/policy"
	"github.com/samuelfneumann/deepflap/expreplay"
	"github.com/samuelfneumann/deepflap/initwfn"
	"github.com/samuelfneumann/deepflap/network"
	"github.com/samuelfneumann/deepflap/preprocess"
	"github.com/samuelfneumann/deepflap/solver"
)

// AdvancedMethod names an improvement over vanilla DQN
type AdvancedMethod string

const (
	DoubleDQN  AdvancedMethod = "Double DQN"
	DuelingDQN AdvancedMethod = "Dueling DQN"
)

// Config is the configuration of a training run
type Config struct {
	Resume        bool   // Resume training from ModelPath
	ModelPath     string // Checkpoint to resume from or to play with
	ModelDir      string // Root folder of run folders
	BestModelPath string // Root-level copy of the best checkpoint
	Cuda          bool   // Ignored, networks always run on the CPU

	AdvancedMethods []AdvancedMethod
	Exploration     policy.Method
	Temperature     float64 // Boltzmann exploration temperature

	LR        float64
	Gamma     float64
	BatchSize int

	MemorySize  int // Replay buffer capacity
	Observation int // Number of warm-up steps

	MaxEpisode               int // Episodes 0..MaxEpisode are run
	TestModelFreq            int // Episodes between evaluations
	SaveCheckpointFreq       int // Episodes between regular checkpoints
	UpdateTargetQNetworkFreq int // Training steps between target syncs

	InitE               float64
	FinalE              float64
	ExplorationEpisodes int // Episodes over which ε decays

	WarmupFlapProbability float64

	EvalEpisodes  int
	EvalStepLimit int // Steps after which evaluation episodes end

	FrameWidth  int
	FrameHeight int
	StackSize   int

	HiddenLayers []int
	Solver       *solver.Solver
	InitWFn      *initwfn.InitWFn

	Seed     uint64
	Progress bool   // Display a warm-up progress bar
	LogFile  string // Optional file to which messages are appended
}

// Default returns the default run configuration
func Default() Config {
	return Config{
		ModelDir:      "model",
		BestModelPath: "model_best.bin",

		Exploration: policy.EpsilonGreedy,
		Temperature: 1.0,

		LR:        1e-6,
		Gamma:     0.99,
		BatchSize: 32,

		MemorySize:  5000,
		Observation: 100,

		MaxEpisode:               20000,
		TestModelFreq:            100,
		SaveCheckpointFreq:       2000,
		UpdateTargetQNetworkFreq: 1000,

		InitE:               0.1,
		FinalE:              0.0001,
		ExplorationEpisodes: 10000,

		WarmupFlapProbability: policy.DefaultFlapProbability,

		EvalEpisodes:  5,
		EvalStepLimit: 10000,

		FrameWidth:  preprocess.DefaultWidth,
		FrameHeight: preprocess.DefaultHeight,
		StackSize:   4,

		HiddenLayers: []int{256, 256},

		Progress: true,
	}
}

// Load loads a Config from a JSON file. Fields missing from the file
// keep their default values.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "load")
	}

	c := Default()
	if err := json.Unmarshal(data, &c); err != nil {
		return Config{}, errors.Wrapf(err, "load: could not decode %v", path)
	}
	return c, nil
}

// Has returns whether the advanced method m is enabled
func (c Config) Has(m AdvancedMethod) bool {
	for _, method := range c.AdvancedMethods {
		if method == m {
			return true
		}
	}
	return false
}

// Structure returns the architecture of the Q-network
func (c Config) Structure() network.Structure {
	if c.Has(DuelingDQN) {
		return network.Dueling
	}
	return network.Normal
}

// Features returns the number of features of a state
func (c Config) Features() int {
	return c.StackSize * c.FrameWidth * c.FrameHeight
}

// Learner returns the configuration of the DeepQ learner
func (c Config) Learner() (deepq.Config, error) {
	s := c.Solver
	if s == nil {
		s = solver.Default(c.LR)
	} else {
		var err error
		if s, err = s.WithStepSize(c.LR); err != nil {
			return deepq.Config{}, errors.Wrap(err, "learner")
		}
	}

	init := c.InitWFn
	if init == nil {
		init = initwfn.Default()
	}

	return deepq.Config{
		Network:   network.NewConfig(c.Structure(), c.HiddenLayers...),
		Solver:    s,
		InitWFn:   init,
		BatchSize: c.BatchSize,
		Gamma:     c.Gamma,
		Double:    c.Has(DoubleDQN),
	}, nil
}

// Replay returns the configuration of the replay buffer
func (c Config) Replay() expreplay.Config {
	return expreplay.Config{
		MaxReplayCapacity: c.MemorySize,
		BatchSize:         c.BatchSize,
	}
}

// Validate returns an error if the Config cannot be used for training
func (c Config) Validate() error {
	if c.Resume && c.ModelPath == "" {
		return fmt.Errorf("validate: a model path is needed to resume " +
			"training")
	}
	for _, m := range c.AdvancedMethods {
		if m != DoubleDQN && m != DuelingDQN {
			return fmt.Errorf("validate: unknown advanced method %q", m)
		}
	}
	if err := c.Exploration.Validate(); err != nil {
		return err
	}
	if c.Exploration == policy.Boltzmann && c.Temperature <= 0 {
		return fmt.Errorf("validate: temperature must be positive "+
			"\n\thave(%v)", c.Temperature)
	}

	if c.LR <= 0 {
		return fmt.Errorf("validate: learning rate must be positive "+
			"\n\thave(%v)", c.LR)
	}
	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: discount factor must be in [0, 1] "+
			"\n\thave(%v)", c.Gamma)
	}
	if err := c.Replay().Validate(); err != nil {
		return err
	}
	if c.MemorySize < c.BatchSize {
		return fmt.Errorf("validate: replay capacity must hold one batch "+
			"\n\twant(>=%v)\n\thave(%v)", c.BatchSize, c.MemorySize)
	}
	if c.Observation < c.BatchSize {
		return fmt.Errorf("validate: warm-up must collect at least one "+
			"batch \n\twant(>=%v)\n\thave(%v)", c.BatchSize, c.Observation)
	}

	if c.MaxEpisode < 0 {
		return fmt.Errorf("validate: max episode must be non-negative "+
			"\n\thave(%v)", c.MaxEpisode)
	}
	freqs := map[string]int{
		"test model":            c.TestModelFreq,
		"save checkpoint":       c.SaveCheckpointFreq,
		"update target":         c.UpdateTargetQNetworkFreq,
		"exploration episodes":  c.ExplorationEpisodes,
		"evaluation episodes":   c.EvalEpisodes,
		"evaluation step limit": c.EvalStepLimit,
		"stack size":            c.StackSize,
	}
	for name, f := range freqs {
		if f < 1 {
			return fmt.Errorf("validate: %v must be positive \n\thave(%v)",
				name, f)
		}
	}

	if c.FinalE > c.InitE {
		return fmt.Errorf("validate: final epsilon must not exceed initial "+
			"epsilon \n\thave(init=%v, final=%v)", c.InitE, c.FinalE)
	}
	if c.FinalE < 0 || c.InitE > 1 {
		return fmt.Errorf("validate: epsilon must be in [0, 1] "+
			"\n\thave(init=%v, final=%v)", c.InitE, c.FinalE)
	}
	if c.WarmupFlapProbability < 0 || c.WarmupFlapProbability > 1 {
		return fmt.Errorf("validate: flap probability must be in [0, 1] "+
			"\n\thave(%v)", c.WarmupFlapProbability)
	}
	if _, err := preprocess.New(c.FrameWidth, c.FrameHeight); err != nil {
		return errors.Wrap(err, "validate")
	}
	for _, h := range c.HiddenLayers {
		if h < 1 {
			return fmt.Errorf("validate: hidden layer sizes must be "+
				"positive \n\thave(%v)", c.HiddenLayers)
		}
	}
	return nil
}
