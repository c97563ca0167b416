package main

import (
	"fmt"
	"reflect"

	"github.com/samuelfneumann/deepflap/config"
	"github.com/spf13/cobra"
)

// flagFields maps each configuration flag to the config.Config field
// it sets
var flagFields = map[string]string{
	"resume":                      "Resume",
	"model":                       "ModelPath",
	"model-dir":                   "ModelDir",
	"best-model":                  "BestModelPath",
	"cuda":                        "Cuda",
	"advanced-method":             "AdvancedMethods",
	"exploration":                 "Exploration",
	"temperature":                 "Temperature",
	"lr":                          "LR",
	"gamma":                       "Gamma",
	"batch-size":                  "BatchSize",
	"memory-size":                 "MemorySize",
	"observation":                 "Observation",
	"max-episode":                 "MaxEpisode",
	"test-model-freq":             "TestModelFreq",
	"save-checkpoint-freq":        "SaveCheckpointFreq",
	"update-target-qnetwork-freq": "UpdateTargetQNetworkFreq",
	"init-e":                      "InitE",
	"final-e":                     "FinalE",
	"exploration-episodes":        "ExplorationEpisodes",
	"warmup-flap-probability":     "WarmupFlapProbability",
	"eval-episodes":               "EvalEpisodes",
	"eval-step-limit":             "EvalStepLimit",
	"frame-width":                 "FrameWidth",
	"frame-height":                "FrameHeight",
	"stack-size":                  "StackSize",
	"hidden-layers":               "HiddenLayers",
	"seed":                        "Seed",
	"progress":                    "Progress",
	"log-file":                    "LogFile",
}

// bindFlags registers a flag for each field of c named in flagFields
func bindFlags(cmd *cobra.Command, c *config.Config) {
	f := cmd.Flags()
	f.BoolVar(&c.Resume, "resume", c.Resume, "resume training from --model")
	f.StringVar(&c.ModelPath, "model", c.ModelPath, "checkpoint to resume "+
		"training from")
	f.StringVar(&c.ModelDir, "model-dir", c.ModelDir, "folder in which run "+
		"folders are created")
	f.StringVar(&c.BestModelPath, "best-model", c.BestModelPath, "path of "+
		"the copy of the best checkpoint")
	f.BoolVar(&c.Cuda, "cuda", c.Cuda, "request GPU training (networks "+
		"always run on the CPU)")
	f.Var(newMethodsValue(&c.AdvancedMethods), "advanced-method",
		`advanced method to enable, "Double DQN" or "Dueling DQN" `+
			"(repeatable)")
	f.StringVar((*string)(&c.Exploration), "exploration",
		string(c.Exploration), `"Epsilon Greedy" or "Boltzmann Exploration"`)
	f.Float64Var(&c.Temperature, "temperature", c.Temperature,
		"Boltzmann exploration temperature")
	f.Float64Var(&c.LR, "lr", c.LR, "learning rate")
	f.Float64Var(&c.Gamma, "gamma", c.Gamma, "discount factor")
	f.IntVar(&c.BatchSize, "batch-size", c.BatchSize, "minibatch size")
	f.IntVar(&c.MemorySize, "memory-size", c.MemorySize, "replay memory "+
		"capacity")
	f.IntVar(&c.Observation, "observation", c.Observation, "number of "+
		"warm-up steps")
	f.IntVar(&c.MaxEpisode, "max-episode", c.MaxEpisode, "last training "+
		"episode")
	f.IntVar(&c.TestModelFreq, "test-model-freq", c.TestModelFreq,
		"episodes between evaluations")
	f.IntVar(&c.SaveCheckpointFreq, "save-checkpoint-freq",
		c.SaveCheckpointFreq, "episodes between regular checkpoints")
	f.IntVar(&c.UpdateTargetQNetworkFreq, "update-target-qnetwork-freq",
		c.UpdateTargetQNetworkFreq, "training steps between target "+
			"network updates")
	f.Float64Var(&c.InitE, "init-e", c.InitE, "initial epsilon")
	f.Float64Var(&c.FinalE, "final-e", c.FinalE, "final epsilon")
	f.IntVar(&c.ExplorationEpisodes, "exploration-episodes",
		c.ExplorationEpisodes, "episodes over which epsilon decays")
	f.Float64Var(&c.WarmupFlapProbability, "warmup-flap-probability",
		c.WarmupFlapProbability, "probability of flapping during warm-up")
	f.IntVar(&c.EvalEpisodes, "eval-episodes", c.EvalEpisodes, "episodes "+
		"per evaluation")
	f.IntVar(&c.EvalStepLimit, "eval-step-limit", c.EvalStepLimit,
		"steps after which evaluation episodes end")
	f.IntVar(&c.FrameWidth, "frame-width", c.FrameWidth, "preprocessed "+
		"frame width")
	f.IntVar(&c.FrameHeight, "frame-height", c.FrameHeight, "preprocessed "+
		"frame height")
	f.IntVar(&c.StackSize, "stack-size", c.StackSize, "frames per state")
	f.IntSliceVar(&c.HiddenLayers, "hidden-layers", c.HiddenLayers,
		"hidden layer sizes")
	f.Uint64Var(&c.Seed, "seed", c.Seed, "random seed")
	f.BoolVar(&c.Progress, "progress", c.Progress, "display a warm-up "+
		"progress bar")
	f.StringVar(&c.LogFile, "log-file", c.LogFile, "file to which "+
		"messages are appended")
}

// resolveConfig returns the configuration of a command. If configPath
// is not empty, the configuration is loaded from the file and then
// every flag set on the command line overrides its field.
func resolveConfig(cmd *cobra.Command, configPath string,
	flags config.Config) (config.Config, error) {
	if configPath == "" {
		return flags, nil
	}

	c, err := config.Load(configPath)
	if err != nil {
		return config.Config{}, err
	}

	src := reflect.ValueOf(flags)
	dst := reflect.ValueOf(&c).Elem()
	for name, field := range flagFields {
		if cmd.Flags().Changed(name) {
			dst.FieldByName(field).Set(src.FieldByName(field))
		}
	}
	return c, nil
}

// methodsValue is a repeatable flag of advanced methods
type methodsValue struct {
	methods *[]config.AdvancedMethod
	changed bool
}

func newMethodsValue(m *[]config.AdvancedMethod) *methodsValue {
	return &methodsValue{methods: m}
}

func (m *methodsValue) String() string {
	if m.methods == nil {
		return "[]"
	}
	return fmt.Sprint(*m.methods)
}

func (m *methodsValue) Set(s string) error {
	if !m.changed {
		*m.methods = nil
		m.changed = true
	}
	*m.methods = append(*m.methods, config.AdvancedMethod(s))
	return nil
}

func (m *methodsValue) Type() string {
	return "method"
}
