package main

import (
	"fmt"
	"image"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/deepflap/agent/deepq"
	"github.com/samuelfneumann/deepflap/config"
	"github.com/samuelfneumann/deepflap/environment"
	"github.com/samuelfneumann/deepflap/environment/flappy"
	"github.com/samuelfneumann/deepflap/experiment"
	"github.com/samuelfneumann/deepflap/experiment/trackers"
	"github.com/samuelfneumann/deepflap/logger"
	"github.com/samuelfneumann/deepflap/network"
	"github.com/samuelfneumann/deepflap/preprocess"
	"github.com/spf13/cobra"
)

func main() {
	if err := rootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "deepflap",
		Short:         "Train deep Q-networks to play a flappy bird game",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(trainCommand(), playCommand())
	return root
}

// newLogger returns a Subject which prints to the console and, if
// logFile is not empty, appends to logFile. The returned function
// closes the log file.
func newLogger(logFile string) (*logger.Subject, func(), error) {
	log := logger.New()
	log.Register(logger.Console{})
	if logFile == "" {
		return log, func() {}, nil
	}

	file, err := logger.NewFile(logFile)
	if err != nil {
		return nil, nil, err
	}
	log.Register(file)
	return log, func() { file.Close() }, nil
}

func trainCommand() *cobra.Command {
	var configPath string
	flagConfig := config.Default()

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a deep Q-network",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := resolveConfig(cmd, configPath, flagConfig)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}

			log, closeLog, err := newLogger(c.LogFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			defer closeLog()

			if err := c.Validate(); err != nil {
				log.Emitf(logger.Error, "%v", err)
				return err
			}

			trainer, err := experiment.NewTrainer(c, flappy.New(c.Seed), log)
			if err != nil {
				log.Emitf(logger.Error, "%v", err)
				return err
			}
			defer trainer.Close()

			folder := trainer.RunFolder()
			trainer.Track(
				trackers.NewEpisodeLength(filepath.Join(folder,
					"episode_lengths.bin")),
				trackers.NewReturn(filepath.Join(folder, "returns.bin")),
				trackers.NewEpsilon(filepath.Join(folder, "epsilons.bin")),
			)

			return trainer.Run()
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "JSON configuration "+
		"file, overridden by any other flags")
	bindFlags(cmd, &flagConfig)
	return cmd
}

func playCommand() *cobra.Command {
	var configPath, framesDir string
	flagConfig := config.Default()

	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play one episode with a trained deep Q-network",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := resolveConfig(cmd, configPath, flagConfig)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}

			log, closeLog, err := newLogger(c.LogFile)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return err
			}
			defer closeLog()

			if err := play(c, framesDir, log); err != nil {
				log.Emitf(logger.Error, "%v", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "JSON configuration "+
		"file, overridden by any other flags")
	cmd.Flags().StringVar(&framesDir, "frames", "", "folder in which to "+
		"save every frame of the episode as a PNG")
	bindFlags(cmd, &flagConfig)
	cmd.Flags().Lookup("model").Usage = "checkpoint of the network to play"
	cmd.MarkFlagRequired("model")
	return cmd
}

// play plays one greedy episode with the network checkpointed at
// c.ModelPath
func play(c config.Config, framesDir string, log *logger.Subject) error {
	record, _, err := experiment.LoadCheckpoint(c.ModelPath, log)
	if err != nil {
		return err
	}

	if record.Structure == network.Dueling {
		c.AdvancedMethods = append(c.AdvancedMethods, config.DuelingDQN)
	}
	learnerConfig, err := c.Learner()
	if err != nil {
		return err
	}
	learner, err := deepq.New(c.Features(), environment.NumActions,
		learnerConfig)
	if err != nil {
		return err
	}
	defer learner.Close()
	if err := learner.LoadStateDict(record.StateDict); err != nil {
		return errors.Wrap(err, "play: checkpoint does not match the "+
			"configured network")
	}

	prep, err := preprocess.New(c.FrameWidth, c.FrameHeight)
	if err != nil {
		return err
	}

	game := flappy.New(c.Seed)
	env, err := environment.NewStepLimit(game, c.EvalStepLimit)
	if err != nil {
		return err
	}
	env.SetPlayerComputer()

	var onFrame func(image.Image) error
	if framesDir != "" {
		if err := os.MkdirAll(framesDir, 0755); err != nil {
			return err
		}
		frame := 0
		onFrame = func(img image.Image) error {
			path := filepath.Join(framesDir, fmt.Sprintf("frame-%05d.png",
				frame))
			frame++
			return flappy.SaveFrame(path, img)
		}
	}

	steps, err := experiment.Play(env, learner, prep, c.StackSize, onFrame)
	if err != nil {
		return err
	}
	log.Emitf(logger.Success, "time step: %d, score: %d", steps, game.Score())
	return nil
}
