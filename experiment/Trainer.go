// Package experiment implements the training loop of a DQN agent and
// the evaluation of trained agents.
//
// A training run first fills the replay buffer by acting with a fixed
// probability of flapping. It then runs episodes 0 through MaxEpisode,
// taking a gradient step after every environment step and
// synchronizing the target network on a fixed cadence of steps. At the
// end of each episode, the exploration rate decays and the trained
// network may be evaluated and checkpointed.
package experiment

import (
	"math"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/deepflap/agent"
	"github.com/samuelfneumann/deepflap/agent/deepq"
	"github.com/samuelfneumann/deepflap/agent/policy"
	"github.com/samuelfneumann/deepflap/config"
	"github.com/samuelfneumann/deepflap/environment"
	"github.com/samuelfneumann/deepflap/experiment/checkpointer"
	"github.com/samuelfneumann/deepflap/experiment/trackers"
	"github.com/samuelfneumann/deepflap/expreplay"
	"github.com/samuelfneumann/deepflap/logger"
	"github.com/samuelfneumann/deepflap/preprocess"
	"github.com/samuelfneumann/deepflap/timestep"
	"github.com/samuelfneumann/deepflap/utils/progressbar"
	"gonum.org/v1/gonum/stat"
)

// Trainer runs a single training run
type Trainer struct {
	config config.Config
	env    environment.Environment
	eval   environment.Environment // env, limited in episode length

	learner agent.Checkpointable
	replay  expreplay.ExperienceReplayer
	prep    preprocess.Preprocessor
	stack   *preprocess.FrameStack

	warmup   policy.Explorer
	explorer policy.Explorer
	eGreedy  *policy.EGreedy // Set only for epsilon greedy exploration
	epsilon  *policy.LinearDecay

	checkpoints *checkpointer.Policy
	trackers    []trackers.Tracker
	log         *logger.Subject

	// trainSteps counts the environment steps taken since the end of
	// the warm-up
	trainSteps int

	started time.Time
}

// NewTrainer returns a new Trainer of an agent acting in env. Messages
// are emitted to log and the summary of every episode is sent to
// each tracker.
func NewTrainer(c config.Config, env environment.Environment,
	log *logger.Subject, t ...trackers.Tracker) (*Trainer, error) {
	if err := c.Validate(); err != nil {
		return nil, errors.Wrap(err, "newtrainer")
	}

	learnerConfig, err := c.Learner()
	if err != nil {
		return nil, errors.Wrap(err, "newtrainer")
	}
	learner, err := deepq.New(c.Features(), environment.NumActions,
		learnerConfig)
	if err != nil {
		return nil, errors.Wrap(err, "newtrainer")
	}

	replay, err := c.Replay().Create(c.Features(), environment.NumActions,
		c.Seed)
	if err != nil {
		return nil, errors.Wrap(err, "newtrainer")
	}

	prep, err := preprocess.New(c.FrameWidth, c.FrameHeight)
	if err != nil {
		return nil, errors.Wrap(err, "newtrainer")
	}
	stack, err := preprocess.NewFrameStack(c.StackSize, prep.Features())
	if err != nil {
		return nil, errors.Wrap(err, "newtrainer")
	}

	eval, err := environment.NewStepLimit(env, c.EvalStepLimit)
	if err != nil {
		return nil, errors.Wrap(err, "newtrainer")
	}

	warmup, err := policy.NewFixedProbability(c.WarmupFlapProbability,
		c.Seed+1)
	if err != nil {
		return nil, errors.Wrap(err, "newtrainer")
	}

	epsilon, err := policy.NewLinearDecay(c.InitE, c.FinalE,
		c.ExplorationEpisodes)
	if err != nil {
		return nil, errors.Wrap(err, "newtrainer")
	}

	tr := &Trainer{
		config:   c,
		env:      env,
		eval:     eval,
		learner:  learner,
		replay:   replay,
		prep:     prep,
		stack:    stack,
		warmup:   warmup,
		epsilon:  epsilon,
		trackers: t,
		log:      log,
		started:  time.Now(),
	}

	switch c.Exploration {
	case policy.Boltzmann:
		if tr.explorer, err = policy.NewSoftmax(c.Temperature,
			c.Seed+2); err != nil {
			return nil, errors.Wrap(err, "newtrainer")
		}
	default:
		tr.eGreedy = policy.NewEGreedy(epsilon.Value(), c.Seed+2)
		tr.explorer = tr.eGreedy
	}

	if tr.checkpoints, err = checkpointer.NewPolicy(c.TestModelFreq,
		c.SaveCheckpointFreq, 0); err != nil {
		return nil, errors.Wrap(err, "newtrainer")
	}

	env.SetPlayerComputer()
	return tr, nil
}

// RunFolder returns the folder in which the checkpoints of the run are
// saved
func (t *Trainer) RunFolder() string {
	return checkpointer.RunFolder(t.config.ModelDir, t.started)
}

// Track adds trackers to which the summary of every episode is sent
func (t *Trainer) Track(tr ...trackers.Tracker) {
	t.trackers = append(t.trackers, tr...)
}

// Replay returns the replay buffer of the agent
func (t *Trainer) Replay() expreplay.ExperienceReplayer {
	return t.replay
}

// Learner returns the agent's learner
func (t *Trainer) Learner() agent.Checkpointable {
	return t.learner
}

// Close releases the resources held by the learner
func (t *Trainer) Close() error {
	if c, ok := t.learner.(agent.Closer); ok {
		return c.Close()
	}
	return nil
}

// Run runs the full training run. If an error occurs, it is emitted at
// the error level before being returned.
func (t *Trainer) Run() error {
	if err := t.run(); err != nil {
		t.log.Emitf(logger.Error, "%v", err)
		return err
	}
	return nil
}

func (t *Trainer) run() error {
	if t.config.Cuda {
		t.log.Emit(logger.Info, "cuda requested, but networks run on the "+
			"CPU only")
	}

	folder := t.RunFolder()
	if err := os.MkdirAll(folder, 0755); err != nil {
		return errors.Wrap(err, "run: could not create checkpoint folder")
	}

	if t.config.Resume {
		if err := t.resume(); err != nil {
			return err
		}
	}

	if err := t.Warmup(); err != nil {
		return err
	}

	for episode := 0; episode <= t.config.MaxEpisode; episode++ {
		summary, err := t.RunEpisode(episode)
		if err != nil {
			return err
		}
		t.log.Emitf(logger.Info, "episode: %d, epsilon: %.4f, time step: "+
			"%d, total reward: %.6f, loss: %.6f", summary.Episode,
			summary.Epsilon, summary.TimeStep, summary.Return, summary.Loss)
		for _, tracker := range t.trackers {
			tracker.Track(summary)
		}

		t.epsilon.Step()

		if err := t.checkpoint(episode, folder); err != nil {
			return err
		}
	}

	for _, tracker := range t.trackers {
		if err := tracker.Save(); err != nil {
			return errors.Wrap(err, "run: could not save tracked data")
		}
	}
	return nil
}

// resume loads the weights of a previous run and uses its fitness as
// the best fitness so far
func (t *Trainer) resume() error {
	record, fitness, err := LoadCheckpoint(t.config.ModelPath, t.log)
	if err != nil {
		return errors.Wrap(err, "resume")
	}

	if record.Structure != t.learner.Structure() {
		return errors.Errorf("resume: checkpoint has a %v network but a %v "+
			"network is configured", record.Structure, t.learner.Structure())
	}
	if err := t.learner.LoadStateDict(record.StateDict); err != nil {
		return errors.Wrap(err, "resume")
	}

	t.checkpoints, err = checkpointer.NewPolicy(t.config.TestModelFreq,
		t.config.SaveCheckpointFreq, fitness)
	return errors.Wrap(err, "resume")
}

// LoadCheckpoint loads the checkpoint at path and returns it together
// with its fitness. The episode, epsilon, and fitness of the checkpoint
// are emitted to log. An error is returned if the checkpoint records no
// fitness.
func LoadCheckpoint(path string, log *logger.Subject) (checkpointer.Record,
	float64, error) {
	log.Emitf(logger.Info, "load previous model weight: %v", path)

	record, err := checkpointer.Load(path)
	if err != nil {
		return checkpointer.Record{}, 0, err
	}
	log.Emitf(logger.Info, "pretrained episode = %d", record.Episode)
	log.Emitf(logger.Info, "pretrained epsilon = %v", record.Epsilon)

	fitness, err := record.Fitness()
	if err != nil {
		return checkpointer.Record{}, 0, err
	}
	log.Emitf(logger.Info, "pretrained time step = %v", fitness)
	return record, fitness, nil
}

// reset starts a new episode and fills the frame stack with its first
// frame
func (t *Trainer) reset() error {
	frame, err := t.env.Reset()
	if err != nil {
		return errors.Wrap(err, "could not reset environment")
	}
	t.stack.Reset(t.prep.Process(frame))
	return nil
}

// step takes action in the environment, stores the transition, and
// returns the resulting TimeStep
func (t *Trainer) step(action int, number int) (timestep.TimeStep, error) {
	state := t.stack.State()
	a := environment.OneHot(action)

	frame, reward, terminal, err := t.env.FrameStep(a)
	if err != nil {
		return timestep.TimeStep{}, errors.Wrap(err, "could not step "+
			"environment")
	}
	t.stack.Push(t.prep.Process(frame))

	stepType := timestep.Mid
	if terminal {
		stepType = timestep.Last
	}
	next := timestep.New(stepType, reward, t.stack.State(), number)

	if err := t.replay.Add(timestep.NewTransition(state, a, next)); err != nil {
		return timestep.TimeStep{}, err
	}
	return next, nil
}

// Warmup fills the replay buffer with Observation transitions of the
// warm-up policy. Nothing is learned and no episodes are counted.
func (t *Trainer) Warmup() error {
	var bar *progressbar.ProgressBar
	if t.config.Progress {
		bar = progressbar.New(os.Stdout, 50, t.config.Observation)
		defer bar.Close()
	}

	if err := t.reset(); err != nil {
		return errors.Wrap(err, "warmup")
	}
	for i := 0; i < t.config.Observation; i++ {
		step, err := t.step(t.warmup.SelectAction(nil), i+1)
		if err != nil {
			return errors.Wrap(err, "warmup")
		}
		if step.Last() {
			if err := t.reset(); err != nil {
				return errors.Wrap(err, "warmup")
			}
		}
		if bar != nil {
			bar.Increment()
			bar.Display()
		}
	}

	t.log.Emitf(logger.Debug, "warm-up stored %d transitions", t.replay.Len())
	return nil
}

// RunEpisode runs a single training episode and returns its summary
func (t *Trainer) RunEpisode(episode int) (trackers.Summary, error) {
	if t.eGreedy != nil {
		t.eGreedy.SetEpsilon(t.epsilon.Value())
	}
	summary := trackers.Summary{
		Episode: episode,
		Epsilon: t.epsilon.Value(),
	}

	if err := t.reset(); err != nil {
		return summary, errors.Wrapf(err, "episode %d", episode)
	}

	var losses []float64
	for {
		values, err := t.learner.ActionValues(t.stack.State())
		if err != nil {
			return summary, errors.Wrapf(err, "episode %d", episode)
		}

		step, err := t.step(t.explorer.SelectAction(values),
			summary.TimeStep+1)
		if err != nil {
			return summary, errors.Wrapf(err, "episode %d", episode)
		}
		summary.Return += math.Pow(t.config.Gamma,
			float64(summary.TimeStep)) * step.Reward
		summary.TimeStep++

		batch, err := t.replay.Sample()
		if err != nil {
			return summary, errors.Wrapf(err, "episode %d", episode)
		}
		loss, err := t.learner.Learn(batch)
		if err != nil {
			return summary, errors.Wrapf(err, "episode %d", episode)
		}
		losses = append(losses, loss)

		t.trainSteps++
		if t.trainSteps%t.config.UpdateTargetQNetworkFreq == 0 {
			if err := t.learner.SyncTarget(); err != nil {
				return summary, errors.Wrapf(err, "episode %d", episode)
			}
			t.log.Emitf(logger.Debug, "target network synchronized after "+
				"%d steps", t.trainSteps)
		}

		if step.Last() {
			break
		}
	}

	summary.Loss = stat.Mean(losses, nil)
	return summary, nil
}

// checkpoint evaluates and checkpoints the network at the end of an
// episode as decided by the checkpoint policy
func (t *Trainer) checkpoint(episode int, folder string) error {
	if !t.checkpoints.ShouldEvaluate(episode) {
		return nil
	}

	fitness, err := Evaluate(t.eval, t.learner, t.prep, t.config.StackSize,
		t.config.EvalEpisodes)
	if err != nil {
		return errors.Wrapf(err, "checkpoint %d", episode)
	}
	t.log.Emitf(logger.Info, "testing: episode: %d, average time step: %v",
		episode, fitness)

	decision := t.checkpoints.Decide(episode, fitness)
	if !decision.Save {
		return nil
	}

	sd, err := t.learner.StateDict()
	if err != nil {
		return errors.Wrapf(err, "checkpoint %d", episode)
	}
	record := checkpointer.NewRecord(episode, t.epsilon.Value(), sd,
		t.learner.Structure(), fitness)

	path, err := checkpointer.Save(record,
		checkpointer.EpisodeFilename(episode), folder)
	if err != nil {
		return errors.Wrapf(err, "checkpoint %d", episode)
	}

	if decision.Best {
		if err := checkpointer.CopyFile(path,
			t.config.BestModelPath); err != nil {
			return errors.Wrapf(err, "checkpoint %d", episode)
		}
		t.log.Emitf(logger.Success, "save the best checkpoint by far, "+
			"episode=%d, average time step=%.2f", episode, fitness)
	} else {
		t.log.Emitf(logger.Info, "save a normal checkpoint, episode=%d, "+
			"average time step=%.2f", episode, fitness)
	}
	return nil
}
