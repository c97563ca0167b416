package experiment

import (
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/samuelfneumann/deepflap/agent/deepq"
	"github.com/samuelfneumann/deepflap/agent/policy"
	"github.com/samuelfneumann/deepflap/config"
	"github.com/samuelfneumann/deepflap/environment"
	"github.com/samuelfneumann/deepflap/experiment/checkpointer"
	"github.com/samuelfneumann/deepflap/experiment/trackers"
	"github.com/samuelfneumann/deepflap/logger"
	"github.com/samuelfneumann/deepflap/preprocess"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

// corridor is a game whose episodes end after a fixed number of steps.
// If episodeLength is not positive, episodes never end.
type corridor struct {
	episodeLength int
	steps         int
	resets        int
	computer      bool
}

func (c *corridor) frame() image.Image {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	img.SetGray(c.steps%8, c.steps%8, color.Gray{Y: 0})
	return img
}

func (c *corridor) Reset() (image.Image, error) {
	c.steps = 0
	c.resets++
	return c.frame(), nil
}

func (c *corridor) FrameStep(a mat.Vector) (image.Image, float64, bool,
	error) {
	action, err := environment.ActionIndex(a)
	if err != nil {
		return nil, 0, false, err
	}
	c.steps++
	terminal := c.episodeLength > 0 && c.steps >= c.episodeLength
	return c.frame(), float64(action) + 0.1, terminal, nil
}

func (c *corridor) SetPlayerComputer() {
	c.computer = true
}

// constantQ values every action equally in every state
type constantQ struct{}

func (constantQ) ActionValues([]float64) ([]float64, error) {
	return []float64{1, 1}, nil
}

func (constantQ) NumActions() int {
	return 2
}

func testConfig(t *testing.T) config.Config {
	dir := t.TempDir()
	c := config.Default()
	c.ModelDir = filepath.Join(dir, "model")
	c.BestModelPath = filepath.Join(dir, checkpointer.BestFilename)
	c.FrameWidth = 4
	c.FrameHeight = 4
	c.StackSize = 2
	c.HiddenLayers = []int{8}
	c.LR = 0.01
	c.BatchSize = 4
	c.MemorySize = 100
	c.Observation = 50
	c.MaxEpisode = 4
	c.TestModelFreq = 2
	c.SaveCheckpointFreq = 3
	c.UpdateTargetQNetworkFreq = 5
	c.InitE = 0.5
	c.FinalE = 0.1
	c.ExplorationEpisodes = 3
	c.EvalEpisodes = 2
	c.EvalStepLimit = 20
	c.Progress = false
	return c
}

func newTrainer(t *testing.T, c config.Config, env environment.Environment,
	tr ...trackers.Tracker) *Trainer {
	trainer, err := NewTrainer(c, env, logger.New(), tr...)
	require.NoError(t, err)
	t.Cleanup(func() { trainer.Close() })
	return trainer
}

func TestWarmupFillsReplay(t *testing.T) {
	env := &corridor{}
	trainer := newTrainer(t, testConfig(t), env)
	require.True(t, env.computer)

	require.NoError(t, trainer.Warmup())
	require.Equal(t, 50, trainer.Replay().Len())
	require.Equal(t, 1, env.resets)
}

func TestWarmupResetsAfterTerminal(t *testing.T) {
	env := &corridor{episodeLength: 10}
	trainer := newTrainer(t, testConfig(t), env)

	require.NoError(t, trainer.Warmup())
	require.Equal(t, 50, trainer.Replay().Len())
	require.Equal(t, 6, env.resets)

	terminals := 0
	for _, tr := range trainer.Replay().Transitions() {
		if tr.Terminal {
			terminals++
		}
	}
	require.Equal(t, 5, terminals)
}

func TestTargetSyncCadence(t *testing.T) {
	c := testConfig(t)
	env := &corridor{episodeLength: c.UpdateTargetQNetworkFreq}
	trainer := newTrainer(t, c, env)
	require.NoError(t, trainer.Warmup())

	summary, err := trainer.RunEpisode(0)
	require.NoError(t, err)
	require.Equal(t, c.UpdateTargetQNetworkFreq, summary.TimeStep)

	learner, ok := trainer.Learner().(*deepq.DeepQ)
	require.True(t, ok)

	online, err := learner.StateDict()
	require.NoError(t, err)
	target, err := learner.TargetStateDict()
	require.NoError(t, err)
	require.Equal(t, online, target)
}

func TestRunEpisodeSummary(t *testing.T) {
	c := testConfig(t)
	c.Gamma = 0.5
	c.Exploration = policy.Boltzmann
	env := &corridor{episodeLength: 3}
	trainer := newTrainer(t, c, env)
	require.NoError(t, trainer.Warmup())

	summary, err := trainer.RunEpisode(7)
	require.NoError(t, err)
	require.Equal(t, 7, summary.Episode)
	require.Equal(t, 3, summary.TimeStep)
	require.Equal(t, 53, trainer.Replay().Len())

	// Each reward is 0.1 or 1.1, discounted by 1, 0.5, and 0.25
	require.GreaterOrEqual(t, summary.Return, 0.1*1.75-1e-9)
	require.LessOrEqual(t, summary.Return, 1.1*1.75+1e-9)
}

func TestRunEpsilonAndCheckpoints(t *testing.T) {
	c := testConfig(t)
	epsPath := filepath.Join(t.TempDir(), "eps.bin")
	epsilons := trackers.NewEpsilon(epsPath)
	env := &corridor{episodeLength: 6}
	trainer := newTrainer(t, c, env, epsilons)
	trainer.started = time.Date(2021, time.August, 1, 12, 0, 0, 0, time.UTC)
	folder := trainer.RunFolder()
	require.Equal(t, checkpointer.RunFolder(c.ModelDir, trainer.started),
		folder)
	returns := trackers.NewReturn(filepath.Join(folder, "returns.bin"))
	trainer.Track(returns)

	require.NoError(t, trainer.Run())

	eps := epsilons.Data()
	require.Len(t, eps, c.MaxEpisode+1)
	require.Equal(t, c.InitE, eps[0])
	for i := 1; i < len(eps); i++ {
		require.LessOrEqual(t, eps[i], eps[i-1])
		require.GreaterOrEqual(t, eps[i], c.FinalE)
	}

	// Evaluation episodes always survive 5 steps, so only episode 0 is
	// promoted to the best checkpoint and episode 3 is saved regularly.
	entries, err := os.ReadDir(folder)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	require.ElementsMatch(t, []string{
		checkpointer.EpisodeFilename(0),
		checkpointer.EpisodeFilename(3),
		"returns.bin",
	}, names)

	best, err := checkpointer.Load(c.BestModelPath)
	require.NoError(t, err)
	require.Equal(t, 0, best.Episode)
	fitness, err := best.Fitness()
	require.NoError(t, err)
	require.Equal(t, 5.0, fitness)

	saved, err := trackers.LoadData(epsPath)
	require.NoError(t, err)
	require.Equal(t, eps, saved)

	tracked, err := trackers.LoadData(filepath.Join(folder, "returns.bin"))
	require.NoError(t, err)
	require.Len(t, tracked, c.MaxEpisode+1)
}

func TestResume(t *testing.T) {
	c := testConfig(t)
	c.MaxEpisode = 0
	env := &corridor{episodeLength: 4}

	first := newTrainer(t, c, env)
	sd, err := first.Learner().StateDict()
	require.NoError(t, err)

	path, err := checkpointer.Save(checkpointer.NewRecord(10, 0.2, sd,
		first.Learner().Structure(), 100), "resume.bin", t.TempDir())
	require.NoError(t, err)

	c.Resume = true
	c.ModelPath = path
	second := newTrainer(t, c, env)
	require.NoError(t, second.Run())

	// The evaluated fitness of 3 does not beat the resumed fitness
	require.Equal(t, 100.0, second.checkpoints.Best())
	_, err = os.Stat(c.BestModelPath)
	require.True(t, os.IsNotExist(err))
}

func TestResumeErrors(t *testing.T) {
	c := testConfig(t)
	c.Resume = true
	_, err := NewTrainer(c, &corridor{}, logger.New())
	require.Error(t, err)

	c.ModelPath = filepath.Join(t.TempDir(), "missing.bin")
	trainer := newTrainer(t, c, &corridor{episodeLength: 3})
	err = trainer.Run()
	require.Error(t, err)
}

func TestEvaluate(t *testing.T) {
	prep, err := preprocess.New(4, 4)
	require.NoError(t, err)

	env := &corridor{episodeLength: 7}
	fitness, err := Evaluate(env, constantQ{}, prep, 3, 4)
	require.NoError(t, err)
	require.Equal(t, 6.0, fitness)
	require.Equal(t, 4, env.resets)

	limited, err := environment.NewStepLimit(&corridor{}, 9)
	require.NoError(t, err)
	fitness, err = Evaluate(limited, constantQ{}, prep, 3, 2)
	require.NoError(t, err)
	require.Equal(t, 8.0, fitness)

	_, err = Evaluate(env, constantQ{}, prep, 3, 0)
	require.Error(t, err)
}

func TestPlayShowsEveryFrame(t *testing.T) {
	prep, err := preprocess.New(4, 4)
	require.NoError(t, err)

	frames := 0
	steps, err := Play(&corridor{episodeLength: 5}, constantQ{}, prep, 2,
		func(image.Image) error {
			frames++
			return nil
		})
	require.NoError(t, err)
	require.Equal(t, 4, steps)
	require.Equal(t, 6, frames)
}

func TestLoadCheckpoint(t *testing.T) {
	c := testConfig(t)
	trainer := newTrainer(t, c, &corridor{})
	sd, err := trainer.Learner().StateDict()
	require.NoError(t, err)
	dir := t.TempDir()

	path, err := checkpointer.Save(checkpointer.NewRecord(12, 0.3, sd,
		trainer.Learner().Structure(), 42), "scored.bin", dir)
	require.NoError(t, err)
	record, fitness, err := LoadCheckpoint(path, logger.New())
	require.NoError(t, err)
	require.Equal(t, 12, record.Episode)
	require.Equal(t, 0.3, record.Epsilon)
	require.Equal(t, 42.0, fitness)

	unscored := checkpointer.NewRecord(12, 0.3, sd,
		trainer.Learner().Structure(), 42)
	unscored.Scores = nil
	path, err = checkpointer.Save(unscored, "unscored.bin", dir)
	require.NoError(t, err)
	_, _, err = LoadCheckpoint(path, logger.New())
	require.Error(t, err)
}
