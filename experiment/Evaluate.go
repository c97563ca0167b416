package experiment

import (
	"image"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/deepflap/agent"
	"github.com/samuelfneumann/deepflap/agent/policy"
	"github.com/samuelfneumann/deepflap/environment"
	"github.com/samuelfneumann/deepflap/preprocess"
	"gonum.org/v1/gonum/stat"
)

// Evaluate plays episodes greedily with respect to q and returns the
// mean number of steps survived per episode. Nothing is learned or
// stored.
func Evaluate(env environment.Environment, q agent.QFunction,
	prep preprocess.Preprocessor, stackSize, episodes int) (float64, error) {
	if episodes < 1 {
		return 0, errors.Errorf("evaluate: number of episodes must be "+
			"positive \n\thave(%v)", episodes)
	}

	survived := make([]float64, episodes)
	for i := range survived {
		steps, err := Play(env, q, prep, stackSize, nil)
		if err != nil {
			return 0, errors.Wrap(err, "evaluate")
		}
		survived[i] = float64(steps)
	}

	return stat.Mean(survived, nil), nil
}

// Play plays a single episode greedily with respect to q and returns
// the number of steps survived. The step on which the episode ends is
// not counted. If onFrame is not nil, it is called with every frame of
// the episode.
func Play(env environment.Environment, q agent.QFunction,
	prep preprocess.Preprocessor, stackSize int,
	onFrame func(image.Image) error) (int, error) {
	stack, err := preprocess.NewFrameStack(stackSize, prep.Features())
	if err != nil {
		return 0, errors.Wrap(err, "play")
	}
	show := func(frame image.Image) error {
		if onFrame == nil {
			return nil
		}
		return onFrame(frame)
	}

	frame, err := env.Reset()
	if err != nil {
		return 0, errors.Wrap(err, "play: could not reset")
	}
	if err := show(frame); err != nil {
		return 0, errors.Wrap(err, "play")
	}
	stack.Reset(prep.Process(frame))

	var greedy policy.Greedy
	steps := 0
	for {
		values, err := q.ActionValues(stack.State())
		if err != nil {
			return steps, errors.Wrap(err, "play")
		}
		action := environment.OneHot(greedy.SelectAction(values))

		frame, _, terminal, err := env.FrameStep(action)
		if err != nil {
			return steps, errors.Wrap(err, "play: could not step")
		}
		if err := show(frame); err != nil {
			return steps, errors.Wrap(err, "play")
		}
		if terminal {
			return steps, nil
		}
		stack.Push(prep.Process(frame))
		steps++
	}
}
