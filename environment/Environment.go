// Package environment outlines the interface between a DQN agent and
// the game it plays, along with wrappers of that interface.
package environment

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/mat"
)

// NumActions is the number of actions in the game: no flap and flap
const NumActions = 2

// Environment implements a game which is observed through rendered
// frames. Actions are one-hot vectors of length NumActions.
type Environment interface {
	// Reset starts a new episode and returns its first frame
	Reset() (image.Image, error)

	// FrameStep advances the game by one frame given an action and
	// returns the next frame, the reward, and whether the episode has
	// ended
	FrameStep(action mat.Vector) (image.Image, float64, bool, error)

	// SetPlayerComputer hands control of the game to an agent
	SetPlayerComputer()
}

// OneHot returns the one-hot encoding of an action index
func OneHot(action int) *mat.VecDense {
	if action < 0 || action >= NumActions {
		panic(fmt.Sprintf("onehot: illegal action %v", action))
	}
	v := mat.NewVecDense(NumActions, nil)
	v.SetVec(action, 1.0)
	return v
}

// ActionIndex returns the index of the hot element of a one-hot action
func ActionIndex(action mat.Vector) (int, error) {
	if action.Len() != NumActions {
		return -1, fmt.Errorf("actionindex: illegal action length"+
			"\n\twant(%v)\n\thave(%v)", NumActions, action.Len())
	}

	index := -1
	for i := 0; i < action.Len(); i++ {
		switch action.AtVec(i) {
		case 0.0:
		case 1.0:
			if index >= 0 {
				return -1, fmt.Errorf("actionindex: action %v is not one-hot",
					mat.Formatted(action.T()))
			}
			index = i
		default:
			return -1, fmt.Errorf("actionindex: action %v is not one-hot",
				mat.Formatted(action.T()))
		}
	}
	if index < 0 {
		return -1, fmt.Errorf("actionindex: action %v is not one-hot",
			mat.Formatted(action.T()))
	}
	return index, nil
}
