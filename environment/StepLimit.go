package environment

import (
	"fmt"
	"image"

	"gonum.org/v1/gonum/mat"
)

// StepLimit wraps an Environment and ends episodes once a number of
// frames have been stepped since the last reset, so that a player
// which never loses cannot run forever.
type StepLimit struct {
	Environment
	episodeSteps int
	steps        int
}

// NewStepLimit creates and returns a new step limit
func NewStepLimit(env Environment, episodeSteps int) (*StepLimit, error) {
	if episodeSteps < 1 {
		return nil, fmt.Errorf("newsteplimit: step limit must be positive "+
			"\n\thave(%v)", episodeSteps)
	}
	return &StepLimit{Environment: env, episodeSteps: episodeSteps}, nil
}

// Reset resets the wrapped environment and the step count
func (s *StepLimit) Reset() (image.Image, error) {
	s.steps = 0
	return s.Environment.Reset()
}

// FrameStep steps the wrapped environment, ending the episode if the
// step limit has been reached
func (s *StepLimit) FrameStep(action mat.Vector) (image.Image, float64,
	bool, error) {
	frame, reward, terminal, err := s.Environment.FrameStep(action)
	if err != nil {
		return nil, 0, false, err
	}

	s.steps++
	if s.steps >= s.episodeSteps {
		terminal = true
	}
	if terminal {
		s.steps = 0
	}
	return frame, reward, terminal, nil
}

// Steps returns the number of steps taken since the last reset
func (s *StepLimit) Steps() int {
	return s.steps
}
