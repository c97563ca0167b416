// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either  first
// environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// TimeStep packages together a single timestep in an environment. The
// Observation is the stacked-frame state of the agent after the step
// was taken.
type TimeStep struct {
	StepType
	Reward      float64
	Observation []float64
	Number      int
}

// New returns a new TimeStep
func New(t StepType, r float64, o []float64, n int) TimeStep {
	return TimeStep{t, r, o, n}
}

// First returns whether a TimeStep is the first in an environment
func (t *TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t *TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t *TimeStep) Last() bool {
	return t.StepType == Last
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Number)
}

// Transition is a single (state, action, reward, next state, terminal)
// tuple. Action is a one-hot vector over the environment's actions.
type Transition struct {
	State     []float64
	Action    *mat.VecDense
	Reward    float64
	NextState []float64
	Terminal  bool
}

// NewTransition creates a transition from the step taken from state
// with the given one-hot action
func NewTransition(state []float64, action *mat.VecDense,
	next TimeStep) Transition {
	return Transition{
		State:     state,
		Action:    action,
		Reward:    next.Reward,
		NextState: next.Observation,
		Terminal:  next.Last(),
	}
}

// ActionIndex returns the index of the hot element of the transition's
// action vector
func (t Transition) ActionIndex() int {
	for i := 0; i < t.Action.Len(); i++ {
		if t.Action.AtVec(i) == 1.0 {
			return i
		}
	}
	return -1
}
