// Package policy implements the action selection strategies of a DQN
// agent. Each strategy selects an action index given the action values
// predicted in the current state.
package policy

import (
	"fmt"

	"github.com/samuelfneumann/deepflap/utils/floatutils"
)

// Explorer selects an action given the action values in the current
// state
type Explorer interface {
	SelectAction(actionValues []float64) int
}

// Method names an exploration method
type Method string

const (
	EpsilonGreedy Method = "Epsilon Greedy"
	Boltzmann     Method = "Boltzmann Exploration"
)

// Validate returns an error if m is not a known exploration method
func (m Method) Validate() error {
	switch m {
	case EpsilonGreedy, Boltzmann:
		return nil
	}
	return fmt.Errorf("validate: unknown exploration method %q", string(m))
}

// Greedy always selects the action of largest value, breaking ties in
// favour of the lowest action index
type Greedy struct{}

// SelectAction implements the Explorer interface
func (Greedy) SelectAction(actionValues []float64) int {
	return floatutils.Argmax(actionValues)
}
