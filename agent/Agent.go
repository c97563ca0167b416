// Package agent defines the interfaces between a value-based agent and
// the loops that train and evaluate it.
package agent

import (
	"github.com/samuelfneumann/deepflap/expreplay"
	"github.com/samuelfneumann/deepflap/network"
)

// QFunction predicts the value of each action in a state
type QFunction interface {
	// ActionValues returns the predicted value of each action in state
	ActionValues(state []float64) ([]float64, error)

	// NumActions returns the number of actions valued
	NumActions() int
}

// Learner implements a learning algorithm that defines how weights are
// updated.
type Learner interface {
	QFunction

	// Learn performs a single gradient step on a batch of transitions
	// and returns the loss on the batch before the step
	Learn(batch expreplay.Batch) (float64, error)

	// SyncTarget copies the learned weights into the target network
	SyncTarget() error

	// BatchSize returns the number of transitions per gradient step
	BatchSize() int
}

// Checkpointable is a Learner whose weights can be saved and restored
type Checkpointable interface {
	Learner
	StateDict() (network.StateDict, error)
	LoadStateDict(network.StateDict) error
	Structure() network.Structure
}

// A Closer is an agent that must be closed after it is done learning
type Closer interface {
	Close() error
}
