// Package expreplay implements the replay memory of a DQN agent
package expreplay

import (
	"fmt"

	"github.com/samuelfneumann/deepflap/timestep"
)

// Config implements a specific configuration of an ExperienceReplayer
type Config struct {
	MaxReplayCapacity int
	BatchSize         int
}

// Create creates and returns the ExperienceReplayer with the specified
// Config.
func (c Config) Create(featureSize, actionSize int,
	seed uint64) (ExperienceReplayer, error) {
	return New(c.MaxReplayCapacity, c.BatchSize, featureSize, actionSize,
		seed)
}

// Validate returns an error if the Config is invalid
func (c Config) Validate() error {
	if c.MaxReplayCapacity < 1 {
		return fmt.Errorf("validate: max replay capacity must be positive "+
			"\n\thave(%v)", c.MaxReplayCapacity)
	}
	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be positive "+
			"\n\thave(%v)", c.BatchSize)
	}
	return nil
}

// Batch is a minibatch of transitions sampled from a replay buffer.
// States, Actions, and NextStates are flattened row-major, one row per
// transition.
type Batch struct {
	States     []float64
	Actions    []float64
	Rewards    []float64
	NextStates []float64
	Terminals  []bool
}

// Size returns the number of transitions in the batch
func (b Batch) Size() int {
	return len(b.Rewards)
}

// ExperienceReplayer implements an experience replay buffer
type ExperienceReplayer interface {
	// Add adds a transition to the buffer, evicting the oldest
	// transition if the buffer is full
	Add(t timestep.Transition) error

	// Sample draws BatchSize() distinct transitions uniformly at
	// random from the buffer
	Sample() (Batch, error)

	// SampleN draws n distinct transitions uniformly at random from
	// the buffer
	SampleN(n int) (Batch, error)

	// Len returns the current number of transitions in the buffer
	Len() int

	// Capacity returns the maximum allowable transitions in the buffer
	Capacity() int

	// BatchSize returns the number of transitions returned by Sample()
	BatchSize() int

	// Transitions returns the stored transitions, oldest first
	Transitions() []timestep.Transition
}
