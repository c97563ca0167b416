package policy

import (
	"fmt"

	"golang.org/x/exp/rand"
)

// Flap and NoFlap are the action indices of the game
const (
	NoFlap = 0
	Flap   = 1
)

// DefaultFlapProbability is the probability of flapping used to fill
// the replay buffer before training begins
const DefaultFlapProbability = 0.2

// FixedProbability selects the flap action with a fixed probability,
// independent of the action values. It is used to populate the replay
// buffer before learning begins.
type FixedProbability struct {
	p   float64
	rng *rand.Rand
}

// NewFixedProbability returns a new FixedProbability policy which flaps
// with probability p
func NewFixedProbability(p float64, seed uint64) (*FixedProbability, error) {
	if p < 0 || p > 1 {
		return nil, fmt.Errorf("newfixedprobability: probability must be "+
			"in [0, 1] \n\thave(%v)", p)
	}
	return &FixedProbability{p: p, rng: rand.New(rand.NewSource(seed))}, nil
}

// SelectAction implements the Explorer interface. The action values
// are ignored and may be nil.
func (f *FixedProbability) SelectAction([]float64) int {
	if f.rng.Float64() < f.p {
		return Flap
	}
	return NoFlap
}
