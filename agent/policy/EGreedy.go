package policy

import (
	"golang.org/x/exp/rand"

	"github.com/samuelfneumann/deepflap/utils/floatutils"
	"gonum.org/v1/gonum/stat/distuv"
)

// EGreedy implements an ε-greedy policy: with probability ε a uniformly
// random action is selected, otherwise the greedy action is selected.
type EGreedy struct {
	epsilon float64
	seed    rand.Source // Seed for random number generation
}

// NewEGreedy returns a new EGreedy policy with exploration rate e
func NewEGreedy(e float64, seed uint64) *EGreedy {
	return &EGreedy{
		epsilon: floatutils.Clip(e, 0, 1),
		seed:    rand.NewSource(seed),
	}
}

// SetEpsilon sets the value for epsilon in the epsilon greedy policy.
func (p *EGreedy) SetEpsilon(ε float64) {
	p.epsilon = floatutils.Clip(ε, 0, 1)
}

// Epsilon gets the value of epsilon for the policy.
func (p *EGreedy) Epsilon() float64 {
	return p.epsilon
}

// SelectAction selects and action from an ε-greedy policy
func (p *EGreedy) SelectAction(actionValues []float64) int {
	numActions := len(actionValues)
	greedyAction := floatutils.Argmax(actionValues)

	// Calculate the ε probability of choosing any action at random
	prob := p.epsilon / float64(numActions)
	actionProbabilites := make([]float64, numActions)
	for i := 0; i < numActions; i++ {
		actionProbabilites[i] = prob
	}

	// Adjust the probability of choosing the greedy action
	actionProbabilites[greedyAction] += (1.0 - p.epsilon)

	dist := distuv.NewCategorical(actionProbabilites, p.seed)
	return int(dist.Rand())
}
