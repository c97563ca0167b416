package policy

import (
	"fmt"

	"golang.org/x/exp/rand"

	"github.com/samuelfneumann/deepflap/utils/floatutils"
	"gonum.org/v1/gonum/stat/distuv"
)

// Softmax implements Boltzmann exploration: actions are sampled from
// the softmax of the action values divided by a temperature. Larger
// temperatures select actions more uniformly.
type Softmax struct {
	temperature float64
	seed        rand.Source
}

// NewSoftmax returns a new Softmax policy
func NewSoftmax(temperature float64, seed uint64) (*Softmax, error) {
	if temperature <= 0 {
		return nil, fmt.Errorf("newsoftmax: temperature must be positive "+
			"\n\thave(%v)", temperature)
	}
	return &Softmax{temperature: temperature, seed: rand.NewSource(seed)}, nil
}

// Temperature returns the temperature of the policy
func (s *Softmax) Temperature() float64 {
	return s.temperature
}

// Probabilities returns the probability of selecting each action
func (s *Softmax) Probabilities(actionValues []float64) []float64 {
	return floatutils.Softmax(actionValues, s.temperature)
}

// SelectAction implements the Explorer interface
func (s *Softmax) SelectAction(actionValues []float64) int {
	dist := distuv.NewCategorical(s.Probabilities(actionValues), s.seed)
	return int(dist.Rand())
}
