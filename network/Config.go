package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Config describes the architecture of a Q-network
type Config struct {
	HiddenSizes []int
	Biases      []bool
	Activations []*Activation
	Structure   Structure
}

// NewConfig returns a Config for a network with ReLU hidden layers of
// the given sizes, each with a bias unit
func NewConfig(structure Structure, hiddenSizes ...int) Config {
	biases := make([]bool, len(hiddenSizes))
	activations := make([]*Activation, len(hiddenSizes))
	for i := range hiddenSizes {
		biases[i] = true
		activations[i] = ReLU()
	}
	return Config{
		HiddenSizes: hiddenSizes,
		Biases:      biases,
		Activations: activations,
		Structure:   structure,
	}
}

// Validate returns an error if the Config is invalid
func (c Config) Validate() error {
	if err := c.Structure.Validate(); err != nil {
		return err
	}
	if len(c.HiddenSizes) != len(c.Biases) {
		return fmt.Errorf("validate: invalid number of biases\n\twant(%v)"+
			"\n\thave(%v)", len(c.HiddenSizes), len(c.Biases))
	}
	if len(c.HiddenSizes) != len(c.Activations) {
		return fmt.Errorf("validate: invalid number of activations"+
			"\n\twant(%v)\n\thave(%v)", len(c.HiddenSizes),
			len(c.Activations))
	}
	return nil
}

// Create returns a new network described by the Config in graph g
func (c Config) Create(features, batch, outputs int, g *G.ExprGraph,
	init G.InitWFn) (NeuralNet, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("create: %v", err)
	}

	switch c.Structure {
	case Dueling:
		return NewDuelingMLP(features, batch, outputs, g, c.HiddenSizes,
			c.Biases, init, c.Activations)
	default:
		return NewMultiHeadMLP(features, batch, outputs, g, c.HiddenSizes,
			c.Biases, init, c.Activations)
	}
}
