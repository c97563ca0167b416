package deepq

import (
	"fmt"

	"github.com/samuelfneumann/deepflap/initwfn"
	"github.com/samuelfneumann/deepflap/network"
	"github.com/samuelfneumann/deepflap/solver"
)

// Config implements a configuration for a DeepQ learner
type Config struct {
	Network network.Config
	Solver  *solver.Solver   // Solver for learning weights
	InitWFn *initwfn.InitWFn // Initialization algorithm for weights

	BatchSize int
	Gamma     float64

	// Double selects the Double DQN update target
	Double bool
}

// Validate checks a Config to ensure it is a valid configuration of a
// DeepQ learner.
func (c Config) Validate() error {
	if err := c.Network.Validate(); err != nil {
		return err
	}

	if c.Solver == nil {
		return fmt.Errorf("validate: no solver specified")
	}

	if c.InitWFn == nil {
		return fmt.Errorf("validate: no weight initializer specified")
	}

	if c.BatchSize < 1 {
		return fmt.Errorf("validate: batch size must be positive "+
			"\n\twant(>0) \n\thave(%v)", c.BatchSize)
	}

	if c.Gamma < 0 || c.Gamma > 1 {
		return fmt.Errorf("validate: discount factor must be in [0, 1] "+
			"\n\thave(%v)", c.Gamma)
	}

	return nil
}
