package network

import "fmt"

// Structure tags the architecture of a Q-network so that saved
// weights can be matched with the network they belong to.
type Structure string

const (
	// Normal networks predict action values with a single output layer
	Normal Structure = "NORMAL"

	// Dueling networks predict a state value and action advantages
	// which are combined into action values
	Dueling Structure = "DUELING"
)

// Validate returns an error if s is not a known Structure
func (s Structure) Validate() error {
	switch s {
	case Normal, Dueling:
		return nil
	}
	return fmt.Errorf("validate: unknown network structure %q", string(s))
}
