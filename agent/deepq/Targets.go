package deepq

import "github.com/samuelfneumann/deepflap/utils/floatutils"

// Targets returns the update targets of a batch of transitions.
// nextTarget holds the target network's action values in each next
// state, one row of numActions values per transition.
//
// If nextOnline is nil, the vanilla DQN target
//
//	r + γ max_a Qt(s', a)
//
// is returned. Otherwise nextOnline holds the learned network's action
// values in each next state and the Double DQN target
//
//	r + γ Qt(s', argmax_a Q(s', a))
//
// is returned. The target of a terminal transition is its reward.
func Targets(rewards []float64, terminals []bool, nextTarget,
	nextOnline []float64, numActions int, gamma float64) []float64 {
	targets := make([]float64, len(rewards))

	for i, r := range rewards {
		targets[i] = r
		if terminals[i] {
			continue
		}

		row := nextTarget[i*numActions : (i+1)*numActions]
		var bootstrap float64
		if nextOnline == nil {
			bootstrap, _ = floatutils.MaxSlice(row)
		} else {
			onlineRow := nextOnline[i*numActions : (i+1)*numActions]
			bootstrap = row[floatutils.Argmax(onlineRow)]
		}
		targets[i] += gamma * bootstrap
	}
	return targets
}
