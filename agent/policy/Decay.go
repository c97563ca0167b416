package policy

import (
	"fmt"
	"math"
)

// LinearDecay is a schedule for ε which decreases linearly from Init to
// Final over a number of episodes, after which it stays at Final.
type LinearDecay struct {
	init     float64
	final    float64
	episodes int
	value    float64
}

// NewLinearDecay returns a new LinearDecay schedule
func NewLinearDecay(init, final float64, episodes int) (*LinearDecay, error) {
	if final > init {
		return nil, fmt.Errorf("newlineardecay: final value must not exceed "+
			"initial value \n\thave(init=%v, final=%v)", init, final)
	}
	if episodes < 1 {
		return nil, fmt.Errorf("newlineardecay: decay horizon must be "+
			"positive \n\thave(%v)", episodes)
	}
	return &LinearDecay{
		init:     init,
		final:    final,
		episodes: episodes,
		value:    init,
	}, nil
}

// Value returns the current value of the schedule
func (l *LinearDecay) Value() float64 {
	return l.value
}

// Step decays the schedule by one episode
func (l *LinearDecay) Step() float64 {
	decrement := (l.init - l.final) / float64(l.episodes)
	l.value = math.Max(l.value-decrement, l.final)
	return l.value
}
