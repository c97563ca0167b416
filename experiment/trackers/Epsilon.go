package trackers

// Epsilon tracks the exploration rate used in each episode
type Epsilon struct {
	epsilons []float64
	filename string
}

func NewEpsilon(filename string) *Epsilon {
	return &Epsilon{filename: filename}
}

func (e *Epsilon) Track(s Summary) {
	e.epsilons = append(e.epsilons, s.Epsilon)
}

// Data returns the tracked epsilons, one per episode
func (e *Epsilon) Data() []float64 {
	return append([]float64(nil), e.epsilons...)
}

func (e *Epsilon) Save() error {
	return save(e.filename, e.epsilons)
}
