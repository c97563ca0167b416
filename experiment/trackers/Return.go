package trackers

// Return tracks and saves the discounted return of each episode in a
// training run.
//
// Note: an episode must finish for this Tracker to save its data.
// If the last episode of a run does not finish, its return will not
// be saved.
type Return struct {
	episodeReturns []float64
	filename       string
}

// NewReturn creates and returns a new *Return Tracker
func NewReturn(filename string) *Return {
	return &Return{filename: filename}
}

// Track caches the return of the summarized episode
func (r *Return) Track(s Summary) {
	r.episodeReturns = append(r.episodeReturns, s.Return)
}

// Save saves the tracked returns to disk
func (r *Return) Save() error {
	return save(r.filename, r.episodeReturns)
}
