package trackers

// EpisodeLength tracks and saves the number of steps survived in each
// episode of a training run
type EpisodeLength struct {
	episodeLengths []float64
	filename       string
}

// NewEpisodeLength returns a new EpisodeLength tracker which will save
// its data at the specified location filename
func NewEpisodeLength(filename string) *EpisodeLength {
	return &EpisodeLength{filename: filename}
}

// Track caches the length of the summarized episode
func (e *EpisodeLength) Track(s Summary) {
	e.episodeLengths = append(e.episodeLengths, float64(s.TimeStep))
}

// Save saves the tracked episode lengths to disk
func (e *EpisodeLength) Save() error {
	return save(e.filename, e.episodeLengths)
}
