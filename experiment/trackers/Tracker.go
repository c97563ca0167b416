// Package trackers implements Trackers, which track and save
// per-episode data of a training run
package trackers

import (
	"encoding/gob"
	"os"

	"github.com/pkg/errors"
)

// Summary summarizes a finished training episode
type Summary struct {
	Episode  int
	Epsilon  float64
	TimeStep int     // Number of steps survived in the episode
	Return   float64 // Discounted return of the episode
	Loss     float64 // Mean loss over the learning steps of the episode
}

// Tracker keeps track of episode data and saves the data to disk
type Tracker interface {
	Track(s Summary)
	Save() error
}

// save gob-encodes data to filename
func save(filename string, data []float64) error {
	file, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "save: could not open save file")
	}
	defer file.Close()

	if err := gob.NewEncoder(file).Encode(data); err != nil {
		return errors.Wrap(err, "save: could not encode data")
	}
	return nil
}

// LoadData loads and returns the data saved by a Tracker
func LoadData(filename string) ([]float64, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "loaddata: could not open data file")
	}
	defer file.Close()

	var data []float64
	if err := gob.NewDecoder(file).Decode(&data); err != nil {
		return nil, errors.Wrap(err, "loaddata: could not decode data")
	}
	return data, nil
}
