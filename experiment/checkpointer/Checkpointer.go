// Package checkpointer implements the persistence of trained networks
// and the policy deciding when a network should be persisted.
package checkpointer

import (
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/samuelfneumann/deepflap/network"
)

const (
	// TimeStepKey names the fitness of a checkpoint
	TimeStepKey = "time_step"

	// LegacyTimeStepKey names the fitness of a checkpoint written by
	// older builds
	LegacyTimeStepKey = "best_time_step"

	// BestFilename is the name of the root-level copy of the best
	// checkpoint of a run
	BestFilename = "model_best.bin"
)

// Record is the data saved in a checkpoint
type Record struct {
	Episode   int
	Epsilon   float64
	StateDict network.StateDict
	Structure network.Structure

	// Scores holds the fitness of the checkpointed network under
	// TimeStepKey, or under LegacyTimeStepKey for old checkpoints.
	Scores map[string]float64
}

// NewRecord returns a new Record with fitness timeStep
func NewRecord(episode int, epsilon float64, sd network.StateDict,
	structure network.Structure, timeStep float64) Record {
	return Record{
		Episode:   episode,
		Epsilon:   epsilon,
		StateDict: sd,
		Structure: structure,
		Scores:    map[string]float64{TimeStepKey: timeStep},
	}
}

// Fitness returns the fitness of the checkpointed network, preferring
// TimeStepKey over LegacyTimeStepKey. An error is returned if neither
// is present.
func (r Record) Fitness() (float64, error) {
	if v, ok := r.Scores[TimeStepKey]; ok {
		return v, nil
	}
	if v, ok := r.Scores[LegacyTimeStepKey]; ok {
		return v, nil
	}
	return 0, fmt.Errorf("fitness: checkpoint has neither %q nor %q",
		TimeStepKey, LegacyTimeStepKey)
}

// LoadError is returned when a checkpoint cannot be loaded
type LoadError struct {
	Path     string
	NotFound bool
	Err      error
}

func (l *LoadError) Error() string {
	if l.NotFound {
		return fmt.Sprintf("load %v: checkpoint not found: %v", l.Path, l.Err)
	}
	return fmt.Sprintf("load %v: %v", l.Path, l.Err)
}

func (l *LoadError) Unwrap() error {
	return l.Err
}

// Save saves record as a gzip-compressed gob to the file name in the
// directory dir and returns the path to the file
func Save(record Record, name, dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", errors.Wrap(err, "save")
	}
	path := filepath.Join(dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "save")
	}
	defer file.Close()

	zw := gzip.NewWriter(file)
	if err := gob.NewEncoder(zw).Encode(record); err != nil {
		return "", errors.Wrap(err, "save: could not encode checkpoint")
	}
	if err := zw.Close(); err != nil {
		return "", errors.Wrap(err, "save")
	}
	return path, file.Sync()
}

// Load loads a checkpoint from path. Checkpoints which are not
// gzip-compressed are loaded as raw gobs on a second attempt.
func Load(path string) (Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return Record{}, &LoadError{
			Path:     path,
			NotFound: os.IsNotExist(err),
			Err:      err,
		}
	}
	defer file.Close()

	record, err := decodeCompressed(file)
	if err == nil {
		return record, nil
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return Record{}, &LoadError{Path: path, Err: err}
	}
	record, rawErr := decodeRaw(file)
	if rawErr != nil {
		return Record{}, &LoadError{
			Path: path,
			Err:  fmt.Errorf("%v; raw format: %v", err, rawErr),
		}
	}
	return record, nil
}

func decodeCompressed(r io.Reader) (Record, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return Record{}, err
	}
	defer zr.Close()
	return decodeRaw(zr)
}

func decodeRaw(r io.Reader) (Record, error) {
	var record Record
	if err := gob.NewDecoder(r).Decode(&record); err != nil {
		return Record{}, err
	}
	return record, nil
}

// CopyFile copies the file at src to dst
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return errors.Wrap(err, "copyfile")
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return errors.Wrap(err, "copyfile")
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return errors.Wrap(err, "copyfile")
	}
	return out.Sync()
}
