package expreplay

import "github.com/pkg/errors"

// ExpReplayError implements errors unique to an experience replay
// buffer.
type ExpReplayError struct {
	Op  string
	Err error
}

// Error satisifes the error interface
func (e *ExpReplayError) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *ExpReplayError) Unwrap() error {
	return e.Err
}

// ErrInsufficientData is reported when a sample is requested that is
// larger than the number of transitions stored in the buffer
var ErrInsufficientData = errors.New("insufficient data in buffer")

// IsInsufficientData returns whether or not an error reports that
// there are too few transitions in the buffer to draw a sample.
func IsInsufficientData(err error) bool {
	if replayErr, ok := errors.Cause(err).(*ExpReplayError); ok {
		err = replayErr.Err
	}
	return err == ErrInsufficientData
}
