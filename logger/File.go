package logger

import (
	"log"
	"os"

	"github.com/pkg/errors"
)

// File appends timestamped messages to a log file
type File struct {
	file   *os.File
	logger *log.Logger
}

// NewFile returns a new File observer appending to the file at path.
// The file is created if it does not exist.
func NewFile(path string) (*File, error) {
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY,
		0644)
	if err != nil {
		return nil, errors.Wrap(err, "newfile")
	}
	return &File{
		file:   file,
		logger: log.New(file, "", log.LstdFlags),
	}, nil
}

func (f *File) Notify(level Level, msg string) {
	f.logger.Printf("[%v] %v", level, msg)
}

// Close closes the log file
func (f *File) Close() error {
	return f.file.Close()
}
