// Package logger implements an observer-style notification channel.
// Messages are emitted to a Subject, which forwards them to every
// Observer registered for the message's Level.
package logger

import (
	"fmt"
	"strings"
)

// Level is the severity of a message
type Level int

const (
	Debug Level = iota
	Info
	Success
	Error
)

// Levels lists every Level, ordered by severity
var Levels = []Level{Debug, Info, Success, Error}

func (l Level) String() string {
	switch l {
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Success:
		return "SUCCESS"
	case Error:
		return "ERROR"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// ParseLevel returns the Level named s
func ParseLevel(s string) (Level, error) {
	for _, l := range Levels {
		if strings.EqualFold(s, l.String()) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("parselevel: no such level %q", s)
}

// AtLeast returns all levels at least as severe as l
func AtLeast(l Level) []Level {
	var levels []Level
	for _, level := range Levels {
		if level >= l {
			levels = append(levels, level)
		}
	}
	return levels
}

// Observer receives emitted messages
type Observer interface {
	Notify(level Level, msg string)
}

// Subject forwards emitted messages to its registered observers. The
// zero value is a Subject with no observers, which drops every message.
type Subject struct {
	observers map[Level][]Observer
}

// New returns a new Subject with no observers
func New() *Subject {
	return &Subject{observers: make(map[Level][]Observer)}
}

// Register registers o to be notified of messages at the given levels.
// If no levels are given, o is notified of messages at all levels.
func (s *Subject) Register(o Observer, levels ...Level) {
	if s.observers == nil {
		s.observers = make(map[Level][]Observer)
	}
	if len(levels) == 0 {
		levels = Levels
	}
	for _, l := range levels {
		s.observers[l] = append(s.observers[l], o)
	}
}

// Emit sends msg to all observers registered for level
func (s *Subject) Emit(level Level, msg string) {
	if s == nil {
		return
	}
	for _, o := range s.observers[level] {
		o.Notify(level, msg)
	}
}

// Emitf formats and emits a message
func (s *Subject) Emitf(level Level, format string, a ...interface{}) {
	s.Emit(level, fmt.Sprintf(format, a...))
}
