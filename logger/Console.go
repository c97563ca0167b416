package logger

import "github.com/aunum/log"

// Console prints messages to the terminal
type Console struct{}

func (Console) Notify(level Level, msg string) {
	switch level {
	case Debug:
		log.Debugf("%s", msg)
	case Info:
		log.Infof("%s", msg)
	case Success:
		log.Successf("%s", msg)
	case Error:
		log.Errorf("%s", msg)
	}
}
