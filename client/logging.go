package client

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	if level, err := logrus.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		l.SetLevel(level)
	} else {
		l.SetLevel(logrus.InfoLevel)
	}
	return l
}

// SetLogger replaces the logger used by the client, e.g. to redirect logs to a
// platform-specific handler.
func SetLogger(l *logrus.Logger) {
	if l != nil {
		log = l
	}
}

// Log returns the logger used by the client, so that services can log consistently with
// it.
func Log() *logrus.Logger {
	return log
}
