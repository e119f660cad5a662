package gpuvision

import (
	"io"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var loggerPtr atomic.Pointer[logrus.Logger]

func init() {
	loggerPtr.Store(newNopLogger())
}

// newNopLogger returns a logger that discards everything.
func newNopLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

// SetLogger configures the logger used by gpuvision. By default the package
// is silent. Passing nil restores the silent logger.
//
// Levels used:
//   - Debug: kernel rebuilds and scratch buffer allocation
//   - Info: execution mode selection and pipeline lifecycle
//   - Warn: acceleration disabled by environment
func SetLogger(l *logrus.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	loggerPtr.Store(l)
}

// Logger returns the current package logger.
func Logger() *logrus.Logger {
	return loggerPtr.Load()
}
