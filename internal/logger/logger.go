package logger

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

var log = newBase()

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	l.SetLevel(logrus.InfoLevel)
	if enabled, _ := strconv.ParseBool(os.Getenv("DEBUG")); enabled {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// SetDebug switches debug output on or off after configuration is loaded.
func SetDebug(enabled bool) {
	if enabled {
		log.SetLevel(logrus.DebugLevel)
		return
	}
	log.SetLevel(logrus.InfoLevel)
}

// DebugEnabled reports whether debug output is on.
func DebugEnabled() bool {
	return log.IsLevelEnabled(logrus.DebugLevel)
}

func DebugLog(format string, args ...any) {
	log.Debugf(format, args...)
}

// WithComponent returns an entry tagged with the emitting component.
func WithComponent(name string) *logrus.Entry {
	return log.WithField("component", name)
}
