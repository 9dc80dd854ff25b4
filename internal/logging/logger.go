// Package logging hands out component loggers that write to stderr.
package logging

import (
	"io"
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	loggers   = make(map[string]*logrus.Entry)
	loggersMu sync.Mutex

	level  = logrus.InfoLevel
	output io.Writer = os.Stderr
)

// SetLevel sets the level for existing and future loggers. CSA_LOG_LEVEL
// takes precedence over the value passed in.
func SetLevel(levelStr string) {
	if env := os.Getenv("CSA_LOG_LEVEL"); env != "" {
		levelStr = env
	}
	lvl, err := logrus.ParseLevel(levelStr)
	if err != nil {
		lvl = logrus.InfoLevel
	}

	loggersMu.Lock()
	defer loggersMu.Unlock()
	level = lvl
	for _, l := range loggers {
		l.Logger.SetLevel(lvl)
	}
}

// SetOutput redirects existing and future loggers.
func SetOutput(w io.Writer) {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	output = w
	for _, l := range loggers {
		l.Logger.SetOutput(w)
	}
}

// NewLogger returns the logger for a component, creating it on first use.
func NewLogger(component string) *logrus.Entry {
	loggersMu.Lock()
	defer loggersMu.Unlock()

	if logger, exists := loggers[component]; exists {
		return logger
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetOutput(output)
	logger.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: true,
	})

	entry := logger.WithField("component", component)
	loggers[component] = entry
	return entry
}
