// Package logging builds the logrus loggers shared by every binary.
package logging

import (
	"io"
	"strings"

	log "github.com/sirupsen/logrus"
)

// New returns a logger writing to out. Unknown levels fall back to info and
// any format other than "json" yields text output.
func New(level, format string, out io.Writer) *log.Logger {
	logger := log.New()
	logger.SetOutput(out)

	lvl, err := log.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = log.InfoLevel
	}
	logger.SetLevel(lvl)

	if strings.EqualFold(format, "json") {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return logger
}

// Component returns an entry tagged with the component name.
func Component(logger *log.Logger, name string) *log.Entry {
	return logger.WithField("component", name)
}
