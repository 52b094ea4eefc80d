// Package logging builds the process-wide logrus logger.
package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/wild-pasta-booking/internal/config"
)

// New returns a logger configured from cfg.  Unknown levels fall back to info.
func New(cfg config.LogConfig) *logrus.Logger {
	return NewWithOutput(cfg, os.Stdout)
}

// NewWithOutput is New with an explicit writer.
func NewWithOutput(cfg config.LogConfig, out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	if cfg.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}

// Discard returns a logger that drops everything.  Tests use it.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
