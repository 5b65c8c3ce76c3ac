// Package logging configures the logrus logging library.
package logging

import (
	"github.com/sirupsen/logrus"

	"github.com/msageha/forkbench/internal/model"
)

// Configure sets up the process-wide logrus instance from the logging section
// of the forkbench config:
//   - log line format (text [default] or json)
//   - min log level to include (debug, info [default], warn, error)
func Configure(cfg model.LoggingConfig) {
	switch cfg.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{})
	}

	switch cfg.Level {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}
