package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
)

// Logging is the logging configuration.
type Logging struct {
	// Disable disables logging entirely.
	Disable bool

	// File specifies the log file, if omitted stderr will be used.
	File string

	// Level specifies the log level.
	Level string

	// Format is "text" or "json".
	Format string
}

func (lCfg *Logging) validate() error {
	if lCfg.Level == "" {
		lCfg.Level = defaultLogLevel
	}
	lvl, err := logrus.ParseLevel(strings.ToLower(lCfg.Level))
	if err != nil {
		return fmt.Errorf("config: Logging: Level '%v' is invalid", lCfg.Level)
	}
	lCfg.Level = lvl.String()

	switch strings.ToLower(lCfg.Format) {
	case "":
		lCfg.Format = defaultLogFormat
	case "text", "json":
		lCfg.Format = strings.ToLower(lCfg.Format)
	default:
		return fmt.Errorf("config: Logging: Format '%v' is invalid", lCfg.Format)
	}
	return nil
}

// Apply configures the standard logrus logger. The returned closer releases
// the log file, if any.
func (lCfg *Logging) Apply() (io.Closer, error) {
	return lCfg.ApplyTo(logrus.StandardLogger())
}

// ApplyTo configures logger.
func (lCfg *Logging) ApplyTo(logger *logrus.Logger) (io.Closer, error) {
	if err := lCfg.validate(); err != nil {
		return nil, err
	}

	lvl, _ := logrus.ParseLevel(lCfg.Level)
	logger.SetLevel(lvl)

	if lCfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch {
	case lCfg.Disable:
		logger.SetOutput(io.Discard)
	case lCfg.File != "":
		f, err := os.OpenFile(lCfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("config: Logging: failed to open log file: %w", err)
		}
		logger.SetOutput(f)
		return f, nil
	default:
		logger.SetOutput(os.Stderr)
	}
	return nopCloser{}, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
