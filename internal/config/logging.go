package config

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger builds the process logger. Level and format fall back to
// environment-appropriate defaults: human-readable console output in
// development, JSON everywhere else. It also replaces the global
// zerolog logger so package-level log calls share the same sink.
func NewLogger(cfg LoggingConfig, environment string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339Nano
	dev := environment == "development" || environment == "test"

	logger := zerolog.New(logOutput(cfg.Format, dev)).
		Level(logLevel(cfg.Level, dev)).
		With().Timestamp().Str("env", environment).Logger()
	log.Logger = logger
	return logger
}

func logLevel(raw string, dev bool) zerolog.Level {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil || level == zerolog.NoLevel {
		if dev {
			return zerolog.DebugLevel
		}
		return zerolog.InfoLevel
	}
	return level
}

func logOutput(format string, dev bool) io.Writer {
	console := strings.EqualFold(format, "console") || (format == "" && dev)
	if console {
		return zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
	}
	return os.Stdout
}
