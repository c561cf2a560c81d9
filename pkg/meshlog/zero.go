package meshlog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

var Zero = NewZeroLogger("")

// NewZeroLogger creates a console zerolog logger. If filepath is non-empty,
// log events are written to that file instead of stdout.
func NewZeroLogger(filepath string) *zerolog.Logger {
	var out io.Writer = os.Stdout
	if filepath != "" {
		if f, err := os.OpenFile(filepath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
			out = f
		}
	}

	output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	return &logger
}

func UpdateZeroLogLevel(logLevel string) error {
	level := parseLevel(logLevel)
	zeroLogger := Zero.With().Logger().Level(level)
	Zero = &zeroLogger
	return nil
}

func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
