// Package logger builds the process-wide zerolog logger.
package logger

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger on stderr at the given level. Unknown level
// strings fall back to info.
func New(level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	var out zerolog.Logger
	if pretty {
		out = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	} else {
		out = zerolog.New(os.Stderr)
	}
	return out.Level(lvl).With().Timestamp().Logger()
}
