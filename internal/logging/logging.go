// Package logging builds the zerolog logger shared by every binary.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a timestamped logger on stderr. Pretty selects the console
// writer, otherwise lines are JSON. An unknown level means info.
func New(level string, pretty bool) zerolog.Logger {
	return NewWithWriter(os.Stderr, level, pretty)
}

// NewWithWriter is New with an explicit destination.
func NewWithWriter(w io.Writer, level string, pretty bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
