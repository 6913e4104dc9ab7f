// Package logging provides the structured logger shared by every gamebus
// process (broker, client runtime, supervisors).
package logging

import (
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Log is the process-wide base logger. Component constructors derive a
// tagged child from it with For.
var Log zerolog.Logger

func init() {
	Log = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).With().Timestamp().Logger()
}

// Initialize reconfigures the global logger's level and output format.
// pretty selects the human-readable console writer; otherwise JSON lines
// are written to stderr, suitable for production log collection.
func Initialize(level string, pretty bool) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if pretty {
		Log = zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
		return
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	Log = zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// For returns a logger tagged with the given component name, e.g.
// logging.For("broker") or logging.For("supervisor.valheim").
func For(component string) zerolog.Logger {
	return Log.With().Str("component", component).Logger()
}
