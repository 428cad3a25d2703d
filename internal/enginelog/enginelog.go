// Package enginelog provides the engine's process-wide structured logger.
package enginelog

import (
	"os"

	"github.com/rs/zerolog"
)

// New returns a timestamped zerolog logger writing to stderr, the engine's
// only sink since it runs embedded in the host shell process.
func New() zerolog.Logger {
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

// Component returns a child logger tagged with the given component name,
// used to disambiguate log lines from coordinator/parser/reader/etc.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}
