package logging

import (
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New builds the root logger shared by both binaries. Console output is for
// a terminal next to the register; JSON otherwise.
func New(component, level string, console bool) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	if console {
		return zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.Kitchen,
		}).Level(lvl).With().Timestamp().Str("component", component).Logger()
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Str("component", component).Logger()
}
