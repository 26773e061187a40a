// Package logging configures the zerolog global logger used across the SDK.
package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets the global logger. DEV gets a console writer on w, everything
// else gets JSON lines with unix timestamps. A nil w means stderr.
func Init(level, env string, w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if strings.EqualFold(env, "DEV") {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).With().Timestamp().Logger()
		return
	}
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
}

// Silence drops everything below error, used by the CLI unless --verbose is set.
func Silence() {
	zerolog.SetGlobalLevel(zerolog.ErrorLevel)
}
