package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init routes the global logger to a console writer on stderr.
func Init(verbose bool) {
	InitWriter(os.Stderr, verbose)
}

// InitWriter routes the global logger to a console writer on w.
func InitWriter(w io.Writer, verbose bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen})
}

// Skipped logs an item left out of a run, keeping the run going.
func Skipped(err error, kind, name string) {
	log.Warn().Err(err).Bool("skipped", true).Str(kind, name).Msgf("skipped %s", kind)
}
