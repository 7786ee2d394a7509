// Package logging configures the global zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init sets up log.Logger for env. Development gets a console writer on
// stderr, everything else JSON. level is a zerolog level name and falls
// back to info when empty or unknown.
func Init(env, level string) {
	InitWriter(env, level, os.Stderr)
}

// InitWriter is Init with an explicit output.
func InitWriter(env, level string, w io.Writer) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if IsDevelopment(env) {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	}

	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// IsDevelopment reports whether env names a development environment.
func IsDevelopment(env string) bool {
	switch strings.ToLower(env) {
	case "", "dev", "development", "local":
		return true
	}
	return false
}
