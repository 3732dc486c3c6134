package config

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger builds the process logger: readable console output in
// development, JSON otherwise. It also replaces the global zerolog logger.
func NewLogger(cfg *Config) zerolog.Logger {
	var w io.Writer = os.Stdout
	if !cfg.IsProduction() {
		w = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}

	zl := zerolog.New(w).Level(parseLevel(cfg.LogLevel)).With().Timestamp().Logger()
	log.Logger = zl
	return zl
}

func parseLevel(s string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(s)
	if err != nil || s == "" {
		return zerolog.InfoLevel
	}
	return lvl
}
