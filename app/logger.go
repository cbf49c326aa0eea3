package app

import (
	"io"
	"time"

	"github.com/rs/zerolog"

	"github.com/searchktools/mini-server/config"
)

// NewLogger builds the process logger. Development gets a console
// writer, production gets JSON lines.
func NewLogger(cfg *config.Config, w io.Writer) (zerolog.Logger, error) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zerolog.Nop(), err
	}

	out := w
	if !cfg.IsProduction() {
		out = zerolog.ConsoleWriter{Out: w, TimeFormat: time.TimeOnly}
	}
	return zerolog.New(out).
		Level(level).
		With().
		Timestamp().
		Str("env", cfg.Env).
		Logger(), nil
}
