// Package logging sets up structured logging for audioprobe.
//
// Records go to stdout as text or JSON. Verbose mode lowers the level to
// debug, which is where per-format probe details and line events are logged.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// Config represents logging configuration.
type Config struct {
	Verbose bool
	// Format is "text" or "json".
	Format string
}

// Level returns the minimum level enabled by c.
func (c Config) Level() slog.Level {
	if c.Verbose {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Initialize builds the stdout logger for c and installs it as the slog
// default.
func Initialize(c Config) *slog.Logger {
	logger := New(os.Stdout, c)
	slog.SetDefault(logger)
	return logger
}

// New returns a logger writing to w.
func New(w io.Writer, c Config) *slog.Logger {
	level := &slog.LevelVar{}
	level.Set(c.Level())
	return slog.New(createHandler(w, c.Format, level))
}

// GetLogger returns the default logger tagged with module.
func GetLogger(module string) *slog.Logger {
	return slog.Default().With("module", module)
}

func createHandler(w io.Writer, format string, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
