// Package logger provides opinionated logging capabilities for the spool system
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// config holds the resolved logger settings built up by Options.
type config struct {
	level   slog.Level
	pretty  bool
	json    bool
	source  bool
	writers []io.Writer
}

// New creates a *slog.Logger configured by the given options.
//
// The default is a plain text handler on stdout at Info level. WithPretty
// selects the charmbracelet handler for colorized CLI output; WithJSON
// selects the JSON handler for machine-readable logs (e.g. a log file next
// to the trace output).
func New(opts ...Option) *slog.Logger {
	cfg := &config{
		level:   slog.LevelInfo,
		writers: []io.Writer{os.Stdout},
	}

	for _, opt := range opts {
		opt(cfg)
	}

	var w io.Writer
	if len(cfg.writers) == 1 {
		w = cfg.writers[0]
	} else {
		w = io.MultiWriter(cfg.writers...)
	}

	var handler slog.Handler
	switch {
	case cfg.pretty:
		handler = charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.Level(cfg.level),
			ReportCaller:    cfg.source,
			ReportTimestamp: true,
		})

	case cfg.json:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:     cfg.level,
			AddSource: cfg.source,
		})

	default:
		handler = slog.NewTextHandler(w, &slog.HandlerOptions{
			Level:     cfg.level,
			AddSource: cfg.source,
		})
	}

	return slog.New(handler)
}

// Nop returns a *slog.Logger that discards everything. Useful as a default
// for library code whose callers did not supply a logger.
func Nop() *slog.Logger {
	return slog.New(nopHandler{})
}

// nopHandler is a slog.Handler that is disabled at every level.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }
