// Package logging provides the operational logger used across dbkeeper.
//
// It is separate from the audit log: this one is for operators running the
// daemon, the audit log is the file kept next to the database.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is the structured logger interface components depend on.
// *slog.Logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config selects level, format and destination.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // text, json
	Writer io.Writer
}

// New builds a slog logger from cfg.
func New(cfg Config) (*slog.Logger, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	switch strings.ToLower(cfg.Format) {
	case "", "text":
		h = slog.NewTextHandler(w, opts)
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	return slog.New(h), nil
}

// ParseLevel maps a config string to a slog level. Empty means info.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
	}
}

// Component tags l with a component name when l supports it.
func Component(l Logger, name string) Logger {
	if sl, ok := l.(*slog.Logger); ok {
		return sl.With("component", name)
	}
	return l
}

// Nop discards everything.
func Nop() Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
