// Package audit appends backup events to the plain text log that lives
// next to the database file.
//
// The log is best effort: a failed append falls back to a diagnostic on
// stderr and is never reported to the caller.
package audit

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// FileName is the audit log file created next to the source database.
const FileName = "backup_log.txt"

const timeLayout = "2006-01-02 15:04:05"

// Level is the severity tag written between brackets.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Logger is what the backup and cleanup operations write to.
type Logger interface {
	Log(sourcePath string, level Level, message string)
}

// Sink writes one line per call to <dir-of-source>/backup_log.txt.
type Sink struct {
	mu       sync.Mutex
	now      func() time.Time
	fallback io.Writer
}

// Option customizes a Sink.
type Option func(*Sink)

// WithClock sets the time source used for line timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Sink) { s.now = now }
}

// WithFallback sets where diagnostics go when the log file can't be written.
func WithFallback(w io.Writer) Option {
	return func(s *Sink) { s.fallback = w }
}

// New creates a Sink that timestamps with the local clock and falls back to stderr.
func New(opts ...Option) *Sink {
	s := &Sink{
		now:      time.Now,
		fallback: os.Stderr,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Path returns the audit log location for a source database path.
func Path(sourcePath string) string {
	return filepath.Join(filepath.Dir(sourcePath), FileName)
}

// Format renders a single log line including the trailing newline.
func Format(t time.Time, level Level, message string) string {
	return t.Format(timeLayout) + " [" + string(level) + "] " + message + "\n"
}

// Log appends a line to the audit log of sourcePath. It never fails.
func (s *Sink) Log(sourcePath string, level Level, message string) {
	line := Format(s.now(), level, message)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := appendLine(Path(sourcePath), line); err != nil {
		// the fallback is the last resort, its own error has nowhere to go
		_, _ = fmt.Fprintf(s.fallback, "audit: failed to write log (%v): [%s] %s\n", err, level, message)
	}
}

func appendLine(path, line string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(f, line); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
