// Package snapshot names, parses and creates the zip snapshots kept in the
// Backups directory next to a database file.
package snapshot

import (
	"path/filepath"
	"time"
)

const (
	// DirName is the backup directory created next to the source database.
	DirName = "Backups"

	Prefix = "bk"
	Ext    = ".zip"

	// TimestampLayout is fixed width and zero padded, so file names sort
	// lexically in chronological order.
	TimestampLayout = "20060102150405"

	dayKeyLen    = 8
	timestampLen = len(TimestampLayout)
)

// Snapshot represents a single archived snapshot file.
type Snapshot struct {
	Path     string `json:"path"`
	FileName string `json:"fileName"`
	// DayKey is the yyyyMMdd part of the embedded timestamp.
	DayKey string `json:"dayKey"`
	// SortKey is the full embedded timestamp (or the day key when the name
	// carries a shorter one).
	SortKey   string    `json:"sortKey"`
	Timestamp time.Time `json:"timestamp"`
}

// FileName builds the snapshot name for sourceBase captured at t.
func FileName(sourceBase string, t time.Time) string {
	return Prefix + t.Format(TimestampLayout) + "_" + sourceBase + Ext
}

// Parse recognises a snapshot file name inside dir. Names that don't start
// with "bk", end with ".zip" and carry 8 digits right after the prefix are
// rejected: they were not written by us and must never be deleted.
func Parse(dir, name string) (Snapshot, bool) {
	if len(name) < len(Prefix)+dayKeyLen || name[:len(Prefix)] != Prefix || filepath.Ext(name) != Ext {
		return Snapshot{}, false
	}

	day := name[len(Prefix) : len(Prefix)+dayKeyLen]
	if !isDigits(day) {
		return Snapshot{}, false
	}

	s := Snapshot{
		Path:     filepath.Join(dir, name),
		FileName: name,
		DayKey:   day,
		SortKey:  day,
	}

	if end := len(Prefix) + timestampLen; len(name) >= end && isDigits(name[len(Prefix):end]) {
		s.SortKey = name[len(Prefix):end]
		if t, err := time.ParseInLocation(TimestampLayout, s.SortKey, time.Local); err == nil {
			s.Timestamp = t
		}
	}

	return s, true
}

func isDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
