package snapshot

import (
	"path/filepath"
	"strings"
)

const dataSourceToken = "data source="

// ResolveSource turns either a plain path or a connection string such as
// "Data Source=/var/lib/app/app.db;Cache=Shared" into the database path.
func ResolveSource(input string) string {
	s := strings.TrimSpace(input)

	if i := indexFoldASCII(s, dataSourceToken); i >= 0 {
		s = s[i+len(dataSourceToken):]
		if j := strings.IndexByte(s, ';'); j >= 0 {
			s = s[:j]
		}
		s = strings.Trim(strings.TrimSpace(s), `"'`)
	}

	return s
}

// indexFoldASCII is a case-insensitive strings.Index for an ASCII token.
// Only ASCII letters are folded, so byte offsets into s stay valid whatever
// else the string holds.
func indexFoldASCII(s, token string) int {
	for i := 0; i+len(token) <= len(s); i++ {
		if equalFoldASCII(s[i:i+len(token)], token) {
			return i
		}
	}
	return -1
}

func equalFoldASCII(a, b string) bool {
	for i := 0; i < len(a); i++ {
		if lowerASCII(a[i]) != lowerASCII(b[i]) {
			return false
		}
	}
	return true
}

func lowerASCII(c byte) byte {
	if 'A' <= c && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

// BackupDir is the Backups directory next to source.
func BackupDir(source string) string {
	return filepath.Join(filepath.Dir(source), DirName)
}

// Sidecars are the lock files SQLite keeps next to a database while it is
// open in WAL mode. Their presence means the file is not safe to copy.
func Sidecars(source string) []string {
	return []string{source + "-wal", source + "-shm"}
}
