package snapshot

import (
	"path/filepath"
	"time"

	"github.com/raoulx24/dbkeeper/internal/fs"
)

// Artifact describes the database file stored inside a snapshot archive.
type Artifact struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// FromFileInfo constructs an Artifact from the stat of the source file.
// The entry name is the base name only, never the full path.
func FromFileInfo(info fs.FileInfo) Artifact {
	return Artifact{
		Name:    filepath.Base(info.Path),
		ModTime: info.MTime,
		Size:    info.Size,
	}
}
