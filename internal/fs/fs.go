// Package fs defines the filesystem abstraction used by dbkeeper.
// It provides the FS interface and the FileInfo type shared by the snapshot
// creator and the retention engine, so both can be driven against a fake in tests.
package fs

import (
	"context"
	"io"
	"os"
	"time"
)

type FileInfo struct {
	Path  string
	Size  int64
	MTime time.Time
	Inode uint64
	IsDir bool
}

// EncodeFunc writes an encoded copy of src, described by info, to w.
type EncodeFunc func(w io.Writer, src io.Reader, info FileInfo) error

type FS interface {
	Stat(path string) (FileInfo, error)
	Exists(path string) (bool, error)
	MkdirAll(path string) error
	ReadDir(path string) ([]os.DirEntry, error)
	Remove(ctx context.Context, path string) error
	Rename(ctx context.Context, oldPath, newPath string) error

	// Capture encodes src into dst atomically: dst either appears complete
	// or not at all. It fails if src changes while being read.
	Capture(ctx context.Context, src, dst string, encode EncodeFunc) (FileInfo, error)
}
