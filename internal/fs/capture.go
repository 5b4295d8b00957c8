package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// SnapshotPerm is the mode of a committed capture. Temp files start out
// 0600, which would lock the operator group out of the snapshots.
const SnapshotPerm os.FileMode = 0o644

// captureWithRetry encodes a source file into a temp file next to dst and
// renames it into place through f.Rename. The encode step is retried if the
// source changes mid-read, so a snapshot is always a consistent copy of one
// version of the file.
func captureWithRetry(ctx context.Context, f FS, src, dst string, encode EncodeFunc) (FileInfo, error) {
	var tmpPath string
	err := retry(ctx, "capture", func() error {
		var err error
		tmpPath, err = captureOnce(f, src, dst, encode)
		return err
	})
	if err != nil {
		return FileInfo{}, err
	}

	if err := f.Rename(ctx, tmpPath, dst); err != nil {
		_ = os.Remove(tmpPath)
		return FileInfo{}, err
	}
	return f.Stat(dst)
}

// captureOnce writes the encoded copy to a hidden temp file and returns its
// path. Nothing is left behind on failure.
func captureOnce(f FS, src, dst string, encode EncodeFunc) (string, error) {
	before, err := f.Stat(src)
	if err != nil {
		return "", err
	}

	in, err := os.Open(src)
	if err != nil {
		return "", err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-"+filepath.Base(dst)+"-*")
	if err != nil {
		return "", err
	}
	tmpPath := tmp.Name()

	done := false
	defer func() {
		if !done {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := encode(tmp, in, before); err != nil {
		return "", fmt.Errorf("encoding %s: %w", filepath.Base(src), err)
	}
	if err := tmp.Chmod(SnapshotPerm); err != nil {
		return "", err
	}
	if err := tmp.Sync(); err != nil {
		return "", err
	}

	after, err := f.Stat(src)
	if err != nil {
		return "", err
	}
	if sourceChanged(before, after) {
		return "", ErrSourceChanged
	}

	if err := tmp.Close(); err != nil {
		return "", err
	}
	done = true
	return tmpPath, nil
}

func sourceChanged(orig, now FileInfo) bool {
	if now.Inode != 0 && orig.Inode != 0 && now.Inode != orig.Inode {
		return true
	}
	if !now.MTime.Equal(orig.MTime) {
		return true
	}
	return now.Size != orig.Size
}
