package fs

import (
	"context"
	"errors"
	"io/fs"
	"os"
)

// OSFS is the FS backed by the local filesystem.
// Platform-specific details (such as inode extraction) live in build-tagged files.
type OSFS struct{}

func New() *OSFS {
	return &OSFS{}
}

func (o *OSFS) Stat(path string) (FileInfo, error) {
	st, err := os.Stat(path)
	if err != nil {
		return FileInfo{}, err
	}

	return FileInfo{
		Path:  path,
		Size:  st.Size(),
		MTime: st.ModTime(),
		Inode: inodeOf(st),
		IsDir: st.IsDir(),
	}, nil
}

func (o *OSFS) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

func (o *OSFS) MkdirAll(path string) error {
	return os.MkdirAll(path, 0o755)
}

func (o *OSFS) ReadDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}

func (o *OSFS) Remove(ctx context.Context, path string) error {
	return removeWithRetry(ctx, path)
}

func (o *OSFS) Rename(ctx context.Context, oldPath, newPath string) error {
	return renameWithRetry(ctx, oldPath, newPath)
}

func (o *OSFS) Capture(ctx context.Context, src, dst string, encode EncodeFunc) (FileInfo, error) {
	return captureWithRetry(ctx, o, src, dst, encode)
}
