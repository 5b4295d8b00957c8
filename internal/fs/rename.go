package fs

import (
	"context"
	"os"
)

// renameWithRetry and removeWithRetry wrap the os calls with the retry policy.
// Both are single atomic filesystem operations, so a retry never sees a half-done state.

func renameWithRetry(ctx context.Context, oldPath, newPath string) error {
	return retry(ctx, "rename", func() error {
		return os.Rename(oldPath, newPath)
	})
}

func removeWithRetry(ctx context.Context, path string) error {
	return retry(ctx, "remove", func() error {
		return os.Remove(path)
	})
}
