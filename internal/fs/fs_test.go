package fs

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	retryBase = time.Millisecond
}

func copyEncoder(w io.Writer, src io.Reader, _ FileInfo) error {
	_, err := io.Copy(w, src)
	return err
}

func TestCaptureWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.db")
	dst := filepath.Join(dir, "out.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	info, err := New().Capture(context.Background(), src, dst, copyEncoder)
	require.NoError(t, err)
	assert.Equal(t, int64(len("payload")), info.Size)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, e := range entries {
		assert.False(t, strings.HasPrefix(e.Name(), ".tmp-"), "temp file left behind: %s", e.Name())
	}
}

func TestCaptureLeavesNothingOnEncodeError(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.db")
	dst := filepath.Join(dir, "out.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	boom := errors.New("boom")
	_, err := New().Capture(context.Background(), src, dst, func(io.Writer, io.Reader, FileInfo) error {
		return boom
	})
	require.ErrorIs(t, err, boom)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the source should remain")
}

func TestCaptureRetriesWhenSourceChanges(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.db")
	dst := filepath.Join(dir, "out.bin")
	require.NoError(t, os.WriteFile(src, []byte("v1"), 0o644))

	attempts := 0
	_, err := New().Capture(context.Background(), src, dst, func(w io.Writer, r io.Reader, info FileInfo) error {
		attempts++
		if attempts == 1 {
			// simulate a writer touching the database mid-capture
			require.NoError(t, os.WriteFile(src, []byte("v2-longer"), 0o644))
		}
		return copyEncoder(w, r, info)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)

	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "v2-longer", string(data))
}

// renameFS routes Capture through its own Rename so commits can fail.
type renameFS struct {
	*OSFS
	calls int
	err   error
}

func (r *renameFS) Rename(ctx context.Context, oldPath, newPath string) error {
	r.calls++
	if r.err != nil {
		return r.err
	}
	return r.OSFS.Rename(ctx, oldPath, newPath)
}

func (r *renameFS) Capture(ctx context.Context, src, dst string, encode EncodeFunc) (FileInfo, error) {
	return captureWithRetry(ctx, r, src, dst, encode)
}

func TestCaptureCommitsThroughRename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.db")
	dst := filepath.Join(dir, "out.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	rfs := &renameFS{OSFS: New()}
	_, err := rfs.Capture(context.Background(), src, dst, copyEncoder)
	require.NoError(t, err)
	assert.Equal(t, 1, rfs.calls)
	assert.FileExists(t, dst)
}

func TestCaptureFailedRenameLeavesNothing(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "app.db")
	dst := filepath.Join(dir, "out.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o644))

	rfs := &renameFS{OSFS: New(), err: syscall.EACCES}
	_, err := rfs.Capture(context.Background(), src, dst, copyEncoder)
	require.ErrorIs(t, err, syscall.EACCES)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "only the source should remain")
}

func TestCaptureSetsSnapshotPerm(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix permission bits")
	}
	dir := t.TempDir()
	src := filepath.Join(dir, "app.db")
	dst := filepath.Join(dir, "out.bin")
	require.NoError(t, os.WriteFile(src, []byte("payload"), 0o600))

	_, err := New().Capture(context.Background(), src, dst, copyEncoder)
	require.NoError(t, err)

	st, err := os.Stat(dst)
	require.NoError(t, err)
	assert.Equal(t, SnapshotPerm, st.Mode().Perm())
}

func TestRetryStopsOnPermanentError(t *testing.T) {
	calls := 0
	err := retry(context.Background(), "op", func() error {
		calls++
		return os.ErrPermission
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Contains(t, err.Error(), "failed permanently")
}

func TestRetryGivesUpAfterMaxRetries(t *testing.T) {
	calls := 0
	err := retry(context.Background(), "op", func() error {
		calls++
		return syscall.EBUSY
	})
	require.ErrorIs(t, err, syscall.EBUSY)
	assert.Equal(t, maxRetries, calls)
}

func TestRetryHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := retry(ctx, "op", func() error { return nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExistsAndRemove(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a")
	fsys := New()

	ok, err := fsys.Exists(path)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(path, nil, 0o644))
	ok, err = fsys.Exists(path)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, fsys.Remove(context.Background(), path))
	err = fsys.Remove(context.Background(), path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestSourceChanged(t *testing.T) {
	now := time.Now()
	base := FileInfo{Size: 10, MTime: now, Inode: 7}

	assert.False(t, sourceChanged(base, base))
	assert.True(t, sourceChanged(base, FileInfo{Size: 11, MTime: now, Inode: 7}))
	assert.True(t, sourceChanged(base, FileInfo{Size: 10, MTime: now.Add(time.Second), Inode: 7}))
	assert.True(t, sourceChanged(base, FileInfo{Size: 10, MTime: now, Inode: 8}))
	assert.False(t, sourceChanged(base, FileInfo{Size: 10, MTime: now, Inode: 0}))
}
