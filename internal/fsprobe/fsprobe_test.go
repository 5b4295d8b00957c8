package fsprobe

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbeLocalDirectory(t *testing.T) {
	dir := t.TempDir()

	res := Probe(dir, time.Second)

	// local temp dirs support inotify/kqueue/ReadDirectoryChanges
	assert.True(t, res.FsnotifySupported, res.Reason)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "probe files must be cleaned up")
}

func TestProbeMissingDirectory(t *testing.T) {
	res := Probe(filepath.Join(t.TempDir(), "nope"), 0)
	assert.False(t, res.FsnotifySupported)
	assert.Contains(t, res.Reason, "stat failed")
}

func TestProbeNotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	res := Probe(file, 0)
	assert.False(t, res.FsnotifySupported)
	assert.Equal(t, "not a directory", res.Reason)
}
