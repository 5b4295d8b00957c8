//go:build unix

package fs

import (
	"os"
	"syscall"
)

// inodeOf reads the inode from syscall.Stat_t. A changed inode means the
// database file was replaced (e.g. by a VACUUM INTO + rename) while we read it.
func inodeOf(info os.FileInfo) uint64 {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0
	}
	return uint64(st.Ino)
}
