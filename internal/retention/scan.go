package retention

import (
	"context"

	"github.com/raoulx24/dbkeeper/internal/fs"
	"github.com/raoulx24/dbkeeper/internal/snapshot"
)

// scan lists the snapshots in dir. Directories and names we did not write
// are ignored.
func scan(ctx context.Context, filesystem fs.FS, dir string) ([]snapshot.Snapshot, error) {
	entries, err := filesystem.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var out []snapshot.Snapshot
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !e.Type().IsRegular() {
			continue
		}
		if s, ok := snapshot.Parse(dir, e.Name()); ok {
			out = append(out, s)
		}
	}
	return out, nil
}
