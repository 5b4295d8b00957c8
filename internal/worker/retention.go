package worker

import (
	"context"

	"github.com/raoulx24/dbkeeper/internal/housekeeping"
)

// Backuper creates one snapshot of a source database.
type Backuper interface {
	CreateBackup(ctx context.Context, source string) housekeeping.Result
}

// Cleaner thins the snapshots of a source database.
type Cleaner interface {
	CleanOldBackups(ctx context.Context, source string) housekeeping.Result
}

// Recorder persists the outcome of a run. Failing to record never affects
// the run itself.
type Recorder interface {
	Record(ctx context.Context, jobID string, r housekeeping.Result) error
}

// Observer is notified of every result, e.g. to update metrics.
type Observer interface {
	Observe(r housekeeping.Result)
}
