// Package history keeps a small SQLite table of past backup and cleanup
// runs so operators can see what the daemon did without reading the audit log.
package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/raoulx24/dbkeeper/internal/housekeeping"
)

// FileName is the default history database name. It sits next to the
// source and its audit log, never inside Backups, so runs that must leave
// Backups untouched still get recorded.
const FileName = "backup_history.db"

const schema = `
CREATE TABLE IF NOT EXISTS run (
	id TEXT PRIMARY KEY,
	job_id TEXT NOT NULL,
	op TEXT NOT NULL,
	outcome TEXT NOT NULL,
	source TEXT NOT NULL,
	path TEXT NOT NULL DEFAULT '',
	size INTEGER NOT NULL DEFAULT 0,
	deleted INTEGER NOT NULL DEFAULT 0,
	kept INTEGER NOT NULL DEFAULT 0,
	message TEXT NOT NULL DEFAULT '',
	started_at DATETIME NOT NULL,
	finished_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_run_started_at ON run(started_at);
CREATE INDEX IF NOT EXISTS idx_run_job_id ON run(job_id);
`

// Run is one recorded housekeeping run.
type Run struct {
	ID         string    `db:"id" json:"id"`
	JobID      string    `db:"job_id" json:"jobId"`
	Op         string    `db:"op" json:"op"`
	Outcome    string    `db:"outcome" json:"outcome"`
	Source     string    `db:"source" json:"source"`
	Path       string    `db:"path" json:"path,omitempty"`
	Size       int64     `db:"size" json:"size,omitempty"`
	Deleted    int       `db:"deleted" json:"deleted"`
	Kept       int       `db:"kept" json:"kept"`
	Message    string    `db:"message" json:"message"`
	StartedAt  time.Time `db:"started_at" json:"startedAt"`
	FinishedAt time.Time `db:"finished_at" json:"finishedAt"`
}

// FromResult converts a housekeeping result of job jobID into a Run row.
// A cycle job produces two rows sharing the job id.
func FromResult(jobID string, r housekeeping.Result) Run {
	return Run{
		ID:         uuid.NewString(),
		JobID:      jobID,
		Op:         string(r.Op),
		Outcome:    string(r.Outcome),
		Source:     r.Source,
		Path:       r.Path,
		Size:       r.Size,
		Deleted:    r.Deleted,
		Kept:       r.Kept,
		Message:    r.Message(),
		StartedAt:  r.Started,
		FinishedAt: r.Finished,
	}
}

// Store is the SQLite backed run history.
type Store struct {
	db *sqlx.DB
}

// DefaultPath is where the history lives for a given source database.
func DefaultPath(source string) string {
	return filepath.Join(filepath.Dir(source), FileName)
}

// Open opens (and creates if needed) the history database at path.
//
// The rollback journal is used instead of WAL so the store never leaves
// -wal/-shm files around.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to history database: %w", err)
	}
	// pragmas are per connection
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = DELETE",
		"PRAGMA busy_timeout = 5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", p, err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Record stores the outcome of one run under jobID.
func (s *Store) Record(ctx context.Context, jobID string, r housekeeping.Result) error {
	run := FromResult(jobID, r)

	query := `
		INSERT INTO run (id, job_id, op, outcome, source, path, size, deleted, kept, message, started_at, finished_at)
		VALUES (:id, :job_id, :op, :outcome, :source, :path, :size, :deleted, :kept, :message, :started_at, :finished_at)
	`
	if _, err := s.db.NamedExecContext(ctx, query, run); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	return nil
}

// ForJob returns the runs recorded for one job, oldest first.
func (s *Store) ForJob(ctx context.Context, jobID string) ([]Run, error) {
	query := `
		SELECT id, job_id, op, outcome, source, path, size, deleted, kept, message, started_at, finished_at
		FROM run
		WHERE job_id = ?
		ORDER BY started_at ASC, rowid ASC
	`
	var runs []Run
	if err := s.db.SelectContext(ctx, &runs, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to list runs of job %s: %w", jobID, err)
	}
	return runs, nil
}

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, job_id, op, outcome, source, path, size, deleted, kept, message, started_at, finished_at
		FROM run
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?
	`
	var runs []Run
	if err := s.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// LastSuccess returns the newest run of op that did not fail.
func (s *Store) LastSuccess(ctx context.Context, op housekeeping.Op) (Run, bool, error) {
	query := `
		SELECT id, job_id, op, outcome, source, path, size, deleted, kept, message, started_at, finished_at
		FROM run
		WHERE op = ? AND outcome IN (?, ?)
		ORDER BY started_at DESC, rowid DESC
		LIMIT 1
	`
	var runs []Run
	err := s.db.SelectContext(ctx, &runs, query, string(op),
		string(housekeeping.OutcomeCreated), string(housekeeping.OutcomeCleaned))
	if err != nil {
		return Run{}, false, fmt.Errorf("failed to query last success: %w", err)
	}
	if len(runs) == 0 {
		return Run{}, false, nil
	}
	return runs[0], true, nil
}
