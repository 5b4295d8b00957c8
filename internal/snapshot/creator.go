package snapshot

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/raoulx24/dbkeeper/internal/audit"
	"github.com/raoulx24/dbkeeper/internal/fs"
	"github.com/raoulx24/dbkeeper/internal/housekeeping"
	"github.com/raoulx24/dbkeeper/internal/logging"
)

// ErrSourceBusy is wrapped by deferred results: a WAL sidecar was present.
var ErrSourceBusy = errors.New("database is in use")

// Creator produces one compressed snapshot of a database file per call.
type Creator struct {
	fs    fs.FS
	audit audit.Logger
	log   logging.Logger
	now   func() time.Time
	level int
}

// CreatorOption customizes a Creator.
type CreatorOption func(*Creator)

// WithClock sets the clock used to timestamp snapshot names.
func WithClock(now func() time.Time) CreatorOption {
	return func(c *Creator) { c.now = now }
}

// WithCompressionLevel sets the deflate level (-1 default, 0 store, 1..9).
func WithCompressionLevel(level int) CreatorOption {
	return func(c *Creator) { c.level = level }
}

// WithFS replaces the filesystem, mainly for tests.
func WithFS(filesystem fs.FS) CreatorOption {
	return func(c *Creator) { c.fs = filesystem }
}

// NewCreator creates a Creator writing outcomes to the audit log.
func NewCreator(a audit.Logger, log logging.Logger, opts ...CreatorOption) *Creator {
	c := &Creator{
		fs:    fs.New(),
		audit: a,
		log:   log,
		now:   time.Now,
		level: DefaultCompressionLevel,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CreateBackup snapshots the database named by input (a path or a
// "Data Source=" connection string) into its Backups directory.
//
// It never returns an error or panics past its boundary: every outcome is
// written to the audit log, and the Result mirrors it for callers that care.
func (c *Creator) CreateBackup(ctx context.Context, input string) (res housekeeping.Result) {
	source := ResolveSource(input)
	res = housekeeping.Result{
		Op:      housekeeping.OpBackup,
		Source:  source,
		Started: c.now(),
	}
	defer func() {
		if r := recover(); r != nil {
			res = c.fail(res, fmt.Errorf("panic: %v", r))
		}
		res.Finished = c.now()
	}()

	c.log.Debug("backup requested", "source", source)

	busy, err := c.busySidecar(source)
	if err != nil {
		return c.fail(res, err)
	}
	if busy != "" {
		c.audit.Log(source, audit.LevelWarn, fmt.Sprintf("Backup skipped, database is in use (found %s)", filepath.Base(busy)))
		c.log.Warn("backup deferred", "source", source, "sidecar", busy)
		res.Outcome = housekeeping.OutcomeDeferred
		res.Err = &housekeeping.Error{Op: housekeeping.OpBackup, Path: source, Kind: housekeeping.KindDeferred, Err: ErrSourceBusy}
		return res
	}

	dir := BackupDir(source)
	if err := c.fs.MkdirAll(dir); err != nil {
		return c.fail(res, fmt.Errorf("creating backup directory: %w", err))
	}

	dst := filepath.Join(dir, FileName(filepath.Base(source), c.now()))
	info, err := c.fs.Capture(ctx, source, dst, archiveEncoder(c.level))
	if err != nil {
		return c.fail(res, err)
	}

	c.audit.Log(source, audit.LevelInfo, "Backup created: "+dst)
	c.log.Info("backup created", "source", source, "path", dst, "size", info.Size)

	res.Outcome = housekeeping.OutcomeCreated
	res.Path = dst
	res.Size = info.Size
	return res
}

// busySidecar returns the first sidecar lock file that exists next to source.
func (c *Creator) busySidecar(source string) (string, error) {
	for _, p := range Sidecars(source) {
		ok, err := c.fs.Exists(p)
		if err != nil {
			return "", fmt.Errorf("checking %s: %w", filepath.Base(p), err)
		}
		if ok {
			return p, nil
		}
	}
	return "", nil
}

func (c *Creator) fail(res housekeeping.Result, err error) housekeeping.Result {
	c.audit.Log(res.Source, audit.LevelError, "Backup failed: "+err.Error())
	c.log.Error("backup failed", "source", res.Source, "error", err)

	res.Outcome = housekeeping.OutcomeFailed
	res.Err = &housekeeping.Error{Op: housekeeping.OpBackup, Path: res.Source, Kind: housekeeping.KindIO, Err: err}
	return res
}
