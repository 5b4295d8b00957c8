// Package retention thins the Backups directory so that each day keeps at
// most a fixed number of snapshots.
package retention

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"
	"time"

	"github.com/raoulx24/dbkeeper/internal/audit"
	dbfs "github.com/raoulx24/dbkeeper/internal/fs"
	"github.com/raoulx24/dbkeeper/internal/housekeeping"
	"github.com/raoulx24/dbkeeper/internal/logging"
	"github.com/raoulx24/dbkeeper/internal/snapshot"
)

// Engine applies the per-day thinning rule.
type Engine struct {
	mu        sync.RWMutex
	maxPerDay int

	fs    dbfs.FS
	audit audit.Logger
	log   logging.Logger
	now   func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithFS replaces the filesystem, mainly for fault injection in tests.
func WithFS(filesystem dbfs.FS) Option {
	return func(e *Engine) { e.fs = filesystem }
}

// WithClock sets the clock used for result timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates an Engine keeping at most maxPerDay snapshots per day.
// Zero selects DefaultMaxPerDay.
func New(maxPerDay int, a audit.Logger, log logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		maxPerDay: normalizeMax(maxPerDay),
		fs:        dbfs.New(),
		audit:     a,
		log:       log,
		now:       time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// UpdateConfig hot-reloads the per-day limit.
func (e *Engine) UpdateConfig(maxPerDay int) {
	e.mu.Lock()
	e.maxPerDay = normalizeMax(maxPerDay)
	e.mu.Unlock()
	e.log.Debug("retention limit updated", "maxPerDay", maxPerDay)
}

// MaxPerDay is the limit currently applied.
func (e *Engine) MaxPerDay() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.maxPerDay
}

// CleanOldBackups thins the Backups directory of the database named by
// input (a path or a "Data Source=" connection string).
//
// Every deletion and one final summary go to the audit log. A missing
// Backups directory is a silent no-op. The first listing or deletion error
// stops the run and is logged once; files already deleted stay deleted.
func (e *Engine) CleanOldBackups(ctx context.Context, input string) (res housekeeping.Result) {
	source := snapshot.ResolveSource(input)
	res = housekeeping.Result{
		Op:      housekeeping.OpClean,
		Source:  source,
		Started: e.now(),
	}
	defer func() {
		if r := recover(); r != nil {
			res = e.fail(res, fmt.Errorf("panic: %v", r))
		}
		res.Finished = e.now()
	}()

	dir := snapshot.BackupDir(source)
	maxPerDay := e.MaxPerDay()

	snaps, err := scan(ctx, e.fs, dir)
	if errors.Is(err, fs.ErrNotExist) {
		e.log.Debug("no backup directory, nothing to clean", "dir", dir)
		res.Outcome = housekeeping.OutcomeAbsent
		res.Err = &housekeeping.Error{Op: housekeeping.OpClean, Path: dir, Kind: housekeeping.KindAbsent, Err: err}
		return res
	}
	if err != nil {
		return e.fail(res, fmt.Errorf("listing %s: %w", dir, err))
	}

	for _, g := range GroupByDay(snaps) {
		keep, drop := Thin(g.Snapshots, maxPerDay)
		res.Kept += len(keep)

		for _, s := range drop {
			err := e.fs.Remove(ctx, s.Path)
			if errors.Is(err, fs.ErrNotExist) {
				// removed by someone else between listing and now
				continue
			}
			if err != nil {
				return e.fail(res, fmt.Errorf("deleting %s: %w", s.FileName, err))
			}
			res.Deleted++
			e.audit.Log(source, audit.LevelInfo, "Deleted old backup: "+s.FileName)
			e.log.Debug("snapshot deleted", "file", s.FileName, "day", g.DayKey)
		}
	}

	if res.Deleted > 0 {
		e.audit.Log(source, audit.LevelInfo, fmt.Sprintf("Backup cleanup finished: %d file(s) deleted", res.Deleted))
	} else {
		e.audit.Log(source, audit.LevelInfo, "Backup cleanup finished: no excess backups found")
	}
	e.log.Info("cleanup finished", "source", source, "deleted", res.Deleted, "kept", res.Kept)

	res.Outcome = housekeeping.OutcomeCleaned
	return res
}

func (e *Engine) fail(res housekeeping.Result, err error) housekeeping.Result {
	e.audit.Log(res.Source, audit.LevelError, "Backup cleanup failed: "+err.Error())
	e.log.Error("cleanup failed", "source", res.Source, "deleted", res.Deleted, "error", err)

	res.Outcome = housekeeping.OutcomeFailed
	res.Err = &housekeeping.Error{Op: housekeeping.OpClean, Path: res.Source, Kind: housekeeping.KindIO, Err: err}
	return res
}
