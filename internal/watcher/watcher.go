// Package watcher monitors the source database and submits backup jobs
// when it changes.
package watcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/raoulx24/dbkeeper/internal/config"
	"github.com/raoulx24/dbkeeper/internal/housekeeping"
	"github.com/raoulx24/dbkeeper/internal/logging"
	"github.com/raoulx24/dbkeeper/internal/worker"
)

// Submitter accepts jobs and reports how the last backup went;
// *worker.Worker implements it.
type Submitter interface {
	Submit(op worker.Op, reason string) worker.Job
	Last(op housekeeping.Op) (housekeeping.Result, bool)
}

// Watcher observes the source file and submits a backup when its mtime
// moves forward and the database is closed.
type Watcher struct {
	mu sync.RWMutex

	source    string
	interval  time.Duration
	mode      string
	debounce  time.Duration
	stability time.Duration

	log logging.Logger

	// lastModTime only moves once a snapshot of that version exists
	lastModTime time.Time

	// set while a submitted backup has not reported back
	submittedMod time.Time
	submittedAt  time.Time

	submit Submitter
}

// New creates a watcher from the source configuration.
func New(cfg config.SourceConfig, s Submitter, log logging.Logger) *Watcher {
	w := &Watcher{submit: s, log: log}
	w.apply(cfg)
	return w
}

// Start chooses the watching strategy based on config and blocks until
// ctx is done. Mode "off" returns immediately.
func (w *Watcher) Start(ctx context.Context) error {
	w.prime()

	w.mu.RLock()
	mode := w.mode
	dir := w.dir()
	w.mu.RUnlock()

	switch mode {
	case "off", "":
		w.log.Info("source watcher disabled")
		return nil

	case "fsnotify":
		return w.StartFsNotify(ctx)

	case "poll":
		w.StartPolling(ctx)
		return nil

	case "auto":
		res := fsprobeFunc(dir, 0)
		if res.FsnotifySupported {
			return w.StartFsNotify(ctx)
		}
		w.log.Warn("fsnotify disabled, falling back to polling", "reason", res.Reason)
		w.StartPolling(ctx)
		return nil

	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

// prime records the current mtime so an unchanged database isn't backed
// up just because the daemon started.
func (w *Watcher) prime() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if info, err := statFunc(w.source); err == nil && w.lastModTime.IsZero() {
		w.lastModTime = info.ModTime()
	}
}
