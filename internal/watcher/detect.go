package watcher

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/raoulx24/dbkeeper/internal/fsprobe"
	"github.com/raoulx24/dbkeeper/internal/housekeeping"
	"github.com/raoulx24/dbkeeper/internal/snapshot"
	"github.com/raoulx24/dbkeeper/internal/worker"
)

// swapped in tests
var (
	statFunc    = os.Stat
	fsprobeFunc = fsprobe.Probe
)

func (w *Watcher) dir() string {
	return filepath.Dir(w.source)
}

// detect submits a backup if the source changed since the last one and is
// currently safe to copy.
func (w *Watcher) detect(ctx context.Context) {
	w.settle()

	w.mu.RLock()
	source := w.source
	last := w.lastModTime
	inFlight := !w.submittedAt.IsZero()
	w.mu.RUnlock()

	if inFlight {
		return
	}

	info, err := statFunc(source)
	if err != nil {
		w.log.Debug("source not readable", "source", source, "error", err)
		return
	}

	mod := info.ModTime()
	if !mod.After(last) {
		return
	}

	// still open: wait for the sidecar removal event or the next poll
	for _, p := range snapshot.Sidecars(source) {
		if _, err := statFunc(p); err == nil {
			w.log.Debug("source changed but in use", "sidecar", filepath.Base(p))
			return
		}
	}

	if !w.isSourceStable(ctx) {
		w.log.Debug("source still changing", "source", source)
		return
	}

	w.mu.Lock()
	w.submittedMod = mod
	w.submittedAt = time.Now()
	w.mu.Unlock()

	job := w.submit.Submit(worker.OpBackup, "watcher")
	w.log.Info("source changed, backup submitted", "source", source, "id", job.ID)
}

// settle picks up the outcome of the backup detect submitted. Only a
// created snapshot marks the change as handled; after a deferred or failed
// run the same change is submitted again.
func (w *Watcher) settle() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.submittedAt.IsZero() {
		return
	}
	r, ok := w.submit.Last(housekeeping.OpBackup)
	if !ok || r.Started.Before(w.submittedAt) {
		return
	}

	if r.Outcome == housekeeping.OutcomeCreated {
		w.lastModTime = w.submittedMod
	} else {
		w.log.Debug("backup not created, change stays pending", "outcome", r.Outcome)
	}
	w.submittedAt = time.Time{}
	w.submittedMod = time.Time{}
}

// relevant reports whether a file event in the source directory concerns
// the database or its sidecars.
func (w *Watcher) relevant(name string) bool {
	w.mu.RLock()
	source := w.source
	w.mu.RUnlock()

	base := filepath.Base(name)
	if base == filepath.Base(source) {
		return true
	}
	for _, p := range snapshot.Sidecars(source) {
		if base == filepath.Base(p) {
			return true
		}
	}
	return false
}
