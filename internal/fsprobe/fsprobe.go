// Package fsprobe checks whether fsnotify works reliably for a directory.
// It performs a real create+rename test to ensure events are delivered;
// network and some container filesystems accept a watch and stay silent.
package fsprobe

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultTimeout is how long Probe waits for the first event.
const DefaultTimeout = 200 * time.Millisecond

// Result reports whether fsnotify is usable and why.
type Result struct {
	FsnotifySupported bool   // true if events are delivered
	Reason            string // explanation when unsupported
}

// Probe tests whether fsnotify reliably reports events for files in dir.
// A zero timeout selects DefaultTimeout.
func Probe(dir string, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	st, err := os.Stat(dir)
	if err != nil {
		return Result{false, fmt.Sprintf("stat failed: %v", err)}
	}
	if !st.IsDir() {
		return Result{false, "not a directory"}
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return Result{false, fmt.Sprintf("fsnotify unavailable: %v", err)}
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return Result{false, fmt.Sprintf("cannot watch directory: %v", err)}
	}

	f, err := os.CreateTemp(dir, ".dbkeeper-probe-*")
	if err != nil {
		return Result{false, fmt.Sprintf("cannot create temp file: %v", err)}
	}
	tmp := f.Name()
	_ = f.Close()

	final := tmp + ".done"
	if err := os.Rename(tmp, final); err != nil {
		_ = os.Remove(tmp)
		return Result{false, fmt.Sprintf("rename failed: %v", err)}
	}
	defer os.Remove(final)

	ours := map[string]bool{filepath.Base(tmp): true, filepath.Base(final): true}

	deadline := time.After(timeout)
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return Result{false, "event channel closed"}
			}
			if ours[filepath.Base(ev.Name)] && ev.Op&(fsnotify.Rename|fsnotify.Create|fsnotify.Write) != 0 {
				return Result{true, ""}
			}
		case err := <-w.Errors:
			return Result{false, fmt.Sprintf("watch error: %v", err)}
		case <-deadline:
			return Result{false, "no events received (rename not reported)"}
		}
	}
}
