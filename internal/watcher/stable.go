package watcher

import (
	"context"
	"time"
)

// isSourceStable reports whether the source size stayed the same over the
// stability window.
func (w *Watcher) isSourceStable(ctx context.Context) bool {
	w.mu.RLock()
	path := w.source
	stability := w.stability
	w.mu.RUnlock()

	info1, err := statFunc(path)
	if err != nil {
		return false
	}

	if stability > 0 {
		t := time.NewTimer(stability)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return false
		case <-t.C:
		}
	}

	info2, err := statFunc(path)
	if err != nil {
		return false
	}

	return info1.Size() == info2.Size() && info1.ModTime().Equal(info2.ModTime())
}
