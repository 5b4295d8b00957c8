package watcher

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StartFsNotify triggers detect() when fsnotify reports changes to the
// source or its sidecars, after the debounce window settles.
func (w *Watcher) StartFsNotify(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	w.mu.RLock()
	dir := w.dir()
	debounce := w.debounce
	w.mu.RUnlock()

	// SQLite replaces and truncates files, so the directory is watched, not the file
	if err := watcher.Add(dir); err != nil {
		return err
	}
	w.log.Info("watching source with fsnotify", "dir", dir)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				w.log.Error("events channel closed")
				return nil
			}
			if !w.relevant(ev.Name) {
				continue
			}
			w.log.Debug("event", "name", ev.Name, "op", ev.Op.String())

			if timer == nil {
				timer = time.NewTimer(debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
			timerCh = timer.C

		case <-timerCh:
			timerCh = nil
			w.detect(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Error("fsnotify error", "error", err)
		}
	}
}
