package cli

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/raoulx24/dbkeeper/internal/config"
	"github.com/raoulx24/dbkeeper/internal/logging"
	"github.com/raoulx24/dbkeeper/internal/retention"
	"github.com/raoulx24/dbkeeper/internal/scheduler"
	"github.com/raoulx24/dbkeeper/internal/watcher"
	"github.com/raoulx24/dbkeeper/internal/worker"
)

const reloadDebounce = 500 * time.Millisecond

// reloader hot-applies a changed config file to the running components.
// The compression level, history path, API and logging settings need a
// restart.
type reloader struct {
	path     string
	log      logging.Logger
	worker   *worker.Worker
	engine   *retention.Engine
	schedule *scheduler.Scheduler
	watcher  *watcher.Watcher
}

func (r *reloader) apply() {
	cfg, err := config.Load(r.path)
	if err != nil {
		r.log.Error("config reload failed", "error", err)
		return
	}

	r.worker.UpdateConfig(workerSettings(cfg))
	r.engine.UpdateConfig(cfg.Backup.MaxPerDay)
	r.watcher.UpdateConfig(cfg.Source)
	if err := r.schedule.Update(cfg.Backup.Schedule); err != nil {
		r.log.Error("schedule not updated", "error", err)
	}

	r.log.Info("config reloaded", "source", cfg.SourcePath(), "maxPerDay", cfg.Backup.MaxPerDay)
}

// watch triggers apply on SIGHUP or, with method "fsnotify", when the
// config file is written.
func (r *reloader) watch(ctx context.Context, method string) {
	if method == "fsnotify" {
		if err := r.watchFile(ctx); err != nil {
			r.log.Warn("config file watch unavailable, using SIGHUP", "error", err)
		} else {
			return
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGHUP)
	defer signal.Stop(sigCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sigCh:
			r.apply()
		}
	}
}

func (r *reloader) watchFile(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}

	abs, err := filepath.Abs(r.path)
	if err != nil {
		_ = fw.Close()
		return err
	}
	// editors replace the file, so watch the directory
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return err
	}

	go func() {
		defer fw.Close()

		var pending <-chan time.Time
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Base(ev.Name) == filepath.Base(abs) && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					pending = time.After(reloadDebounce)
				}
			case <-pending:
				pending = nil
				r.apply()
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				r.log.Error("config watch error", "error", err)
			}
		}
	}()

	return nil
}
