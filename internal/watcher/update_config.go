package watcher

import (
	"time"

	"github.com/raoulx24/dbkeeper/internal/config"
	"github.com/raoulx24/dbkeeper/internal/snapshot"
)

// UpdateConfig updates watcher fields atomically for hot-reload. The poll
// interval and mode take effect on the next Start.
func (w *Watcher) UpdateConfig(cfg config.SourceConfig) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.apply(cfg)
}

// apply copies cfg into w; the caller holds mu or owns w exclusively.
func (w *Watcher) apply(cfg config.SourceConfig) {
	source := snapshot.ResolveSource(cfg.Path)
	if source != w.source {
		w.lastModTime = time.Time{}
		w.submittedAt = time.Time{}
		w.submittedMod = time.Time{}
	}

	w.source = source
	w.interval = cfg.Watch.PollInterval
	w.mode = cfg.Watch.Mode
	w.debounce = cfg.Watch.DebounceWindow
	w.stability = cfg.Watch.StabilityWindow
}
