// Package worker runs backup and cleanup jobs one at a time.
//
// All producers (schedule, watcher, API, shutdown) submit to a single-slot
// mailbox and a single goroutine executes jobs, so a snapshot is never
// written while the same process is thinning the directory.
package worker

import (
	"context"
	"sync"

	"github.com/raoulx24/dbkeeper/internal/housekeeping"
	"github.com/raoulx24/dbkeeper/internal/logging"
	"github.com/raoulx24/dbkeeper/internal/mailbox"
)

// Settings are the hot-reloadable parts of the worker configuration.
type Settings struct {
	Source           string
	CleanAfterBackup bool
}

// Worker executes jobs taken from the mailbox.
type Worker struct {
	mu       sync.RWMutex
	settings Settings
	last     map[housekeeping.Op]housekeeping.Result

	backuper Backuper
	cleaner  Cleaner
	recorder Recorder
	observer Observer
	log      logging.Logger
	mb       *mailbox.Mailbox[Job]
}

// Option customizes a Worker.
type Option func(*Worker)

// WithRecorder stores every result, typically in the history database.
func WithRecorder(r Recorder) Option {
	return func(w *Worker) { w.recorder = r }
}

// WithObserver reports every result, typically to metrics.
func WithObserver(o Observer) Option {
	return func(w *Worker) { w.observer = o }
}

// New creates a worker. A nil mailbox gets a fresh one.
func New(s Settings, b Backuper, c Cleaner, log logging.Logger, mb *mailbox.Mailbox[Job], opts ...Option) *Worker {
	if mb == nil {
		mb = mailbox.New[Job]()
	}
	w := &Worker{
		settings: s,
		last:     make(map[housekeeping.Op]housekeeping.Result),
		backuper: b,
		cleaner:  c,
		log:      log,
		mb:       mb,
	}
	for _, o := range opts {
		o(w)
	}
	return w
}

// UpdateConfig hot-reloads the worker settings. A job already running
// keeps the source it was submitted with.
func (w *Worker) UpdateConfig(s Settings) {
	w.mu.Lock()
	w.settings = s
	w.mu.Unlock()
	w.log.Debug("worker settings updated", "source", s.Source, "cleanAfterBackup", s.CleanAfterBackup)
}

// Settings returns the current settings.
func (w *Worker) Settings() Settings {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.settings
}

// Submit queues op for the configured source and returns the job that will
// run it. If a job is already waiting the two are merged.
func (w *Worker) Submit(op Op, reason string) Job {
	return w.SubmitJob(NewJob(op, w.Settings().Source, reason))
}

// SubmitJob queues job as is. See Submit.
func (w *Worker) SubmitJob(job Job) Job {
	queued := job
	w.mb.Merge(job, func(pending, next Job) Job {
		queued = mergeJobs(pending, next)
		return queued
	})
	w.log.Debug("job submitted", "id", queued.ID, "op", queued.Op, "reason", queued.Reason)
	return queued
}

// Pending reports whether a job is waiting for the worker.
func (w *Worker) Pending() bool {
	return w.mb.HasJob()
}

// Run processes jobs until ctx is done or Close is called.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info("starting worker")
	for {
		job, ok := w.mb.TakeContext(ctx)
		if !ok {
			w.log.Info("worker stopped")
			return
		}
		w.Handle(ctx, job)
	}
}

// Close stops Run once the pending job, if any, has been handled.
func (w *Worker) Close() {
	w.mb.Close()
}

// Handle runs one job synchronously and returns its results in order.
func (w *Worker) Handle(ctx context.Context, job Job) []housekeeping.Result {
	s := w.Settings()
	source := job.Source
	if source == "" {
		source = s.Source
	}

	w.log.Info("job started", "id", job.ID, "op", job.Op, "reason", job.Reason)

	var results []housekeeping.Result
	switch job.Op {
	case OpBackup:
		r := w.finish(ctx, job, w.backuper.CreateBackup(ctx, source))
		results = append(results, r)
		if s.CleanAfterBackup && r.Outcome == housekeeping.OutcomeCreated {
			results = append(results, w.finish(ctx, job, w.cleaner.CleanOldBackups(ctx, source)))
		}
	case OpClean:
		results = append(results, w.finish(ctx, job, w.cleaner.CleanOldBackups(ctx, source)))
	case OpCycle:
		results = append(results, w.finish(ctx, job, w.backuper.CreateBackup(ctx, source)))
		results = append(results, w.finish(ctx, job, w.cleaner.CleanOldBackups(ctx, source)))
	default:
		w.log.Error("unknown job op", "id", job.ID, "op", job.Op)
	}

	return results
}

// Last returns the most recent result of op, if any.
func (w *Worker) Last(op housekeeping.Op) (housekeeping.Result, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	r, ok := w.last[op]
	return r, ok
}

func (w *Worker) finish(ctx context.Context, job Job, r housekeeping.Result) housekeeping.Result {
	w.mu.Lock()
	w.last[r.Op] = r
	w.mu.Unlock()

	if w.observer != nil {
		w.observer.Observe(r)
	}
	if w.recorder != nil {
		// recording must not fail a run that already happened
		if err := w.recorder.Record(context.WithoutCancel(ctx), job.ID, r); err != nil {
			w.log.Warn("failed to record run", "id", job.ID, "op", r.Op, "error", err)
		}
	}

	w.log.Info("job step finished", "id", job.ID, "op", r.Op, "outcome", r.Outcome, "detail", r.Message())
	return r
}
