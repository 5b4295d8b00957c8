// Package scheduler submits backup cycles to the worker on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/raoulx24/dbkeeper/internal/logging"
	"github.com/raoulx24/dbkeeper/internal/worker"
)

// Submitter accepts jobs; *worker.Worker implements it.
type Submitter interface {
	Submit(op worker.Op, reason string) worker.Job
}

// Scheduler owns one cron entry that enqueues a cycle job.
//
// Common expressions:
//   - "*/30 * * * *" every 30 minutes
//   - "0 * * * *"    hourly
//   - "@every 2h"
//
// An empty schedule disables it.
type Scheduler struct {
	mu       sync.Mutex
	cron     *cron.Cron
	entry    cron.EntryID
	schedule string
	running  bool

	submit Submitter
	log    logging.Logger
}

// New creates a scheduler; nothing runs until Start.
func New(schedule string, s Submitter, log logging.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(),
		schedule: schedule,
		submit:   s,
		log:      log,
	}
}

// Validate checks a schedule expression. Empty is valid and means disabled.
func Validate(schedule string) error {
	if schedule == "" {
		return nil
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", schedule, err)
	}
	return nil
}

// Start installs the schedule and starts cron. It stops on its own when
// ctx is done.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.install(s.schedule); err != nil {
		return err
	}

	s.cron.Start()
	s.running = true

	if s.schedule == "" {
		s.log.Info("backup schedule not configured, scheduler idle")
	} else {
		s.log.Info("scheduler started", "schedule", s.schedule)
	}

	go func() {
		<-ctx.Done()
		s.Stop()
	}()

	return nil
}

// Update swaps the schedule on a live scheduler. An invalid expression
// leaves the current one in place.
func (s *Scheduler) Update(schedule string) error {
	if err := Validate(schedule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if schedule == s.schedule {
		return nil
	}
	if err := s.install(schedule); err != nil {
		return err
	}
	s.log.Info("schedule updated", "from", s.schedule, "to", schedule)
	s.schedule = schedule
	return nil
}

// install replaces the cron entry; the caller holds mu.
func (s *Scheduler) install(schedule string) error {
	if err := Validate(schedule); err != nil {
		return err
	}

	if s.entry != 0 {
		s.cron.Remove(s.entry)
		s.entry = 0
	}
	if schedule == "" {
		return nil
	}

	id, err := s.cron.AddFunc(schedule, s.fire)
	if err != nil {
		return fmt.Errorf("failed to schedule backups: %w", err)
	}
	s.entry = id
	return nil
}

func (s *Scheduler) fire() {
	job := s.submit.Submit(worker.OpCycle, "schedule")
	s.log.Debug("scheduled cycle submitted", "id", job.ID)
}

// Stop stops cron and waits for a running trigger to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	<-s.cron.Stop().Done()
	s.running = false
	s.log.Info("scheduler stopped")
}

// NextRun returns when the next cycle will be submitted, or nil when the
// scheduler is idle.
func (s *Scheduler) NextRun() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.entry == 0 {
		return nil
	}
	next := s.cron.Entry(s.entry).Next
	if next.IsZero() {
		return nil
	}
	return &next
}
