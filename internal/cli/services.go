package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/raoulx24/dbkeeper/internal/audit"
	"github.com/raoulx24/dbkeeper/internal/config"
	"github.com/raoulx24/dbkeeper/internal/history"
	"github.com/raoulx24/dbkeeper/internal/logging"
	"github.com/raoulx24/dbkeeper/internal/mailbox"
	"github.com/raoulx24/dbkeeper/internal/metrics"
	"github.com/raoulx24/dbkeeper/internal/retention"
	"github.com/raoulx24/dbkeeper/internal/snapshot"
	"github.com/raoulx24/dbkeeper/internal/worker"
)

// Services holds all initialized components
type Services struct {
	Config    *config.Config
	Log       *slog.Logger
	Audit     *audit.Sink
	Creator   *snapshot.Creator
	Retention *retention.Engine
	History   *history.Store // nil when disabled
	Metrics   *metrics.Collector
	Mailbox   *mailbox.Mailbox[worker.Job]
	Worker    *worker.Worker
}

// initServices wires every component from cfg. Operational logs go to logOut.
func initServices(cfg *config.Config, logOut io.Writer) (*Services, error) {
	log, err := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Writer: logOut,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}

	sink := audit.New(audit.WithFallback(logOut))

	s := &Services{
		Config:  cfg,
		Log:     log,
		Audit:   sink,
		Metrics: metrics.NewCollector(nil),
		Mailbox: mailbox.New[worker.Job](),
	}

	s.Creator = snapshot.NewCreator(sink, logging.Component(log, "snapshot"),
		snapshot.WithCompressionLevel(cfg.Backup.CompressionLevel))
	s.Retention = retention.New(cfg.Backup.MaxPerDay, sink, logging.Component(log, "retention"))

	opts := []worker.Option{worker.WithObserver(s.Metrics)}
	if cfg.History.Enabled {
		store, err := history.Open(cfg.HistoryPath())
		if err != nil {
			// history is a convenience; housekeeping runs without it
			log.Warn("run history unavailable", "path", cfg.HistoryPath(), "error", err)
		} else {
			s.History = store
			opts = append(opts, worker.WithRecorder(store))
		}
	}

	s.Worker = worker.New(workerSettings(cfg), s.Creator, s.Retention,
		logging.Component(log, "worker"), s.Mailbox, opts...)

	return s, nil
}

func workerSettings(cfg *config.Config) worker.Settings {
	return worker.Settings{
		Source:           cfg.SourcePath(),
		CleanAfterBackup: cfg.Backup.CleanAfterBackup,
	}
}

// Close releases resources
func (s *Services) Close() {
	if s.Worker != nil {
		s.Worker.Close()
	}
	if s.History != nil {
		if err := s.History.Close(); err != nil {
			s.Log.Warn("closing history failed", "error", err)
		}
	}
}
