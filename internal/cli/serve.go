package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/raoulx24/dbkeeper/internal/api"
	"github.com/raoulx24/dbkeeper/internal/logging"
	"github.com/raoulx24/dbkeeper/internal/scheduler"
	"github.com/raoulx24/dbkeeper/internal/watcher"
	"github.com/raoulx24/dbkeeper/internal/worker"
)

const shutdownTimeout = 10 * time.Second

func (a *app) newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the backup daemon",
		Long: `Run the worker with the cron schedule, the optional source watcher and
the optional HTTP API. SIGHUP (or a config file change, depending on
configReload.method) reloads the configuration. On shutdown a final
backup cycle runs when backup.onShutdown is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.serve(cmd.Context(), cmd)
		},
	}
}

func (a *app) serve(parent context.Context, cmd *cobra.Command) error {
	services, err := initServices(a.cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer services.Close()

	log := services.Log
	cfg := a.cfg

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// the worker outlives the signal so the shutdown cycle can run
	workerCtx, cancelWorker := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelWorker()
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		services.Worker.Run(workerCtx)
	}()

	sched := scheduler.New(cfg.Backup.Schedule, services.Worker, logging.Component(log, "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return err
	}

	watch := watcher.New(cfg.Source, services.Worker, logging.Component(log, "watcher"))
	go func() {
		if err := watch.Start(ctx); err != nil {
			log.Error("source watcher stopped", "error", err)
		}
	}()

	var server *api.Server
	serverErr := make(chan error, 1)
	if cfg.API.Enabled {
		if cfg.Logging.Level != "debug" {
			gin.SetMode(gin.ReleaseMode)
		}
		deps := api.Deps{
			Jobs:     services.Worker,
			Planner:  services.Retention,
			Schedule: sched,
			Metrics:  services.Metrics.Handler(),
			Log:      logging.Component(log, "api"),
		}
		if services.History != nil {
			deps.History = services.History
		}
		server = api.NewServer(cfg.API.Listen, deps)
		go func() {
			if err := server.Start(); err != nil {
				serverErr <- err
			}
		}()
	}

	if cfg.ConfigReload.Enabled {
		r := &reloader{
			path:     a.cfgFile,
			log:      logging.Component(log, "reload"),
			worker:   services.Worker,
			engine:   services.Retention,
			schedule: sched,
			watcher:  watch,
		}
		go r.watch(ctx, cfg.ConfigReload.Method)
	}

	log.Info("dbkeeper started", "source", cfg.SourcePath(), "schedule", cfg.Backup.Schedule, "watch", cfg.Source.Watch.Mode)

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case runErr = <-serverErr:
		log.Error("http server failed", "error", runErr)
		stop()
	}

	sched.Stop()
	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Warn("http server shutdown", "error", err)
		}
		cancel()
	}

	if cfg.Backup.OnShutdown {
		services.Worker.Submit(worker.OpCycle, "shutdown")
	}
	services.Worker.Close()
	<-workerDone

	log.Info("exit complete")
	return runErr
}
