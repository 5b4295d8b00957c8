package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/raoulx24/dbkeeper/internal/audit"
	"github.com/raoulx24/dbkeeper/internal/housekeeping"
	"github.com/raoulx24/dbkeeper/internal/worker"
)

func (a *app) newBackupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backup [source]",
		Short: "Create one snapshot of the database",
		Long: `Create one zip snapshot in the Backups directory next to the database.

The source is a file path or a connection string containing "Data Source=".
When the database is open (a -wal or -shm file exists) nothing is written
and the run is reported as deferred.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// one-shot backup never thins, use cycle for both
			a.cfg.Backup.CleanAfterBackup = false
			return a.runOnce(cmd, worker.OpBackup)
		},
	}
}

func (a *app) newCleanCmd() *cobra.Command {
	var maxPerDay int

	cmd := &cobra.Command{
		Use:   "clean [source]",
		Short: "Thin old snapshots to at most N per day",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("max-per-day") {
				if maxPerDay < 2 {
					return fmt.Errorf("--max-per-day must be at least 2, got %d", maxPerDay)
				}
				a.cfg.Backup.MaxPerDay = maxPerDay
			}
			return a.runOnce(cmd, worker.OpClean)
		},
	}

	cmd.Flags().IntVar(&maxPerDay, "max-per-day", 0, "snapshots to keep per day (default from config, 5)")
	return cmd
}

func (a *app) newCycleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cycle [source]",
		Short: "Create a snapshot, then thin old ones",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runOnce(cmd, worker.OpCycle)
		},
	}
}

// runOnce executes op synchronously through the worker so the run is
// recorded like a daemon run. A failed result becomes a non-zero exit.
func (a *app) runOnce(cmd *cobra.Command, op worker.Op) error {
	services, err := initServices(a.cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer services.Close()

	job := worker.NewJob(op, a.cfg.SourcePath(), "cli")
	results := services.Worker.Handle(cmd.Context(), job)

	var failed []string
	for _, r := range results {
		printResult(cmd.OutOrStdout(), r)
		if !r.OK() {
			failed = append(failed, string(r.Op))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%s failed, see %s", failed[0], audit.Path(a.cfg.SourcePath()))
	}
	return nil
}

func printResult(w io.Writer, r housekeeping.Result) {
	switch r.Outcome {
	case housekeeping.OutcomeCreated:
		fmt.Fprintf(w, "backup created: %s (%d bytes)\n", r.Path, r.Size)
	case housekeeping.OutcomeCleaned:
		fmt.Fprintf(w, "cleanup finished: %d deleted, %d kept\n", r.Deleted, r.Kept)
	case housekeeping.OutcomeDeferred:
		fmt.Fprintf(w, "backup deferred: database is in use\n")
	case housekeeping.OutcomeAbsent:
		fmt.Fprintf(w, "cleanup skipped: no Backups directory\n")
	default:
		fmt.Fprintf(w, "%s failed: %v\n", r.Op, r.Err)
	}
}
