package cli

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/raoulx24/dbkeeper/internal/config"
)

// app carries the state shared by all subcommands of one invocation.
type app struct {
	cfgFile string
	cfg     *config.Config
}

// NewRootCommand builds the dbkeeper command tree.
func NewRootCommand() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "dbkeeper",
		Short: "dbkeeper - snapshots and day-based retention for SQLite files",
		Long: `dbkeeper keeps compressed snapshots of a single-file database next to it.

It provides:
- Atomic zip snapshots in a Backups directory, skipped while the database is open
- Per-day thinning that keeps the first, the last and evenly spaced snapshots
- An append-only backup_log.txt audit trail beside the database
- A daemon mode with cron schedule, file watcher, run history and HTTP API`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" || cmd.Name() == "version" {
				return nil
			}
			return a.loadConfig(cmd, args)
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "config.yaml", "config file")

	root.AddCommand(
		a.newBackupCmd(),
		a.newCleanCmd(),
		a.newCycleCmd(),
		a.newListCmd(),
		a.newHistoryCmd(),
		a.newServeCmd(),
	)

	return root
}

// Execute runs the root command
func Execute() error {
	return NewRootCommand().Execute()
}

// loadConfig reads the config file and applies a [source] argument on top.
// A missing default config file is fine for one-shot commands that get the
// source on the command line.
func (a *app) loadConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Read(a.cfgFile)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("config"):
		cfg = config.Default()
	default:
		return fmt.Errorf("failed to load config: %w", err)
	}

	if len(args) > 0 {
		cfg.Source.Path = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	a.cfg = cfg
	return nil
}
