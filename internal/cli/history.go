package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/raoulx24/dbkeeper/internal/history"
)

func (a *app) newHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent backup and cleanup runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !a.cfg.History.Enabled {
				return errors.New("run history is disabled in the config")
			}

			store, err := history.Open(a.cfg.HistoryPath())
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "no runs recorded")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tOP\tOUTCOME\tDURATION\tDETAIL")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					r.StartedAt.Local().Format("2006-01-02 15:04:05"),
					r.Op,
					r.Outcome,
					r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond),
					r.Message,
				)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs to show")
	return cmd
}
