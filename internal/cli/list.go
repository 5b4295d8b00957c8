package cli

import (
	"fmt"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/raoulx24/dbkeeper/internal/audit"
	"github.com/raoulx24/dbkeeper/internal/logging"
	"github.com/raoulx24/dbkeeper/internal/retention"
)

type listRow struct {
	name   string
	action string
}

func (a *app) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [source]",
		Short: "List snapshots by day and what a cleanup would keep",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine := retention.New(a.cfg.Backup.MaxPerDay, audit.New(), logging.Nop())

			plan, err := engine.Plan(cmd.Context(), a.cfg.SourcePath())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(plan.Days) == 0 {
				fmt.Fprintf(out, "no snapshots in %s\n", plan.Dir)
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "DAY\tSNAPSHOT\tCLEANUP")
			for _, d := range plan.Days {
				rows := make([]listRow, 0, len(d.Keep)+len(d.Drop))
				for _, s := range d.Keep {
					rows = append(rows, listRow{s.FileName, "keep"})
				}
				for _, s := range d.Drop {
					rows = append(rows, listRow{s.FileName, "delete"})
				}
				sort.Slice(rows, func(i, j int) bool { return rows[i].name < rows[j].name })

				for _, r := range rows {
					fmt.Fprintf(tw, "%s\t%s\t%s\n", d.DayKey, r.name, r.action)
				}
			}
			if err := tw.Flush(); err != nil {
				return err
			}

			fmt.Fprintf(out, "\n%d snapshot(s), %d would be deleted (max %d per day)\n",
				plan.Total(), plan.Dropped(), plan.MaxPerDay)
			return nil
		},
	}
}
