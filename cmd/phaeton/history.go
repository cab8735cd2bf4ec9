package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"phaeton/internal/config"
	"phaeton/internal/storage"
)

func newHistoryCmd() *cobra.Command {
	var (
		cfgPath string
		ledger  config.LedgerConfig
		job     string
		n       int
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent runs from the run ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfgPath != "" {
				p, err := loadPipeline(cfgPath)
				if err != nil {
					return err
				}
				if ledger.Kind == "" {
					ledger = p.Ledger
				}
				if job == "" {
					job = p.Job
				}
			}
			if ledger.Kind == "" {
				return fmt.Errorf("no ledger configured (use --config or --ledger-kind/--ledger-dsn)")
			}

			l, err := storage.Open(cmd.Context(), ledger)
			if err != nil {
				return err
			}
			defer l.Close()

			runs, err := l.Recent(cmd.Context(), job, n)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tJOB\tSTATUS\tPROCESSED\tSAVED\tQUARANTINED\tDURATION\tRUN ID")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					r.StartedAt.Local().Format(time.DateTime),
					r.Job,
					r.Status,
					humanize.Comma(int64(r.Processed)),
					humanize.Comma(int64(r.Saved)),
					humanize.Comma(int64(r.Quarantined)),
					r.Duration.Truncate(time.Millisecond),
					r.RunID,
				)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&cfgPath, "config", "", "read ledger settings and job from a pipeline file")
	cmd.Flags().StringVar(&ledger.Kind, "ledger-kind", "", "ledger backend (sqlite, postgres)")
	cmd.Flags().StringVar(&ledger.DSN, "ledger-dsn", "", "ledger DSN")
	cmd.Flags().StringVar(&job, "job", "", "only runs of this job")
	cmd.Flags().IntVarP(&n, "limit", "n", 20, "number of runs")
	return cmd
}
