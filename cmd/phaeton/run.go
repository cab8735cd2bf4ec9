package main

import (
	"context"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"phaeton/internal/config"
	"phaeton/internal/engine"
	"phaeton/internal/metrics"
	"phaeton/internal/storage"
)

// runResult is printed to stdout after a successful run.
type runResult struct {
	RunID       string  `json:"run_id"`
	Job         string  `json:"job"`
	Processed   uint64  `json:"processed"`
	Saved       uint64  `json:"saved"`
	Quarantined uint64  `json:"quarantined"`
	ParseErrors uint64  `json:"parse_errors"`
	Batches     uint64  `json:"batches"`
	DurationMS  int64   `json:"duration_ms"`
	Rate        float64 `json:"rows_per_second"`
}

func newRunCmd() *cobra.Command {
	var workers, batchSize, limit int

	cmd := &cobra.Command{
		Use:   "run <pipeline.(json|yaml)>",
		Short: "Clean the configured source into the clean and quarantine sinks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := loadPipeline(args[0])
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("workers") {
				p.Runtime.Workers = workers
			}
			if cmd.Flags().Changed("batch-size") {
				p.Runtime.BatchSize = batchSize
			}
			if cmd.Flags().Changed("limit") {
				p.Runtime.Limit = limit
			}
			if err := reportIssues(cmd.ErrOrStderr(), args[0], config.ValidatePipeline(p)); err != nil {
				return err
			}
			return runPipeline(cmd, p)
		},
	}
	cmd.Flags().IntVar(&workers, "workers", 0, "worker pool size (0 = all cores)")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0, "rows per batch (0 = default)")
	cmd.Flags().IntVar(&limit, "limit", 0, "stop after this many rows (0 = unlimited)")
	return cmd
}

func runPipeline(cmd *cobra.Command, p config.Pipeline) error {
	ctx := cmd.Context()
	job := p.Job
	if job == "" {
		job = metrics.DefaultJobLabel
	}

	backend, err := metrics.Open(p.Metrics, job)
	if err != nil {
		return err
	}
	metrics.SetBackend(backend)
	defer func() {
		if err := metrics.Flush(); err != nil {
			logger.Warn("metrics flush failed", zap.Error(err))
		}
	}()

	ledger, err := storage.Open(ctx, p.Ledger)
	if err != nil {
		return err
	}
	defer ledger.Close()

	started := time.Now()
	stats, runErr := engine.New(p.Runtime, logger).Run(ctx, p)

	rec := storage.RunRecord{
		RunID:       stats.RunID,
		Job:         job,
		Source:      p.Source.Path,
		Output:      p.Output.Path,
		Quarantine:  p.Output.Quarantine,
		Processed:   stats.Processed,
		Saved:       stats.Saved,
		Quarantined: stats.Quarantined,
		ParseErrors: stats.ParseErrors,
		Duration:    stats.Duration,
		StartedAt:   started.UTC(),
		Status:      storage.StatusOK,
	}
	if runErr != nil {
		rec.Status, rec.Error = storage.StatusFailed, runErr.Error()
	}
	// Record even when the run was interrupted.
	if err := ledger.Record(context.WithoutCancel(ctx), rec); err != nil {
		logger.Warn("ledger record failed", zap.Error(err))
	}
	if runErr != nil {
		return runErr
	}

	rate := 0.0
	if secs := stats.Duration.Seconds(); secs > 0 {
		rate = float64(stats.Processed) / secs
	}
	logger.Info("run complete",
		zap.String("saved", humanize.Comma(int64(stats.Saved))),
		zap.String("quarantined", humanize.Comma(int64(stats.Quarantined))),
		zap.String("elapsed", stats.Duration.Truncate(time.Millisecond).String()),
	)
	return writeJSON(cmd.OutOrStdout(), runResult{
		RunID:       stats.RunID.String(),
		Job:         job,
		Processed:   stats.Processed,
		Saved:       stats.Saved,
		Quarantined: stats.Quarantined,
		ParseErrors: stats.ParseErrors,
		Batches:     stats.Batches,
		DurationMS:  stats.Duration.Milliseconds(),
		Rate:        rate,
	})
}
