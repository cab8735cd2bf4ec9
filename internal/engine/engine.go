// Package engine drives a cleaning run end to end.
//
// A run reads the source in fixed-size batches, maps every record of a batch
// through the compiled step pipeline on a bounded worker pool, and writes the
// results back sequentially so the clean and quarantine sinks preserve input
// order. Batches are strictly sequential; parallelism exists only inside a
// batch.
//
//	reader (1) → batch → errgroup map (N workers) → writer (1)
//
// Per-row failures never abort a run: they become quarantined rows. Compile
// errors and I/O failures abort before or during the run.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"phaeton/internal/config"
	"phaeton/internal/datasource/file"
	"phaeton/internal/metrics"
	csvparser "phaeton/internal/parser/csv"
	"phaeton/internal/transformer"
)

// DefaultBatchSize is used when no batch size is configured.
const DefaultBatchSize = 10000

// Engine holds the scheduler knobs. The zero value is usable.
type Engine struct {
	// BatchSize is the number of records per batch; <= 0 means DefaultBatchSize.
	BatchSize int
	// Workers bounds the per-batch worker pool; <= 0 means runtime.NumCPU().
	Workers int
	// Log receives progress and summary lines; nil means no logging.
	Log *zap.Logger
}

// New returns an Engine configured from the pipeline's runtime section.
func New(rt config.RuntimeConfig, log *zap.Logger) *Engine {
	return &Engine{BatchSize: rt.BatchSize, Workers: rt.Workers, Log: log}
}

func (e *Engine) logger() *zap.Logger {
	if e.Log == nil {
		return zap.NewNop()
	}
	return e.Log
}

func (e *Engine) batchSize() int {
	if e.BatchSize <= 0 {
		return DefaultBatchSize
	}
	return e.BatchSize
}

func (e *Engine) workers() int {
	if e.Workers <= 0 {
		return runtime.NumCPU()
	}
	return e.Workers
}

// Run executes the pipeline described by p: it reads p.Source, applies
// p.Steps to every record and writes kept rows to p.Output.Path and, when
// configured, discarded rows plus their reason to p.Output.Quarantine.
//
// Context cancellation is checked between batches; a cancelled run returns
// ctx.Err() together with the statistics gathered so far. Sinks are flushed
// only on success.
func (e *Engine) Run(ctx context.Context, p config.Pipeline) (stats ExecutionStats, err error) {
	start := time.Now()
	runID := uuid.New()
	job := p.Job
	if job == "" {
		job = metrics.DefaultJobLabel
	}
	log := e.logger().With(zap.String("job", job), zap.String("run_id", runID.String()))

	var c counters
	defer func() {
		stats = c.snapshot(runID, time.Since(start))
		metrics.RecordStep(job, "run", err, stats.Duration)
		recordMetrics(job, stats)
	}()

	parseAgg := newErrAgg(thisMany)
	reader, src, err := openSource(ctx, p.Source, csvparser.Options{
		OnError: func(line int, err error) {
			c.parseErrors.Add(1)
			if parseAgg.add(fmt.Sprintf("line=%d: %v", line, err)) {
				log.Warn("skipping malformed row", zap.Int("line", line), zap.Error(err))
			}
		},
	})
	if err != nil {
		return stats, err
	}
	defer src.Close()

	steps, err := resolveRefFiles(ctx, p.Steps, p.Source.Encoding)
	if err != nil {
		return stats, err
	}
	outHeader, err := transformer.CompileHeaders(reader.Header(), steps)
	if err != nil {
		return stats, fmt.Errorf("compile headers: %w", err)
	}
	pipe, err := transformer.Compile(reader.Header(), steps, log)
	if err != nil {
		return stats, fmt.Errorf("compile steps: %w", err)
	}

	workers := e.workers()
	if pipe.Ordered() {
		workers = 1
	}
	log.Info("run started",
		zap.String("source", p.Source.Path),
		zap.String("output", p.Output.Path),
		zap.String("quarantine", p.Output.Quarantine),
		zap.Int("steps", pipe.Len()),
		zap.Int("batch_size", e.batchSize()),
		zap.Int("workers", workers),
		zap.Bool("ordered", pipe.Ordered()),
	)

	out, err := openSink(p.Output.Path, outHeader)
	if err != nil {
		return stats, err
	}
	defer out.close()

	var quarantine *sink
	if p.Output.Quarantine != "" {
		qHeader := append(append([]string(nil), outHeader...), csvparser.ReasonColumn)
		if quarantine, err = openSink(p.Output.Quarantine, qHeader); err != nil {
			return stats, err
		}
		defer quarantine.close()
	}

	reasonAgg := newErrAgg(thisMany)
	size := e.batchSize()
	batch := make([][]string, 0, size)
	results := make([]transformer.Result, size)
	var read int

	for {
		if err := ctx.Err(); err != nil {
			log.Warn("run cancelled", zap.Uint64("processed", c.processed.Load()))
			return stats, err
		}

		n := size
		if p.Runtime.Limit > 0 {
			n = min(n, p.Runtime.Limit-read)
			if n <= 0 {
				break
			}
		}

		var rerr error
		batch, rerr = reader.ReadBatch(batch[:0], n)
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return stats, fmt.Errorf("%w: %w", ErrIO, rerr)
		}

		if len(batch) > 0 {
			read += len(batch)
			res := results[:len(batch)]
			mapBatch(batch, res, pipe, workers)

			for _, r := range res {
				c.processed.Add(1)
				if r.Kept {
					if err := out.w.Write(r.Record); err != nil {
						return stats, fmt.Errorf("%w: write %s: %w", ErrIO, p.Output.Path, err)
					}
					c.saved.Add(1)
					continue
				}
				c.quarantined.Add(1)
				reasonAgg.add(r.Reason)
				if quarantine != nil {
					if err := quarantine.w.WriteWithReason(r.Record, r.Reason); err != nil {
						return stats, fmt.Errorf("%w: write %s: %w", ErrIO, p.Output.Quarantine, err)
					}
				}
			}
			clear(res)

			batchNum := c.batches.Add(1)
			log.Debug("batch",
				zap.Uint64("batch", batchNum),
				zap.Int("rows", len(batch)),
				zap.Uint64("total_processed", c.processed.Load()),
				zap.Duration("elapsed", time.Since(start).Truncate(time.Millisecond)),
			)
		}

		if errors.Is(rerr, io.EOF) {
			break
		}
	}

	if err := out.flush(); err != nil {
		return stats, err
	}
	if quarantine != nil {
		if err := quarantine.flush(); err != nil {
			return stats, err
		}
	}

	parseAgg.log(log, "parse errors")
	reasonAgg.log(log, "quarantine reasons")
	logSummary(log, c.snapshot(runID, time.Since(start)))
	return stats, nil
}

// mapBatch applies pipe to every record of batch, storing the result at the
// same index. The batch is split into contiguous chunks, one goroutine per
// chunk, so results land in input order regardless of completion order.
func mapBatch(batch [][]string, results []transformer.Result, pipe *transformer.Pipeline, workers int) {
	if workers <= 1 || len(batch) < 2 {
		for i, rec := range batch {
			results[i] = transformer.Apply(rec, pipe)
		}
		return
	}

	chunk := (len(batch) + workers - 1) / workers
	var g errgroup.Group
	g.SetLimit(workers)
	for lo := 0; lo < len(batch); lo += chunk {
		hi := min(lo+chunk, len(batch))
		g.Go(func() error {
			for i := lo; i < hi; i++ {
				results[i] = transformer.Apply(batch[i], pipe)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// sink is an output file with its CSV writer.
type sink struct {
	path string
	f    io.Closer
	w    *csvparser.Writer
}

func openSink(path string, header []string) (*sink, error) {
	f, err := file.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	w := csvparser.NewWriter(f, ',')
	if err := w.WriteHeader(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: write %s: %w", ErrIO, path, err)
	}
	return &sink{path: path, f: f, w: w}, nil
}

func (s *sink) flush() error {
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("%w: flush %s: %w", ErrIO, s.path, err)
	}
	return nil
}

func (s *sink) close() { _ = s.f.Close() }
