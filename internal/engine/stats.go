package engine

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"phaeton/internal/metrics"
)

// thisMany caps the example messages kept per error aggregate.
const thisMany = 3

// ExecutionStats summarizes a finished run. It is immutable once returned.
//
// Invariant: Saved + Quarantined == Processed. Rows the reader could not
// parse are counted in ParseErrors and never enter Processed.
type ExecutionStats struct {
	RunID       uuid.UUID
	Processed   uint64
	Saved       uint64
	Quarantined uint64
	ParseErrors uint64
	Batches     uint64
	Duration    time.Duration
}

// counters holds cross-goroutine statistics for a run. The parse error
// callback may fire from the reader while the writer loop updates the rest,
// so every field is atomic.
type counters struct {
	processed   atomic.Uint64
	saved       atomic.Uint64
	quarantined atomic.Uint64
	parseErrors atomic.Uint64
	batches     atomic.Uint64
}

func (c *counters) snapshot(id uuid.UUID, d time.Duration) ExecutionStats {
	return ExecutionStats{
		RunID:       id,
		Processed:   c.processed.Load(),
		Saved:       c.saved.Load(),
		Quarantined: c.quarantined.Load(),
		ParseErrors: c.parseErrors.Load(),
		Batches:     c.batches.Load(),
		Duration:    d,
	}
}

// errAgg counts messages and keeps the first few for the end-of-run summary.
type errAgg struct {
	mu      sync.Mutex
	limit   int
	count   int
	first   []string
	buckets map[string]int
}

func newErrAgg(limit int) *errAgg {
	return &errAgg{limit: limit, buckets: make(map[string]int)}
}

// add records msg and reports whether it was among the first limit messages.
func (a *errAgg) add(msg string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.buckets[msg]++
	a.count++
	if len(a.first) < a.limit {
		a.first = append(a.first, msg)
		return true
	}
	return false
}

func (a *errAgg) log(log *zap.Logger, what string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.count == 0 {
		return
	}
	log.Info(what,
		zap.Int("count", a.count),
		zap.Int("distinct", len(a.buckets)),
		zap.Strings("first", a.first),
	)
}

// recordMetrics pushes the final counters to the metrics backend.
func recordMetrics(job string, s ExecutionStats) {
	metrics.RecordRows(job, "processed", s.Processed)
	metrics.RecordRows(job, "saved", s.Saved)
	metrics.RecordRows(job, "quarantined", s.Quarantined)
	metrics.RecordRows(job, "parse_errors", s.ParseErrors)
	metrics.RecordBatches(job, s.Batches)
}

// logSummary prints the final statistics for the run and checks row
// conservation.
func logSummary(log *zap.Logger, s ExecutionStats) {
	rate := float64(0)
	if secs := s.Duration.Seconds(); secs > 0 {
		rate = float64(s.Processed) / secs
	}
	log.Info("summary",
		zap.String("run_id", s.RunID.String()),
		zap.String("processed", humanize.Comma(int64(s.Processed))),
		zap.String("saved", humanize.Comma(int64(s.Saved))),
		zap.String("quarantined", humanize.Comma(int64(s.Quarantined))),
		zap.String("parse_errors", humanize.Comma(int64(s.ParseErrors))),
		zap.Uint64("batches", s.Batches),
		zap.String("rps", humanize.CommafWithDigits(rate, 0)),
		zap.Duration("elapsed", s.Duration.Truncate(time.Millisecond)),
	)

	if accounted := s.Saved + s.Quarantined; accounted != s.Processed {
		log.Warn("row accounting mismatch",
			zap.Uint64("processed", s.Processed),
			zap.Uint64("accounted", accounted),
			zap.String("delta", fmt.Sprintf("%+d", int64(s.Processed)-int64(accounted))),
		)
	}
}
