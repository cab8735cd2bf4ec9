// Package metrics provides a small, backend-agnostic abstraction for recording
// operational metrics from cleaning runs.
//
// The package exposes a narrow interface (Backend) focused on counters and
// timing data, and a global, pluggable backend that defaults to a no-op
// implementation, so metrics are always safe to call even when no real
// backend is configured. Concrete metric systems live in subpackages
// (prompush, datadog) and are selected by Open.
package metrics

import (
	"fmt"
	"time"

	"phaeton/internal/config"
)

// Metric names emitted by the helpers below.
const (
	StepTotal       = "phaeton_step_total"
	StepDuration    = "phaeton_step_duration_seconds"
	RowsTotal       = "phaeton_rows_total"
	BatchesTotal    = "phaeton_batches_total"
	DefaultJobLabel = "phaeton"
)

// Labels are string key/value pairs attached to a metric.
type Labels map[string]string

// Backend is the minimal interface for metrics backends.
type Backend interface {
	// IncCounter increments a counter by delta.
	IncCounter(name string, delta float64, labels Labels)
	// ObserveHistogram records a value in a latency/duration style metric.
	ObserveHistogram(name string, value float64, labels Labels)
	// Flush pushes or flushes metrics, if the backend needs it (e.g. Pushgateway).
	Flush() error
}

// nopBackend is used by default so metrics are optional.
type nopBackend struct{}

func (nopBackend) IncCounter(string, float64, Labels)       {}
func (nopBackend) ObserveHistogram(string, float64, Labels) {}
func (nopBackend) Flush() error                             { return nil }

var backend Backend = nopBackend{}

// SetBackend installs a concrete backend. Passing nil keeps the existing backend.
func SetBackend(b Backend) {
	if b == nil {
		return
	}
	backend = b
}

// Flush delegates to the current backend.
func Flush() error {
	return backend.Flush()
}

// Factory builds a backend for a job from the pipeline's metrics settings.
type Factory func(job string, cfg config.MetricsConfig) (Backend, error)

var factories = map[string]Factory{}

// Register makes a backend constructor available to Open under kind. It is
// meant to be called from backend package init functions.
func Register(kind string, f Factory) {
	factories[kind] = f
}

// Open builds the backend named by cfg.Backend. "" and "none" yield the no-op
// backend.
func Open(cfg config.MetricsConfig, job string) (Backend, error) {
	if cfg.Backend == "" || cfg.Backend == "none" {
		return nopBackend{}, nil
	}
	f, ok := factories[cfg.Backend]
	if !ok {
		return nil, fmt.Errorf("metrics: unknown backend %q", cfg.Backend)
	}
	if job == "" {
		job = DefaultJobLabel
	}
	return f(job, cfg)
}

// RecordStep measures latency and success/failure of one stage of a run
// ("compile", "run", "peek").
func RecordStep(job, step string, err error, d time.Duration) {
	status := "success"
	if err != nil {
		status = "failure"
	}

	lbls := Labels{
		"job":    job,
		"step":   step,
		"status": status,
	}

	backend.IncCounter(StepTotal, 1, lbls)
	backend.ObserveHistogram(StepDuration, d.Seconds(), lbls)
}

// RecordRows increments the row counter for the given job and kind. Kinds
// mirror the run summary: "processed", "saved", "quarantined",
// "parse_errors".
func RecordRows(job, kind string, delta uint64) {
	if delta == 0 {
		return
	}
	backend.IncCounter(RowsTotal, float64(delta), Labels{
		"job":  job,
		"kind": kind,
	})
}

// RecordBatches increments the batch counter for the given job.
func RecordBatches(job string, delta uint64) {
	if delta == 0 {
		return
	}
	backend.IncCounter(BatchesTotal, float64(delta), Labels{
		"job": job,
	})
}
