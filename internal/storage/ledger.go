// Package storage records finished runs in a ledger so past results can be
// listed later ("phaeton history").
//
// Backends live in subpackages and register a Factory for their kind from an
// init function; importing storage/all enables every built-in backend. The
// rest of the program depends only on the Ledger interface.
package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"phaeton/internal/config"
)

// Table is the name of the run ledger table in every backend.
const Table = "phaeton_runs"

// Run outcomes.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// ErrUnknownKind is returned by Open for a kind no backend registered.
var ErrUnknownKind = errors.New("unknown ledger kind")

// RunRecord is one ledger row.
type RunRecord struct {
	RunID       uuid.UUID
	Job         string
	Source      string
	Output      string
	Quarantine  string
	Processed   uint64
	Saved       uint64
	Quarantined uint64
	ParseErrors uint64
	Duration    time.Duration
	StartedAt   time.Time
	Status      string
	Error       string
}

// Ledger persists run records.
type Ledger interface {
	// Record inserts r. Recording the same RunID twice is an error.
	Record(ctx context.Context, r RunRecord) error
	// Recent returns up to n records, newest first. An empty job matches
	// every job.
	Recent(ctx context.Context, job string, n int) ([]RunRecord, error)
	Close() error
}

// Config is the backend-agnostic ledger configuration.
type Config struct {
	Kind string
	DSN  string
}

// Factory opens a ledger for cfg. Backends create their table if needed.
type Factory func(ctx context.Context, cfg Config) (Ledger, error)

var (
	mu        sync.RWMutex
	factories = map[string]Factory{}
)

// Register registers (or replaces) the factory for kind. It is typically
// called from backend packages' init functions.
func Register(kind string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[kind] = f
}

// Open returns the ledger configured by cfg. An empty kind yields a ledger
// that discards records.
func Open(ctx context.Context, cfg config.LedgerConfig) (Ledger, error) {
	if cfg.Kind == "" {
		return Nop{}, nil
	}
	mu.RLock()
	f, ok := factories[cfg.Kind]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (is the backend imported?)", ErrUnknownKind, cfg.Kind)
	}
	l, err := f(ctx, Config{Kind: cfg.Kind, DSN: cfg.DSN})
	if err != nil {
		return nil, fmt.Errorf("open %s ledger: %w", cfg.Kind, err)
	}
	return l, nil
}

// Nop is a Ledger that stores nothing.
type Nop struct{}

func (Nop) Record(context.Context, RunRecord) error                  { return nil }
func (Nop) Recent(context.Context, string, int) ([]RunRecord, error) { return nil, nil }
func (Nop) Close() error                                             { return nil }
