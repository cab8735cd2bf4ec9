// Package postgres implements the run ledger on PostgreSQL using a pgx v5
// connection pool.
package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"phaeton/internal/storage"
)

const createTable = `CREATE TABLE IF NOT EXISTS ` + storage.Table + ` (
	run_id       UUID PRIMARY KEY,
	job          TEXT NOT NULL,
	source       TEXT NOT NULL,
	output       TEXT NOT NULL,
	quarantine   TEXT NOT NULL DEFAULT '',
	processed    BIGINT NOT NULL,
	saved        BIGINT NOT NULL,
	quarantined  BIGINT NOT NULL,
	parse_errors BIGINT NOT NULL,
	duration_ms  BIGINT NOT NULL,
	started_at   TIMESTAMPTZ NOT NULL,
	status       TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT ''
)`

const createIndex = `CREATE INDEX IF NOT EXISTS ` + storage.Table + `_job_started
	ON ` + storage.Table + ` (job, started_at DESC)`

const columns = `run_id, job, source, output, quarantine, processed, saved,
	quarantined, parse_errors, duration_ms, started_at, status, error`

// Ledger is a Postgres-backed storage.Ledger.
type Ledger struct {
	pool *pgxpool.Pool
}

// newLedger is a test hook that points to Open by default.
var newLedger = Open

func init() {
	storage.Register("postgres", func(ctx context.Context, cfg storage.Config) (storage.Ledger, error) {
		return newLedger(ctx, cfg.DSN)
	})
}

// Open connects to dsn and ensures the ledger table exists.
func Open(ctx context.Context, dsn string) (*Ledger, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("postgres: DSN must not be empty")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	for _, stmt := range []string{createTable, createIndex} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("postgres: create table: %w", err)
		}
	}
	return &Ledger{pool: pool}, nil
}

// Record implements storage.Ledger.
func (l *Ledger) Record(ctx context.Context, r storage.RunRecord) error {
	_, err := l.pool.Exec(ctx,
		`INSERT INTO `+storage.Table+` (`+columns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		r.RunID, r.Job, r.Source, r.Output, r.Quarantine,
		int64(r.Processed), int64(r.Saved), int64(r.Quarantined), int64(r.ParseErrors),
		r.Duration.Milliseconds(), r.StartedAt, r.Status, r.Error,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert run: %w", err)
	}
	return nil
}

// Recent implements storage.Ledger.
func (l *Ledger) Recent(ctx context.Context, job string, n int) ([]storage.RunRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	rows, err := l.pool.Query(ctx,
		`SELECT `+columns+` FROM `+storage.Table+`
		 WHERE ($1 = '' OR job = $1)
		 ORDER BY started_at DESC
		 LIMIT $2`, job, n)
	if err != nil {
		return nil, fmt.Errorf("postgres: query runs: %w", err)
	}
	out, err := pgx.CollectRows(rows, scanRun)
	if err != nil {
		return nil, fmt.Errorf("postgres: scan runs: %w", err)
	}
	return out, nil
}

func scanRun(row pgx.CollectableRow) (storage.RunRecord, error) {
	var (
		r                          storage.RunRecord
		proc, saved, quar, parseEr int64
		durMS                      int64
	)
	err := row.Scan(&r.RunID, &r.Job, &r.Source, &r.Output, &r.Quarantine,
		&proc, &saved, &quar, &parseEr, &durMS, &r.StartedAt, &r.Status, &r.Error)
	if err != nil {
		return storage.RunRecord{}, err
	}
	r.Processed, r.Saved, r.Quarantined, r.ParseErrors = uint64(proc), uint64(saved), uint64(quar), uint64(parseEr)
	r.Duration = time.Duration(durMS) * time.Millisecond
	r.StartedAt = r.StartedAt.UTC()
	return r, nil
}

// Close implements storage.Ledger.
func (l *Ledger) Close() error {
	l.pool.Close()
	return nil
}

var _ storage.Ledger = (*Ledger)(nil)
