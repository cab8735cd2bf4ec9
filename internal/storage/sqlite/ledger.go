// Package sqlite implements the run ledger on an embedded SQLite database
// through database/sql and the pure-Go modernc driver.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"phaeton/internal/storage"
)

const createTable = `CREATE TABLE IF NOT EXISTS ` + storage.Table + ` (
	run_id       TEXT PRIMARY KEY,
	job          TEXT NOT NULL,
	source       TEXT NOT NULL,
	output       TEXT NOT NULL,
	quarantine   TEXT NOT NULL DEFAULT '',
	processed    INTEGER NOT NULL,
	saved        INTEGER NOT NULL,
	quarantined  INTEGER NOT NULL,
	parse_errors INTEGER NOT NULL,
	duration_ms  INTEGER NOT NULL,
	started_at   INTEGER NOT NULL,
	status       TEXT NOT NULL,
	error        TEXT NOT NULL DEFAULT ''
)`

const createIndex = `CREATE INDEX IF NOT EXISTS ` + storage.Table + `_job_started
	ON ` + storage.Table + ` (job, started_at)`

const columns = `run_id, job, source, output, quarantine, processed, saved,
	quarantined, parse_errors, duration_ms, started_at, status, error`

// Ledger is a SQLite-backed storage.Ledger.
type Ledger struct {
	db *sql.DB
}

// newLedger is a test hook that points to Open by default.
var newLedger = Open

func init() {
	storage.Register("sqlite", func(ctx context.Context, cfg storage.Config) (storage.Ledger, error) {
		return newLedger(ctx, cfg.DSN)
	})
}

// Open opens (creating if needed) the database at dsn and ensures the ledger
// table exists. dsn is passed to the driver as-is, e.g. "runs.db" or
// "file:runs.db?_pragma=busy_timeout(5000)".
func Open(ctx context.Context, dsn string) (*Ledger, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("sqlite: DSN must not be empty")
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// One writer; SQLite serializes writes anyway.
	db.SetMaxOpenConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite: ping: %w", err)
	}

	for _, stmt := range []string{createTable, createIndex} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("sqlite: create table: %w", err)
		}
	}
	return &Ledger{db: db}, nil
}

// Record implements storage.Ledger.
func (l *Ledger) Record(ctx context.Context, r storage.RunRecord) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO `+storage.Table+` (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID.String(), r.Job, r.Source, r.Output, r.Quarantine,
		int64(r.Processed), int64(r.Saved), int64(r.Quarantined), int64(r.ParseErrors),
		r.Duration.Milliseconds(), r.StartedAt.UnixNano(), r.Status, r.Error,
	)
	if err != nil {
		return fmt.Errorf("sqlite: insert run: %w", err)
	}
	return nil
}

// Recent implements storage.Ledger.
func (l *Ledger) Recent(ctx context.Context, job string, n int) ([]storage.RunRecord, error) {
	if n <= 0 {
		return nil, nil
	}
	q := `SELECT ` + columns + ` FROM ` + storage.Table
	args := []any{}
	if job != "" {
		q += ` WHERE job = ?`
		args = append(args, job)
	}
	q += ` ORDER BY started_at DESC LIMIT ?`
	args = append(args, n)

	rows, err := l.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: query runs: %w", err)
	}
	defer rows.Close()

	var out []storage.RunRecord
	for rows.Next() {
		var (
			r                          storage.RunRecord
			id                         string
			proc, saved, quar, parseEr int64
			durMS, startedNS           int64
		)
		if err := rows.Scan(&id, &r.Job, &r.Source, &r.Output, &r.Quarantine,
			&proc, &saved, &quar, &parseEr, &durMS, &startedNS, &r.Status, &r.Error); err != nil {
			return nil, fmt.Errorf("sqlite: scan run: %w", err)
		}
		if r.RunID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("sqlite: run id %q: %w", id, err)
		}
		r.Processed, r.Saved, r.Quarantined, r.ParseErrors = uint64(proc), uint64(saved), uint64(quar), uint64(parseEr)
		r.Duration = time.Duration(durMS) * time.Millisecond
		r.StartedAt = time.Unix(0, startedNS).UTC()
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterate runs: %w", err)
	}
	return out, nil
}

// Close implements storage.Ledger.
func (l *Ledger) Close() error { return l.db.Close() }

var _ storage.Ledger = (*Ledger)(nil)
