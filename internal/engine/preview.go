package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"phaeton/internal/config"
	csvparser "phaeton/internal/parser/csv"
	"phaeton/internal/transformer"
)

// Preview is an in-memory result of Peek or Head.
type Preview struct {
	Header []string
	Rows   [][]string
}

// Maps returns every row as a column→value map keyed by Header. Fields past
// the header width are dropped; missing trailing fields are absent.
func (p Preview) Maps() []map[string]string {
	out := make([]map[string]string, len(p.Rows))
	for i, row := range p.Rows {
		m := make(map[string]string, len(p.Header))
		for j, v := range row {
			if j < len(p.Header) {
				m[p.Header[j]] = v
			}
		}
		out[i] = m
	}
	return out
}

// Peek runs steps over src without writing any file and returns the output
// header with the first limit kept rows (limit 0 means all of them). Ragged
// rows are tolerated rather than skipped, which makes Peek suitable for
// exploring files a strict Run would partially reject.
func (e *Engine) Peek(ctx context.Context, src config.Source, steps []config.Options, limit int) (Preview, error) {
	log := e.logger()
	reader, rc, err := openSource(ctx, src, csvparser.Options{
		Flexible:   true,
		LazyQuotes: true,
		OnError: func(line int, err error) {
			log.Debug("peek: skipping malformed row", zap.Int("line", line), zap.Error(err))
		},
	})
	if err != nil {
		return Preview{}, err
	}
	defer rc.Close()

	steps, err = resolveRefFiles(ctx, steps, src.Encoding)
	if err != nil {
		return Preview{}, err
	}
	header, err := transformer.CompileHeaders(reader.Header(), steps)
	if err != nil {
		return Preview{}, fmt.Errorf("compile headers: %w", err)
	}
	pipe, err := transformer.Compile(reader.Header(), steps, log)
	if err != nil {
		return Preview{}, fmt.Errorf("compile steps: %w", err)
	}

	pv := Preview{Header: header}
	size := e.batchSize()
	if limit > 0 {
		size = min(size, limit)
	}
	batch := make([][]string, 0, size)
	for {
		if err := ctx.Err(); err != nil {
			return Preview{}, err
		}
		var rerr error
		batch, rerr = reader.ReadBatch(batch[:0], size)
		if rerr != nil && !errors.Is(rerr, io.EOF) {
			return Preview{}, fmt.Errorf("%w: %w", ErrIO, rerr)
		}
		for _, rec := range batch {
			res := transformer.Apply(rec, pipe)
			if !res.Kept {
				continue
			}
			pv.Rows = append(pv.Rows, res.Record)
			if limit > 0 && len(pv.Rows) >= limit {
				return pv, nil
			}
		}
		if errors.Is(rerr, io.EOF) {
			return pv, nil
		}
	}
}

// Head returns the source header and the first n raw records, untouched by
// any step. n <= 0 yields the header only.
func (e *Engine) Head(ctx context.Context, src config.Source, n int) (Preview, error) {
	reader, rc, err := openSource(ctx, src, csvparser.Options{Flexible: true, LazyQuotes: true})
	if err != nil {
		return Preview{}, err
	}
	defer rc.Close()

	pv := Preview{Header: reader.Header()}
	if n <= 0 {
		return pv, nil
	}
	rows, err := reader.ReadBatch(make([][]string, 0, min(n, e.batchSize())), n)
	if err != nil && !errors.Is(err, io.EOF) {
		return Preview{}, fmt.Errorf("%w: %w", ErrIO, err)
	}
	pv.Rows = rows
	return pv, nil
}

// Check opens the source header and compiles p's steps against it without
// reading any record or creating any file. It returns the output header.
func (e *Engine) Check(ctx context.Context, p config.Pipeline) ([]string, error) {
	reader, rc, err := openSource(ctx, p.Source, csvparser.Options{Flexible: true})
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	steps, err := resolveRefFiles(ctx, p.Steps, p.Source.Encoding)
	if err != nil {
		return nil, err
	}
	header, err := transformer.CompileHeaders(reader.Header(), steps)
	if err != nil {
		return nil, fmt.Errorf("compile headers: %w", err)
	}
	if _, err := transformer.Compile(reader.Header(), steps, e.logger()); err != nil {
		return nil, fmt.Errorf("compile steps: %w", err)
	}
	return header, nil
}
