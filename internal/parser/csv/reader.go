// Package csv reads delimited sources in fixed-size batches and writes clean
// and quarantine sinks. It wraps encoding/csv: the whole file is never
// buffered, and rows the CSV layer cannot parse are reported through a
// callback and skipped rather than aborting the read.
package csv

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ErrRecordParse marks a per-row parse failure. Errors passed to
// Options.OnError wrap it together with the underlying *csv.ParseError.
var ErrRecordParse = errors.New("record parse error")

// Options configures a Reader. All fields are optional.
type Options struct {
	// Comma is the field delimiter. When zero, ',' is used.
	Comma rune

	// Flexible tolerates records whose field count differs from the header.
	// When false, such records are parse errors and are skipped.
	Flexible bool

	// LazyQuotes relaxes quote handling (see encoding/csv.Reader.LazyQuotes).
	LazyQuotes bool

	// OnError receives recoverable row errors with the 1-based line number of
	// the offending record. The record is skipped.
	OnError func(line int, err error)
}

// Reader yields the header row once, then records in batches.
type Reader struct {
	cr     *csv.Reader
	opt    Options
	header []string
}

// NewReader reads the header row from r and returns a Reader positioned at
// the first data record. A missing or unparsable header is fatal.
func NewReader(r io.Reader, opt Options) (*Reader, error) {
	cr := csv.NewReader(r)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.LazyQuotes = opt.LazyQuotes
	// Width is enforced after the header is known.
	cr.FieldsPerRecord = -1

	hdr, err := cr.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("read header: empty source")
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	hdr = append([]string(nil), hdr...)
	if len(hdr) > 0 {
		hdr[0] = strings.TrimPrefix(hdr[0], "\uFEFF")
	}

	if !opt.Flexible {
		cr.FieldsPerRecord = len(hdr)
	}
	return &Reader{cr: cr, opt: opt, header: hdr}, nil
}

// Header returns the source header row. Callers must not modify it.
func (r *Reader) Header() []string { return r.header }

// ReadBatch appends up to n records to dst[:0] and returns it. Records that
// fail to parse are reported via OnError and do not count toward n. At end of
// input it returns the records read so far together with io.EOF; a batch that
// is both non-empty and final therefore comes back with io.EOF.
func (r *Reader) ReadBatch(dst [][]string, n int) ([][]string, error) {
	dst = dst[:0]
	for len(dst) < n {
		rec, err := r.cr.Read()
		if err == io.EOF {
			return dst, io.EOF
		}
		if err != nil {
			var pe *csv.ParseError
			if !errors.As(err, &pe) {
				// Not a row-level problem (e.g. the underlying reader failed).
				return dst, fmt.Errorf("csv read: %w", err)
			}
			if r.opt.OnError != nil {
				r.opt.OnError(pe.StartLine, fmt.Errorf("%w: %w", ErrRecordParse, err))
			}
			continue
		}
		dst = append(dst, rec)
	}
	return dst, nil
}
