package csv

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
)

// ReasonColumn is appended to the quarantine header; each quarantined record
// carries its discard reason in that position.
const ReasonColumn = "_phaeton_reason"

// Writer is a buffered CSV sink. It is not safe for concurrent use; the
// scheduler writes results sequentially.
type Writer struct {
	bw   *bufio.Writer
	cw   *csv.Writer
	rows int64
}

// NewWriter returns a Writer that emits records separated by comma (',' when
// zero) to w.
func NewWriter(w io.Writer, comma rune) *Writer {
	bw := bufio.NewWriterSize(w, 256*1024)
	cw := csv.NewWriter(bw)
	if comma != 0 {
		cw.Comma = comma
	}
	return &Writer{bw: bw, cw: cw}
}

// WriteHeader writes the header row. It does not count as a data row.
func (w *Writer) WriteHeader(header []string) error {
	if err := w.cw.Write(header); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// Write writes one data record.
func (w *Writer) Write(rec []string) error {
	if err := w.cw.Write(rec); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	w.rows++
	return nil
}

// WriteWithReason writes rec followed by a trailing reason field without
// mutating rec.
func (w *Writer) WriteWithReason(rec []string, reason string) error {
	row := make([]string, len(rec)+1)
	copy(row, rec)
	row[len(rec)] = reason
	return w.Write(row)
}

// Rows returns the number of data records written so far.
func (w *Writer) Rows() int64 { return w.rows }

// Flush flushes both the CSV and the byte buffers.
func (w *Writer) Flush() error {
	w.cw.Flush()
	if err := w.cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	if err := w.bw.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}
