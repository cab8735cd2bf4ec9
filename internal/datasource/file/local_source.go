// Package file implements the local filesystem side of a run: opening the
// delimited source (optionally transcoding it to UTF-8), creating sink files,
// and reading small newline-delimited reference lists.
package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/unicode"

	"phaeton/internal/datasource"
)

// ErrNotFound is returned (wrapped) when the source path does not exist.
var ErrNotFound = errors.New("source not found")

var _ datasource.Source = (*Local)(nil)

// Local is a filesystem data source that opens files from the local disk.
type Local struct {
	path     string
	encoding string
}

// NewLocal returns a new Local data source bound to the provided filesystem
// path. The returned value is safe for concurrent use by multiple goroutines
// as long as the underlying path location is valid for concurrent reads.
func NewLocal(path string) *Local { return &Local{path: path} }

// WithEncoding returns a copy of l that decodes the file from the named
// character encoding ("windows-1252", "iso-8859-2", "utf-16le", ...). Empty
// or "utf-8" means no transcoding.
func (l *Local) WithEncoding(name string) *Local {
	cp := *l
	cp.encoding = name
	return &cp
}

// Path returns the configured path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading and returns an io.ReadCloser.
//
// Behavior:
//   - If the context is already canceled at the time of the call, Open returns
//     the context error immediately without touching the filesystem.
//   - A missing file wraps both ErrNotFound and os.ErrNotExist.
//   - Other filesystem errors are wrapped with the path for context.
//   - When an encoding is configured, reads are transcoded to UTF-8.
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	enc, err := lookupEncoding(l.encoding)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("open %s: %w: %w", l.path, ErrNotFound, err)
		}
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	if enc == nil {
		return f, nil
	}

	type rc struct {
		io.Reader
		io.Closer
	}
	return &rc{Reader: enc.NewDecoder().Reader(f), Closer: f}, nil
}

// lookupEncoding resolves an encoding label. nil means "already UTF-8".
func lookupEncoding(name string) (encoding.Encoding, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	switch n {
	case "", "utf-8", "utf8", "ascii":
		return nil, nil
	case "utf-8-sig", "utf-8-bom":
		return unicode.UTF8BOM, nil
	}
	enc, err := htmlindex.Get(n)
	if err != nil {
		return nil, fmt.Errorf("unsupported encoding %q: %w", name, err)
	}
	if enc == unicode.UTF8 {
		return nil, nil
	}
	return enc, nil
}

// Create creates (or truncates) path for writing, creating parent
// directories as needed.
func Create(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create dir %s: %w", dir, err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}
