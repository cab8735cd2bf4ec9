// Package datasource defines the byte-stream seam between the run engine and
// wherever source files live. Only the local filesystem is implemented
// (package file).
package datasource

import (
	"context"
	"io"
)

// Source yields a fresh UTF-8 byte stream on every Open.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// Path names the source in errors and logs.
	Path() string
}
