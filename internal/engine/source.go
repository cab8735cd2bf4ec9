package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"phaeton/internal/config"
	"phaeton/internal/datasource"
	"phaeton/internal/datasource/file"
	csvparser "phaeton/internal/parser/csv"
)

var (
	// ErrSourceNotFound is returned when the source path does not exist.
	ErrSourceNotFound = errors.New("source not found")

	// ErrIO wraps fatal failures to open, read, create or write run files.
	ErrIO = errors.New("i/o failure")
)

// localSource binds a configured path to the filesystem.
func localSource(path, encoding string) datasource.Source {
	return file.NewLocal(path).WithEncoding(encoding)
}

// openSource opens the configured source and reads its header. The returned
// closer must be closed by the caller once the reader is drained.
func openSource(ctx context.Context, src config.Source, opt csvparser.Options) (*csvparser.Reader, io.Closer, error) {
	ds := localSource(src.Path, src.Encoding)
	rc, err := ds.Open(ctx)
	if err != nil {
		switch {
		case errors.Is(err, file.ErrNotFound):
			return nil, nil, fmt.Errorf("%w: %w", ErrSourceNotFound, err)
		case ctx.Err() != nil:
			return nil, nil, err
		default:
			return nil, nil, fmt.Errorf("%w: %w", ErrIO, err)
		}
	}

	opt.Comma = comma(src)
	r, err := csvparser.NewReader(rc, opt)
	if err != nil {
		rc.Close()
		return nil, nil, fmt.Errorf("%w: %s: %w", ErrIO, ds.Path(), err)
	}
	return r, rc, nil
}

// comma returns the first rune of the configured delimiter, or ','.
func comma(src config.Source) rune {
	for _, r := range src.Comma {
		return r
	}
	return ','
}

// resolveRefFiles returns a copy of steps where every align step carrying a
// "ref_file" gets its reference list loaded into "ref". Entries already
// present in "ref" come first. The caller's steps are never modified.
func resolveRefFiles(ctx context.Context, steps []config.Options, encoding string) ([]config.Options, error) {
	out := make([]config.Options, len(steps))
	copy(out, steps)

	for i, st := range steps {
		path := st.String("ref_file", "")
		if st.Action() != "align" || path == "" {
			continue
		}
		list, err := file.ReadList(ctx, localSource(path, encoding))
		if err != nil {
			return nil, fmt.Errorf("step %d (align): ref_file: %w: %w", i, ErrIO, err)
		}

		cp := make(config.Options, len(st)+1)
		for k, v := range st {
			cp[k] = v
		}
		ref := make([]any, 0, len(list))
		for _, s := range st.StringSlice("ref") {
			ref = append(ref, s)
		}
		for _, s := range list {
			ref = append(ref, s)
		}
		cp["ref"] = ref
		out[i] = cp
	}
	return out, nil
}
