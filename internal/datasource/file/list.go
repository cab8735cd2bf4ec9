package file

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"phaeton/internal/datasource"
)

// ReadList reads a newline-delimited vocabulary from src and returns its
// distinct non-empty, non-comment lines in first-seen order. The align step
// uses it to load reference lists ("ref_file") that are too long to inline in
// a pipeline file; the source's encoding setting applies.
//
// Lines that are empty or start with '#' (after trimming surrounding
// whitespace) are skipped.
func ReadList(ctx context.Context, src datasource.Source) ([]string, error) {
	rc, err := src.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var out []string
	seen := make(map[string]struct{})
	scanner := bufio.NewScanner(rc)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if _, dup := seen[line]; dup {
			continue
		}
		seen[line] = struct{}{}
		out = append(out, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read list %s: %w", src.Path(), err)
	}
	return out, nil
}
