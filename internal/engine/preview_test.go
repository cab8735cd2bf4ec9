package engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phaeton/internal/config"
	"phaeton/internal/transformer"
)

func TestPeek(t *testing.T) {
	dir := t.TempDir()
	src := config.Source{Path: writeFile(t, dir, "in.csv", "id;Status\n1;active\n2;gone\n3;active;extra\n4\n5;active\n")}
	src.Comma = ";"
	steps := []config.Options{
		{"action": "keep", "col": "Status", "match": "active"},
		{"action": "headers", "style": "upper"}, // unknown style is a compile error
	}

	e := &Engine{}
	_, err := e.Peek(context.Background(), src, steps, 0)
	require.Error(t, err)

	steps[1] = config.Options{"action": "headers", "style": "constant"}
	pv, err := e.Peek(context.Background(), src, steps, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"ID", "STATUS"}, pv.Header)
	assert.Equal(t, [][]string{{"1", "active"}, {"3", "active", "extra"}}, pv.Rows)
	assert.Equal(t, []map[string]string{
		{"ID": "1", "STATUS": "active"},
		{"ID": "3", "STATUS": "active"},
	}, pv.Maps())

	all, err := e.Peek(context.Background(), src, steps, 0)
	require.NoError(t, err)
	assert.Len(t, all.Rows, 3)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "peek must not create files")
}

func TestPeek_FFillIsSequential(t *testing.T) {
	src := config.Source{Path: writeFile(t, t.TempDir(), "in.csv", "a\nx\n\n\ny\n\n")}
	pv, err := (&Engine{Workers: 8, BatchSize: 2}).Peek(context.Background(), src,
		[]config.Options{{"action": "fill", "col": "a", "method": "ffill"}}, 0)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"x"}, {"x"}, {"x"}, {"y"}, {"y"}}, pv.Rows)
}

func TestHead(t *testing.T) {
	src := config.Source{Path: writeFile(t, t.TempDir(), "in.csv", "\uFEFFa,b\n1,2\n3\n5,6\n")}
	e := &Engine{}

	pv, err := e.Head(context.Background(), src, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, pv.Header)
	assert.Equal(t, [][]string{{"1", "2"}, {"3"}}, pv.Rows)

	pv, err = e.Head(context.Background(), src, 10)
	require.NoError(t, err)
	assert.Len(t, pv.Rows, 3)

	pv, err = e.Head(context.Background(), src, 0)
	require.NoError(t, err)
	assert.Empty(t, pv.Rows)

	_, err = e.Head(context.Background(), config.Source{Path: filepath.Join(t.TempDir(), "x.csv")}, 1)
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

func TestCheck(t *testing.T) {
	p := pipeline(t, "a,b\n1,2\n",
		config.Options{"action": "rename", "mapping": map[string]any{"a": "x"}},
		config.Options{"action": "keep", "col": "a", "match": "1"})

	header, err := (&Engine{}).Check(context.Background(), p)
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "b"}, header)
	assert.NoFileExists(t, p.Output.Path)

	p.Steps = append(p.Steps, config.Options{"action": "keep", "col": "b", "match": "(", "mode": "regex"})
	_, err = (&Engine{}).Check(context.Background(), p)
	assert.ErrorIs(t, err, transformer.ErrInvalidStep)
}
