package csv

import (
	"bytes"
	"encoding/csv"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

/*
makeCSV builds a CSV document in-memory with the given header and rows using
encoding/csv, so quoting and escaping match what real producers emit.
*/
func makeCSV(delim rune, header []string, rows [][]string) []byte {
	var b bytes.Buffer
	w := csv.NewWriter(&b)
	w.Comma = delim
	if header != nil {
		_ = w.Write(header)
	}
	for _, r := range rows {
		_ = w.Write(r)
	}
	w.Flush()
	return b.Bytes()
}

/*
TestNewReader_HeaderAndBatches verifies that the header is read once and the
remaining records arrive in batches of the requested size, with io.EOF on the
final (possibly partial) batch.
*/
func TestNewReader_HeaderAndBatches(t *testing.T) {
	data := makeCSV(',', []string{"id", "name"}, [][]string{
		{"1", "a"}, {"2", "b"}, {"3", "c"}, {"4", "d"}, {"5", "e"},
	})
	r, err := NewReader(bytes.NewReader(data), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name"}, r.Header())

	var batch [][]string
	batch, err = r.ReadBatch(batch, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "a"}, {"2", "b"}}, batch)

	batch, err = r.ReadBatch(batch, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"3", "c"}, {"4", "d"}}, batch)

	batch, err = r.ReadBatch(batch, 2)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, [][]string{{"5", "e"}}, batch)

	batch, err = r.ReadBatch(batch, 2)
	assert.ErrorIs(t, err, io.EOF)
	assert.Empty(t, batch)
}

func TestNewReader_StripsBOMAndHonoursComma(t *testing.T) {
	data := append([]byte("\xEF\xBB\xBF"), makeCSV(';', []string{"a", "b"}, [][]string{{"1", "2"}})...)
	r, err := NewReader(bytes.NewReader(data), Options{Comma: ';'})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, r.Header())

	rows, err := r.ReadBatch(nil, 10)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, [][]string{{"1", "2"}}, rows)
}

func TestNewReader_EmptySource(t *testing.T) {
	_, err := NewReader(strings.NewReader(""), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty source")
}

/*
TestReadBatch_FieldCountSkipped verifies that strict readers report records
with the wrong number of fields through OnError and skip them, and that the
skipped records do not count toward the batch size.
*/
func TestReadBatch_FieldCountSkipped(t *testing.T) {
	data := "a,b\n1,2\n3\n4,5,6\n7,8\n"
	type errLine struct {
		line int
		err  error
	}
	var got []errLine
	r, err := NewReader(strings.NewReader(data), Options{
		OnError: func(line int, err error) { got = append(got, errLine{line, err}) },
	})
	require.NoError(t, err)

	rows, err := r.ReadBatch(nil, 2)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1", "2"}, {"7", "8"}}, rows)

	require.Len(t, got, 2)
	assert.Equal(t, 3, got[0].line)
	assert.Equal(t, 4, got[1].line)
	for _, e := range got {
		assert.ErrorIs(t, e.err, ErrRecordParse)
		assert.ErrorIs(t, e.err, csv.ErrFieldCount)
	}
}

func TestReadBatch_FlexibleKeepsRaggedRows(t *testing.T) {
	data := "a,b\n1,2\n3\n4,5,6\n"
	calls := 0
	r, err := NewReader(strings.NewReader(data), Options{
		Flexible: true,
		OnError:  func(int, error) { calls++ },
	})
	require.NoError(t, err)

	rows, err := r.ReadBatch(nil, 10)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, [][]string{{"1", "2"}, {"3"}, {"4", "5", "6"}}, rows)
	assert.Zero(t, calls)
}

func TestReadBatch_BareQuote(t *testing.T) {
	data := "a,b\n1,x\"y\n2,ok\n"

	strict, err := NewReader(strings.NewReader(data), Options{})
	require.NoError(t, err)
	var perr error
	strict.opt.OnError = func(_ int, err error) { perr = err }
	rows, _ := strict.ReadBatch(nil, 10)
	assert.Equal(t, [][]string{{"2", "ok"}}, rows)
	var pe *csv.ParseError
	require.True(t, errors.As(perr, &pe))
	assert.ErrorIs(t, perr, csv.ErrBareQuote)

	lazy, err := NewReader(strings.NewReader(data), Options{LazyQuotes: true})
	require.NoError(t, err)
	rows, _ = lazy.ReadBatch(nil, 10)
	assert.Equal(t, [][]string{{"1", "x\"y"}, {"2", "ok"}}, rows)
}

type failingReader struct{ err error }

func (f failingReader) Read([]byte) (int, error) { return 0, f.err }

func TestReadBatch_UnderlyingErrorIsFatal(t *testing.T) {
	boom := errors.New("disk gone")
	src := io.MultiReader(strings.NewReader("a,b\n1,2\n"), failingReader{boom})
	r, err := NewReader(src, Options{})
	require.NoError(t, err)

	rows, err := r.ReadBatch(nil, 10)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, [][]string{{"1", "2"}}, rows)
}

func TestNewReader_StripsHeaderBOM(t *testing.T) {
	r, err := NewReader(strings.NewReader("\uFEFFx,y\n1,2\n"), Options{})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, r.Header())
}
