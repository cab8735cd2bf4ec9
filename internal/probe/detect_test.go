package probe

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"phaeton/internal/datasource/file"
)

func TestDetectBytes(t *testing.T) {
	win, err := charmap.Windows1252.NewEncoder().String("name;price\nCafé;€5\n")
	require.NoError(t, err)
	latin, err := charmap.Windows1252.NewEncoder().String("name|city\nJosé|Zürich\n")
	require.NoError(t, err)
	u16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().String("a\tb\n1\t2\n")
	require.NoError(t, err)

	tests := []struct {
		name       string
		in         string
		encoding   string
		delim      string
		confidence string
		headers    []string
	}{
		{"utf8 bom", "\uFEFFid,name\n1,x\n", "utf-8", ",", "1.00", []string{"id", "name"}},
		{"plain ascii", "id; name ;age\n1;a;2\n", "utf-8", ";", "0.90", []string{"id", "name", "age"}},
		{"utf8 multibyte", "město:počet\nBrno:3\n", "utf-8", ":", "0.90", []string{"město", "počet"}},
		{"windows-1252 c1 bytes", win, "windows-1252", ";", "0.70", []string{"name", "price"}},
		{"latin high bytes", latin, "windows-1252", "|", "0.60", []string{"name", "city"}},
		{"utf-16le", u16, "utf-16le", "\t", "1.00", []string{"a", "b"}},
		{"no delimiter", "single\nx\n", "utf-8", ",", "0.90", []string{"single"}},
		{"tie goes to earlier candidate", "a,b;c\n", "utf-8", ",", "0.90", []string{"a", "b;c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DetectBytes([]byte(tt.in), false)
			require.NoError(t, err)
			got := m.Map()
			assert.Equal(t, tt.encoding, got["encoding"])
			assert.Equal(t, tt.delim, got["delimiter"])
			assert.Equal(t, tt.confidence, got["confidence"])
			assert.Equal(t, tt.headers, m.Headers)
			assert.Equal(t, strings.Join(tt.headers, ","), got["headers"])
		})
	}
}

func TestDetectBytes_Empty(t *testing.T) {
	_, err := DetectBytes(nil, false)
	assert.ErrorIs(t, err, ErrEncodingDetection)
}

func TestDetectBytes_TruncatedMidRune(t *testing.T) {
	sample := []byte("col\nž\nž")
	sample = sample[:len(sample)-1] // cut the last two-byte rune in half
	m, err := DetectBytes(sample, true)
	require.NoError(t, err)
	assert.Equal(t, "utf-8", m.Encoding)
	assert.Equal(t, 1, m.Rows, "partial last row ignored")
}

func TestDetectBytes_Types(t *testing.T) {
	m, err := DetectBytes([]byte("id,price,active,name,empty\n1,2.5,yes,a,\n2,3,no,b,\n-7,1e3,y,c,\n"), false)
	require.NoError(t, err)
	assert.Equal(t, []string{"int", "float", "bool", "str", "str"}, m.Types)
	assert.Equal(t, 3, m.Rows)
}

func TestDetect(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "big.csv")
	var b strings.Builder
	b.WriteString("a,b\n")
	for b.Len() < 3*SampleSize {
		b.WriteString("1,2\n")
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))

	m, err := Detect(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, m.Headers)
	assert.Equal(t, []string{"int", "int"}, m.Types)
	assert.Less(t, m.Rows, SampleSize/4)

	_, err = Detect(context.Background(), filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, file.ErrNotFound)
}
