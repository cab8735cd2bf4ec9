// Package probe sniffs the layout of a delimited file from a small sample:
// character encoding, field delimiter, header row and a best-effort type per
// column. The result can be turned into a starter pipeline (see Suggest) so a
// probe feeds straight back into a run.
//
// Detection is heuristic. Confidence is a coarse score in [0,1] attached to
// the encoding guess only.
package probe

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"phaeton/internal/datasource/file"
)

// SampleSize is the number of leading bytes inspected.
const SampleSize = 8192

// ErrEncodingDetection is returned when the sample cannot be decoded into
// text (including an empty sample).
var ErrEncodingDetection = errors.New("encoding detection failed")

// Delimiters lists the candidate delimiters in tie-break order.
var Delimiters = []rune{',', ';', '\t', '|', ':'}

// Metadata describes a probed file.
type Metadata struct {
	Encoding   string   `json:"encoding"`
	Delimiter  string   `json:"delimiter"`
	Confidence float64  `json:"confidence"`
	Headers    []string `json:"headers"`
	// Types holds one cast type per header ("int", "float", "bool" or "str")
	// inferred from the complete sample rows.
	Types []string `json:"types"`
	// Rows is the number of sample rows the types were inferred from.
	Rows int `json:"rows"`
}

// Map renders m as flat strings: confidence with two decimals and headers
// joined by commas.
func (m Metadata) Map() map[string]string {
	return map[string]string{
		"encoding":   m.Encoding,
		"delimiter":  m.Delimiter,
		"confidence": strconv.FormatFloat(m.Confidence, 'f', 2, 64),
		"headers":    strings.Join(m.Headers, ","),
	}
}

// Detect samples the first SampleSize bytes of path and describes them.
func Detect(ctx context.Context, path string) (Metadata, error) {
	rc, err := file.NewLocal(path).Open(ctx)
	if err != nil {
		return Metadata{}, err
	}
	defer rc.Close()

	buf := make([]byte, SampleSize)
	n, err := io.ReadFull(rc, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Metadata{}, fmt.Errorf("read sample %s: %w", path, err)
	}
	return DetectBytes(buf[:n], n == SampleSize)
}

// DetectBytes describes sample. truncated reports whether sample was cut off
// at SampleSize, in which case a partial trailing character and the last
// (possibly partial) row are ignored.
func DetectBytes(sample []byte, truncated bool) (Metadata, error) {
	if len(sample) == 0 {
		return Metadata{}, fmt.Errorf("%w: empty sample", ErrEncodingDetection)
	}

	name, enc, conf := detectEncoding(sample, truncated)
	text, err := decode(sample, enc)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: decode %s: %w", ErrEncodingDetection, name, err)
	}

	delim := detectDelimiter(text)
	headers, rows := readSample(text, delim, truncated)

	return Metadata{
		Encoding:   name,
		Delimiter:  string(delim),
		Confidence: conf,
		Headers:    headers,
		Types:      inferTypes(headers, rows),
		Rows:       len(rows),
	}, nil
}

// detectEncoding scores the sample. A BOM is decisive; otherwise valid UTF-8
// wins over windows-1252, which is favoured more strongly when C1 bytes
// (0x80-0x9F) are present.
func detectEncoding(b []byte, truncated bool) (string, encoding.Encoding, float64) {
	switch {
	case bytes.HasPrefix(b, []byte{0xEF, 0xBB, 0xBF}):
		return "utf-8", unicode.UTF8BOM, 1.0
	case bytes.HasPrefix(b, []byte{0xFF, 0xFE}):
		return "utf-16le", unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM), 1.0
	}

	if truncated {
		b = trimPartialRune(b)
	}
	if utf8.Valid(b) {
		return "utf-8", nil, 0.9
	}
	for _, c := range b {
		if c >= 0x80 && c <= 0x9F {
			return "windows-1252", charmap.Windows1252, 0.7
		}
	}
	return "windows-1252", charmap.Windows1252, 0.6
}

// trimPartialRune drops an incomplete UTF-8 sequence at the end of b.
func trimPartialRune(b []byte) []byte {
	for i := 1; i <= utf8.UTFMax && i <= len(b); i++ {
		c := b[len(b)-i]
		if c < 0x80 {
			return b
		}
		if utf8.RuneStart(c) {
			if !utf8.FullRune(b[len(b)-i:]) {
				return b[:len(b)-i]
			}
			return b
		}
	}
	return b
}

func decode(b []byte, enc encoding.Encoding) (string, error) {
	if enc == nil {
		return string(b), nil
	}
	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(string(out), "\uFEFF"), nil
}

// detectDelimiter picks the candidate occurring most often on the first
// line. Ties go to the earlier candidate; no occurrences at all means ','.
func detectDelimiter(text string) rune {
	line, _, _ := strings.Cut(text, "\n")
	best, bestN := ',', 0
	for _, d := range Delimiters {
		if n := strings.Count(line, string(d)); n > bestN {
			best, bestN = d, n
		}
	}
	return best
}

// readSample parses the decoded sample best-effort: bad lines are skipped,
// header cells are trimmed and data rows whose width differs from the header
// are ignored for type inference.
func readSample(text string, delim rune, truncated bool) ([]string, [][]string) {
	if truncated {
		if i := strings.LastIndexByte(text, '\n'); i >= 0 {
			text = text[:i+1]
		}
	}
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = delim
	r.LazyQuotes = true
	r.FieldsPerRecord = -1

	var headers []string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			return []string{}, nil
		}
		if err != nil || len(rec) == 0 {
			continue
		}
		headers = make([]string, len(rec))
		for i, h := range rec {
			headers[i] = strings.TrimSpace(h)
		}
		break
	}

	var rows [][]string
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil || len(rec) != len(headers) {
			continue
		}
		rows = append(rows, rec)
	}
	return headers, rows
}
