package probe

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"phaeton/internal/config"
)

// Suggest builds a starter pipeline for the probed file at path: the source
// settings come from m, the sinks sit next to the source, every column is
// trimmed and columns with a non-text inferred type get a cast gate.
func Suggest(path string, m Metadata) config.Pipeline {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)

	steps := make([]config.Options, 0, 2*len(m.Headers))
	for _, h := range m.Headers {
		steps = append(steps, config.Options{"action": "scrub", "col": h, "mode": "trim"})
	}
	for i, h := range m.Headers {
		if i < len(m.Types) && m.Types[i] != "str" {
			steps = append(steps, config.Options{"action": "cast", "col": h, "type": m.Types[i]})
		}
	}

	enc := m.Encoding
	if enc == "utf-8" {
		enc = ""
	}
	return config.Pipeline{
		Job: jobName(filepath.Base(base)),
		Source: config.Source{
			Path:     path,
			Comma:    m.Delimiter,
			Encoding: enc,
		},
		Output: config.Output{
			Path:       base + ".clean.csv",
			Quarantine: base + ".rejected.csv",
		},
		Steps: steps,
	}
}

// jobName converts arbitrary text into a lowercase ASCII identifier:
// accents are stripped, runs of separators become one underscore and
// anything else is dropped. An empty result falls back to "job".
func jobName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))

	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	ascii, _, _ := transform.String(t, s)

	var b strings.Builder
	prevUnderscore := false
	for _, r := range ascii {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prevUnderscore = false
		case r == '_' || r == ' ' || r == '-' || r == '.':
			if !prevUnderscore {
				b.WriteRune('_')
				prevUnderscore = true
			}
		}
	}
	if name := strings.Trim(b.String(), "_"); name != "" {
		return name
	}
	return "job"
}
