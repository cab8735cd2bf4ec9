// Package html provides small, allocation-conscious helpers for cleaning
// HTML-like text in record fields. It intentionally does not attempt full
// HTML parsing; the scrub step only needs a cheap, predictable tag stripper.
package html

import "strings"

// StripHTML removes tag sequences of the form <...> from s. Every rune from a
// '<' up to and including the next '>' is dropped; a '<' without a closing
// '>' swallows the rest of the string. A '>' outside a tag is ordinary text.
//
// changed reports whether anything was removed. When it is false the returned
// string is s itself, so callers can skip a copy.
func StripHTML(s string) (out string, changed bool) {
	if strings.IndexByte(s, '<') < 0 {
		return s, false
	}

	var b strings.Builder
	b.Grow(len(s))

	inTag := false
	for _, r := range s {
		switch {
		case inTag:
			if r == '>' {
				inTag = false
			}
		case r == '<':
			inTag = true
		default:
			b.WriteRune(r)
		}
	}
	return b.String(), true
}
