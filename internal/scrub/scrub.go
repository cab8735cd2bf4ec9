// Package scrub holds the string-to-string rewrites used by the scrub and
// cast steps. Every primitive returns the rewritten value together with a
// changed flag; when changed is false the input is returned untouched so the
// row engine can skip cloning the record.
package scrub

import (
	"strings"
	"unicode/utf8"

	"phaeton/internal/parser/html"
)

// Func is the signature shared by all primitives.
type Func func(string) (string, bool)

var modes = map[string]Func{
	"trim":         Trim,
	"lower":        Lower,
	"upper":        Upper,
	"html":         HTML,
	"numeric_only": NumericOnly,
	"currency":     Currency,
	"email":        MaskEmail,
}

// Lookup returns the primitive registered under a scrub mode name.
func Lookup(mode string) (Func, bool) {
	f, ok := modes[mode]
	return f, ok
}

func Trim(s string) (string, bool) {
	t := strings.TrimSpace(s)
	return t, len(t) != len(s)
}

func Lower(s string) (string, bool) {
	t := strings.ToLower(s)
	return t, t != s
}

func Upper(s string) (string, bool) {
	t := strings.ToUpper(s)
	return t, t != s
}

// HTML strips <...> tags; an unterminated tag consumes the rest of the value.
func HTML(s string) (string, bool) {
	return html.StripHTML(s)
}

// NumericOnly keeps ASCII digits and drops everything else.
func NumericOnly(s string) (string, bool) {
	i := 0
	for i < len(s) && isDigit(s[i]) {
		i++
	}
	if i == len(s) {
		return s, false
	}
	b := make([]byte, 0, len(s))
	b = append(b, s[:i]...)
	for ; i < len(s); i++ {
		if isDigit(s[i]) {
			b = append(b, s[i])
		}
	}
	return string(b), true
}

// MaskEmail masks the local part of user@domain, keeping its first and last
// characters: "abcdef@x.com" becomes "a****f@x.com". Local parts of one or two
// characters keep only the first character ("ab@x.com" -> "a*@x.com").
// Anything that is not exactly one '@' between non-empty parts is returned
// unchanged.
func MaskEmail(s string) (string, bool) {
	at := strings.IndexByte(s, '@')
	if at <= 0 || at == len(s)-1 || strings.IndexByte(s[at+1:], '@') >= 0 {
		return s, false
	}
	user, domain := s[:at], s[at:]
	n := utf8.RuneCountInString(user)

	var b strings.Builder
	b.Grow(len(s))
	first, _ := utf8.DecodeRuneInString(user)
	switch {
	case n == 1:
		b.WriteByte('*')
	case n == 2:
		b.WriteRune(first)
		b.WriteByte('*')
	default:
		last, _ := utf8.DecodeLastRuneInString(user)
		b.WriteRune(first)
		b.WriteString(strings.Repeat("*", n-2))
		b.WriteRune(last)
	}
	b.WriteString(domain)
	out := b.String()
	return out, out != s
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
