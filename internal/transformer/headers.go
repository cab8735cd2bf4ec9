package transformer

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"phaeton/internal/config"
)

// CompileHeaders derives the output header row from the source header by
// applying the rename and headers steps in declared order. Other actions are
// ignored. header is not modified.
//
// A rename key that does not name a current column is ErrColumnNotFound; an
// unknown case style is ErrInvalidStep. Both come back as *StepError.
func CompileHeaders(header []string, steps []config.Options) ([]string, error) {
	out := append([]string(nil), header...)
	for i, st := range steps {
		switch st.Action() {
		case "rename":
			m := st.StringMap("mapping")
			if len(m) == 0 {
				return nil, &StepError{Index: i, Action: "rename", Err: invalidf("rename requires a non-empty mapping object")}
			}
			// Resolve every key before renaming so swaps (a->b, b->a) work.
			idx := make(map[int]string, len(m))
			for from, to := range m {
				j, ok := Header(out).Index(from)
				if !ok {
					return nil, &StepError{Index: i, Action: "rename", Err: fmt.Errorf("%w: %q", ErrColumnNotFound, from)}
				}
				idx[j] = to
			}
			for j, to := range idx {
				out[j] = to
			}
		case "headers":
			style := st.String("style", "")
			conv, ok := headerStyles[style]
			if !ok {
				return nil, &StepError{Index: i, Action: "headers", Err: invalidf("unknown header style %q", style)}
			}
			for j, h := range out {
				if w := splitWords(h); len(w) > 0 {
					out[j] = conv(w)
				}
			}
		}
	}
	return out, nil
}

var headerStyles = map[string]func([]string) string{
	"snake": func(w []string) string { return strings.Join(w, "_") },
	"kebab": func(w []string) string { return strings.Join(w, "-") },
	"constant": func(w []string) string {
		return strings.ToUpper(strings.Join(w, "_"))
	},
	"camel": func(w []string) string {
		var b strings.Builder
		b.WriteString(w[0])
		for _, s := range w[1:] {
			b.WriteString(title(s))
		}
		return b.String()
	},
	"pascal": func(w []string) string {
		var b strings.Builder
		for _, s := range w {
			b.WriteString(title(s))
		}
		return b.String()
	},
}

func title(s string) string {
	r, n := utf8.DecodeRuneInString(s)
	if n == 0 {
		return s
	}
	return string(unicode.ToUpper(r)) + s[n:]
}

// foldDiacritics strips combining marks: "Příjmení" -> "Prijmeni".
func foldDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// splitWords breaks a column name into lower-case words. Any rune that is not
// a letter or digit separates words, as do lower-to-upper transitions
// ("firstName") and the end of an acronym ("HTTPServer" -> "http", "server").
func splitWords(s string) []string {
	rs := []rune(foldDiacritics(s))
	var (
		words []string
		cur   []rune
	)
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	for i, r := range rs {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()
			continue
		}
		if unicode.IsUpper(r) && len(cur) > 0 {
			prev := cur[len(cur)-1]
			nextLower := i+1 < len(rs) && unicode.IsLower(rs[i+1])
			if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
				flush()
			}
		}
		cur = append(cur, r)
	}
	flush()
	return words
}
