package scrub

import "strings"

// Currency normalizes a monetary amount to a plain numeric string with '.' as
// the decimal separator and no grouping:
//
//	"1.234,56" -> "1234.56"    "1,234.56" -> "1234.56"
//	"(500)"    -> "-500"       "$45.00"   -> "45.00"
//
// Only digits, '.', ',' and the sign markers '-' and '(' ')' survive the
// initial strip. With both separators present, the one appearing last is the
// decimal point. With a single separator kind, it is a thousands separator
// when exactly three digits follow its last occurrence, otherwise a decimal
// point. A value with no digits left normalizes to "0".
func Currency(s string) (string, bool) {
	var (
		body      = make([]byte, 0, len(s))
		neg       bool
		openParen bool
		digits    int
	)
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case isDigit(c):
			digits++
			body = append(body, c)
		case c == '.' || c == ',':
			body = append(body, c)
		case c == '-':
			if digits == 0 {
				neg = true
			}
		case c == '(':
			if digits == 0 {
				openParen = true
			}
		case c == ')':
			if openParen {
				neg = true
			}
		}
	}
	if digits == 0 {
		return "0", s != "0"
	}

	lastDot := strings.LastIndexByte(string(body), '.')
	lastComma := strings.LastIndexByte(string(body), ',')

	dec := -1 // index of the decimal separator in body, if any
	switch {
	case lastDot >= 0 && lastComma >= 0:
		dec = max(lastDot, lastComma)
	case lastDot >= 0 || lastComma >= 0:
		last := max(lastDot, lastComma)
		if len(body)-last-1 != 3 {
			dec = last
		}
	}

	out := make([]byte, 0, len(body)+1)
	if neg {
		out = append(out, '-')
	}
	for i, c := range body {
		switch {
		case i == dec:
			out = append(out, '.')
		case c == '.' || c == ',':
			// grouping
		default:
			out = append(out, c)
		}
	}
	res := string(out)
	return res, res != s
}
