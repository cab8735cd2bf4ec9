package transformer

import (
	"strconv"
	"strings"

	"phaeton/internal/scrub"
)

// castType enumerates the cast gates.
type castType uint8

const (
	castStr castType = iota
	castInt
	castFloat
	castBool
)

var castTypes = map[string]castType{
	"str":   castStr,
	"int":   castInt,
	"float": castFloat,
	"bool":  castBool,
}

func (t castType) String() string {
	switch t {
	case castInt:
		return "int"
	case castFloat:
		return "float"
	case castBool:
		return "bool"
	default:
		return "str"
	}
}

// Cast checks that v parses as typ ("int", "float", "bool" or "str"). With
// clean set, floats go through the currency scrub and ints through the
// numeric-only scrub first. It never rewrites v; a failure is a *CastError.
func Cast(v, typ string, clean bool) error {
	t, ok := castTypes[typ]
	if !ok {
		return invalidf("unknown cast type %q", typ)
	}
	return checkCast(v, t, clean)
}

func checkCast(v string, t castType, clean bool) error {
	if strings.TrimSpace(v) == "" {
		return &CastError{}
	}
	s := v
	ok := true
	switch t {
	case castInt:
		if clean {
			s, _ = scrub.NumericOnly(s)
		}
		_, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		ok = err == nil
	case castFloat:
		if clean {
			s, _ = scrub.Currency(s)
		}
		_, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		ok = err == nil
	case castBool:
		_, ok = toBoolFast(s)
	}
	if !ok {
		return &CastError{Value: v, Type: t.String()}
	}
	return nil
}

// toBoolFast resolves the fixed boolean vocabulary, case-insensitively.
func toBoolFast(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "y", "t":
		return true, true
	case "false", "0", "no", "n", "f":
		return false, true
	default:
		return false, false
	}
}
