package transformer

import (
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"phaeton/internal/config"
	"phaeton/internal/scrub"
)

// Header is an ordered list of column names.
type Header []string

// Index resolves name to its position. Duplicate names resolve to the first
// occurrence.
func (h Header) Index(name string) (int, bool) {
	for i, c := range h {
		if c == name {
			return i, true
		}
	}
	return -1, false
}

// Compile validates steps against header and binds them to column positions.
// Row steps address columns by their source names; rename and headers steps
// only shape the output header (see CompileHeaders) and are skipped here, as
// are unknown actions, which are logged and ignored.
//
// The first invalid step aborts compilation with a *StepError. Regex patterns
// are compiled exactly once, here. Every call returns fresh cross-row state,
// so a Pipeline must not be shared between runs.
func Compile(header []string, steps []config.Options, log *zap.Logger) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}
	c := compiler{header: Header(header)}
	p := &Pipeline{header: header}

	for i, st := range steps {
		action := st.Action()
		var (
			s   Step
			err error
		)
		switch action {
		case "":
			err = invalidf("missing action")
		case "prune":
			s, err = c.prune(st)
		case "keep", "discard":
			s, err = c.match(st, action == "keep")
		case "scrub":
			s, err = c.scrub(st)
		case "cast":
			s, err = c.cast(st)
		case "fill":
			s, err = c.fill(st)
		case "dedupe":
			s, err = c.dedupe(st)
		case "align":
			s, err = c.align(st)
		case "map":
			s, err = c.mapping(st)
		case "hash":
			s, err = c.hash(st)
		case "rename", "headers":
			continue
		default:
			log.Warn("skipping unknown step action", zap.Int("step", i), zap.String("action", action))
			continue
		}
		if err != nil {
			return nil, &StepError{Index: i, Action: action, Err: err}
		}
		if s == nil {
			continue // no-op (cast to str)
		}
		if f, ok := s.(fillStep); ok && f.carry != nil {
			p.ordered = true
		}
		p.steps = append(p.steps, s)
	}
	return p, nil
}

type compiler struct {
	header Header
}

func (c compiler) col(name string) (int, error) {
	if name == "" {
		return 0, invalidf("missing col")
	}
	i, ok := c.header.Index(name)
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
	}
	return i, nil
}

// cols resolves the first present key among keys, accepting a single name or
// a list of names. It returns nil when none of the keys is present.
func (c compiler) cols(st config.Options, keys ...string) ([]int, error) {
	for _, k := range keys {
		if !st.Has(k) {
			continue
		}
		names, ok := st.Scalars(k)
		if !ok || len(names) == 0 {
			return nil, invalidf("%s must be a column name or a non-empty list of names", k)
		}
		out := make([]int, 0, len(names))
		for _, n := range names {
			i, err := c.col(n)
			if err != nil {
				return nil, err
			}
			out = append(out, i)
		}
		return out, nil
	}
	return nil, nil
}

func (c compiler) prune(st config.Options) (Step, error) {
	if names, ok := st.Scalars("col"); !st.Has("col") || (ok && len(names) == 1 && names[0] == "*") {
		return pruneStep{every: true}, nil
	}
	idx, err := c.cols(st, "col")
	if err != nil {
		return nil, err
	}
	return pruneStep{cols: idx}, nil
}

func (c compiler) match(st config.Options, keep bool) (Step, error) {
	col, err := c.col(st.String("col", ""))
	if err != nil {
		return nil, err
	}
	patterns, ok := st.Scalars("match")
	if !ok {
		return nil, invalidf("match must be a scalar or a list of scalars")
	}
	if len(patterns) == 0 {
		return nil, invalidf("match must not be empty")
	}
	s := matchStep{
		col:      col,
		keep:     keep,
		mode:     st.String("mode", "exact"),
		patterns: patterns,
	}
	if s.mode == "regex" {
		s.res = make([]*regexp.Regexp, len(patterns))
		for i, p := range patterns {
			re, err := regexp.Compile(p)
			if err != nil {
				return nil, invalidf("invalid regex %q: %v", p, err)
			}
			s.res[i] = re
		}
	}
	return s, nil
}

func (c compiler) scrub(st config.Options) (Step, error) {
	col, err := c.col(st.String("col", ""))
	if err != nil {
		return nil, err
	}
	mode := st.String("mode", "trim")
	fn, ok := scrub.Lookup(mode)
	if !ok {
		return nil, invalidf("unknown scrub mode %q", mode)
	}
	return scrubStep{col: col, fn: fn}, nil
}

func (c compiler) cast(st config.Options) (Step, error) {
	col, err := c.col(st.String("col", ""))
	if err != nil {
		return nil, err
	}
	name := st.String("type", "str")
	typ, ok := castTypes[name]
	if !ok {
		return nil, invalidf("unknown cast type %q", name)
	}
	if typ == castStr {
		return nil, nil
	}
	return castStep{col: col, typ: typ, clean: st.Bool("clean", false)}, nil
}

func (c compiler) fill(st config.Options) (Step, error) {
	col, err := c.col(st.String("col", ""))
	if err != nil {
		return nil, err
	}
	switch m := st.String("method", "fixed"); m {
	case "fixed":
		v, ok := config.FormatScalar(st.Any("value"))
		if !ok {
			return nil, invalidf("fixed fill requires a scalar value")
		}
		return fillStep{col: col, value: v}, nil
	case "ffill":
		return fillStep{col: col, carry: &fillCell{}}, nil
	default:
		return nil, invalidf("unknown fill method %q", m)
	}
}

func (c compiler) dedupe(st config.Options) (Step, error) {
	idx, err := c.cols(st, "cols", "col")
	if err != nil {
		return nil, err
	}
	return dedupeStep{cols: idx, index: NewDedupeIndex()}, nil
}

func (c compiler) align(st config.Options) (Step, error) {
	col, err := c.col(st.String("col", ""))
	if err != nil {
		return nil, err
	}
	var ref []string
	if st.Has("ref") {
		switch st.Any("ref").(type) {
		case []any, []string:
			ref = st.StringSlice("ref")
		default:
			return nil, invalidf("ref must be a list of strings")
		}
	}
	th := st.Float("threshold", DefaultAlignThreshold)
	if th < 0 || th > 1 {
		return nil, invalidf("threshold %v outside [0,1]", th)
	}
	return alignStep{col: col, aligner: NewAligner(ref, th)}, nil
}

func (c compiler) mapping(st config.Options) (Step, error) {
	col, err := c.col(st.String("col", ""))
	if err != nil {
		return nil, err
	}
	m := st.StringMap("mapping")
	if len(m) == 0 {
		return nil, invalidf("map requires a non-empty mapping object")
	}
	s := mapStep{col: col, mapping: m}
	if st.Has("default") {
		s.def, s.hasDef = config.FormatScalar(st.Any("default"))
	}
	return s, nil
}

func (c compiler) hash(st config.Options) (Step, error) {
	idx, err := c.cols(st, "cols", "col")
	if err != nil {
		return nil, err
	}
	if len(idx) == 0 {
		return nil, invalidf("hash requires col or cols")
	}
	return hashStep{cols: idx, salt: st.String("salt", "")}, nil
}
