package transformer

import (
	"fmt"
	"slices"
	"strings"
)

// Result is the disposition of one row. Kept rows carry the possibly
// rewritten record; discarded rows carry the record as it stood when the
// disqualifying step ran, plus a human-readable reason.
type Result struct {
	Record []string
	Kept   bool
	Reason string
}

// row is a copy-on-write view of a record: the input slice is cloned on the
// first write and never modified.
type row struct {
	rec   []string
	owned bool
}

func (r *row) get(i int) (string, bool) {
	if i < len(r.rec) {
		return r.rec[i], true
	}
	return "", false
}

func (r *row) set(i int, v string) {
	if i >= len(r.rec) || r.rec[i] == v {
		return
	}
	if !r.owned {
		r.rec = slices.Clone(r.rec)
		r.owned = true
	}
	r.rec[i] = v
}

func (r *row) discard(reason string) Result {
	return Result{Record: r.rec, Reason: reason}
}

func isEmpty(v string) bool { return strings.TrimSpace(v) == "" }

// Apply runs p over rec in declared order and stops at the first step that
// disqualifies the row. rec is never modified. Apply performs no I/O and is
// safe to call concurrently with the same Pipeline.
func Apply(rec []string, p *Pipeline) Result {
	r := row{rec: rec}

	for _, s := range p.steps {
		switch s := s.(type) {
		case pruneStep:
			if s.every {
				if len(r.rec) < len(p.header) {
					return r.discard("Prune: Empty value")
				}
				for _, v := range r.rec {
					if isEmpty(v) {
						return r.discard("Prune: Empty value")
					}
				}
				continue
			}
			for _, i := range s.cols {
				if v, ok := r.get(i); !ok || isEmpty(v) {
					return r.discard("Prune: Empty value")
				}
			}

		case matchStep:
			if reason, bad := s.check(&r); bad {
				return r.discard(reason)
			}

		case scrubStep:
			if v, ok := r.get(s.col); ok {
				if nv, changed := s.fn(v); changed {
					r.set(s.col, nv)
				}
			}

		case castStep:
			if v, ok := r.get(s.col); ok {
				if err := checkCast(v, s.typ, s.clean); err != nil {
					return r.discard(err.Error())
				}
			}

		case fillStep:
			v, ok := r.get(s.col)
			if !ok {
				continue
			}
			empty := isEmpty(v)
			if s.carry != nil {
				if nv, ok := s.carry.next(v, empty); ok {
					r.set(s.col, nv)
				}
			} else if empty {
				r.set(s.col, s.value)
			}

		case dedupeStep:
			if !s.index.Add(Fingerprint(r.rec, s.cols)) {
				return r.discard("Dedupe: Duplicate found")
			}

		case alignStep:
			if v, ok := r.get(s.col); ok && !isEmpty(v) {
				if nv, changed := s.aligner.Align(v); changed {
					r.set(s.col, nv)
				}
			}

		case mapStep:
			v, ok := r.get(s.col)
			if !ok {
				continue
			}
			if nv, hit := s.mapping[v]; hit {
				r.set(s.col, nv)
			} else if s.hasDef {
				r.set(s.col, s.def)
			}

		case hashStep:
			for _, i := range s.cols {
				if v, ok := r.get(i); ok && !isEmpty(v) {
					r.set(i, saltedHash(v, s.salt))
				}
			}
		}
	}
	return Result{Record: r.rec, Kept: true}
}

// check evaluates a keep/discard rule and returns the discard reason when the
// rule disqualifies the row.
func (s matchStep) check(r *row) (string, bool) {
	if !knownMode(s.mode) {
		return fmt.Sprintf("Unknown match mode '%s'", s.mode), true
	}
	v, ok := r.get(s.col)
	if !ok || isEmpty(v) {
		if s.keep {
			return "Keep: Column missing/null", true
		}
		return "", false
	}

	hit := -1
	for i, p := range s.patterns {
		if s.matches(i, p, v) {
			hit = i
			break
		}
	}

	switch {
	case s.keep && hit < 0:
		if s.mode == "regex" {
			return "Keep: Regex mismatch", true
		}
		return fmt.Sprintf("Keep: Mismatch '%s'", strings.Join(s.patterns, ", ")), true
	case !s.keep && hit >= 0:
		if s.mode == "regex" {
			return "Discard: Regex match", true
		}
		return fmt.Sprintf("Discard: Matched forbidden '%s'", s.patterns[hit]), true
	}
	return "", false
}

func (s matchStep) matches(i int, p, v string) bool {
	switch s.mode {
	case "exact":
		return v == p
	case "contains":
		return strings.Contains(v, p)
	case "startswith":
		return strings.HasPrefix(v, p)
	case "endswith":
		return strings.HasSuffix(v, p)
	case "regex":
		return s.res[i].MatchString(v)
	}
	return false
}

func knownMode(m string) bool {
	switch m {
	case "exact", "contains", "startswith", "endswith", "regex":
		return true
	}
	return false
}
