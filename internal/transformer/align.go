package transformer

import "github.com/xrash/smetrics"

// DefaultAlignThreshold is used when an align step names no threshold.
const DefaultAlignThreshold = 0.85

// Jaro-Winkler parameters: the prefix bonus applies above a Jaro score of
// 0.7 and looks at up to four leading characters.
const (
	jwBoostThreshold = 0.7
	jwPrefixSize     = 4
)

// Aligner snaps values onto the closest entry of a reference list.
type Aligner struct {
	ref       []string
	threshold float64
}

func NewAligner(ref []string, threshold float64) *Aligner {
	return &Aligner{ref: append([]string(nil), ref...), threshold: threshold}
}

// Best returns the reference entry with the highest Jaro-Winkler similarity
// to v and its score. Ties go to the earlier entry. ok is false when no entry
// scores above zero, including for an empty reference list.
func (a *Aligner) Best(v string) (match string, score float64, ok bool) {
	for _, r := range a.ref {
		s := smetrics.JaroWinkler(v, r, jwBoostThreshold, jwPrefixSize)
		if s > score {
			match, score, ok = r, s, true
		}
	}
	return match, score, ok
}

// Align returns the best reference match for v when its score reaches the
// threshold and it differs from v. Otherwise it returns v, false.
func (a *Aligner) Align(v string) (string, bool) {
	m, score, ok := a.Best(v)
	if !ok || score < a.threshold || m == v {
		return v, false
	}
	return m, true
}
