package transformer

import (
	"regexp"

	"phaeton/internal/scrub"
)

// Step is one compiled, column-bound step. The set of implementations is
// closed: Apply dispatches with a type switch and every action has exactly one
// struct below.
type Step interface {
	step()
}

// pruneStep discards rows with an empty or missing value in any of cols, or
// in any column at all when every is set.
type pruneStep struct {
	cols  []int
	every bool
}

// matchStep implements keep (keep=true) and discard (keep=false).
type matchStep struct {
	col      int
	keep     bool
	mode     string
	patterns []string
	res      []*regexp.Regexp // regex mode only, parallel to patterns
}

type scrubStep struct {
	col int
	fn  scrub.Func
}

type castStep struct {
	col   int
	typ   castType
	clean bool
}

// fillStep replaces empty values with value, or with the carried value when
// carry is set (ffill).
type fillStep struct {
	col   int
	value string
	carry *fillCell
}

// dedupeStep fingerprints cols (every column when nil) against a run-wide
// index.
type dedupeStep struct {
	cols  []int
	index *DedupeIndex
}

type alignStep struct {
	col     int
	aligner *Aligner
}

type mapStep struct {
	col     int
	mapping map[string]string
	def     string
	hasDef  bool
}

type hashStep struct {
	cols []int
	salt string
}

func (pruneStep) step()  {}
func (matchStep) step()  {}
func (scrubStep) step()  {}
func (castStep) step()   {}
func (fillStep) step()   {}
func (dedupeStep) step() {}
func (alignStep) step()  {}
func (mapStep) step()    {}
func (hashStep) step()   {}

// Pipeline is the compiled form of a step list for one run. It is safe for
// concurrent use by Apply; cross-row state lives in interior-synchronized
// cells (dedupe shards, ffill carry cells) created fresh by Compile.
type Pipeline struct {
	header  []string
	steps   []Step
	ordered bool
}

// Header returns the source header the pipeline was compiled against.
func (p *Pipeline) Header() []string { return p.header }

// Len returns the number of compiled row steps.
func (p *Pipeline) Len() int { return len(p.steps) }

// Ordered reports whether the pipeline carries order-sensitive state
// (forward-fill). Such pipelines must see rows strictly in input order.
func (p *Pipeline) Ordered() bool { return p.ordered }
