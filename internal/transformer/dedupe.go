package transformer

import (
	"strings"
	"sync"

	"github.com/zeebo/xxh3"
)

// DedupeShards is the fixed number of shards in a DedupeIndex.
const DedupeShards = 256

// fieldSep separates key fields inside a fingerprint so that ("ab","c") and
// ("a","bc") hash differently.
const fieldSep = 0x1f

// DedupeIndex is a run-wide set of 64-bit fingerprints split into
// DedupeShards independently locked shards. A fingerprint lives in shard
// fp % DedupeShards only. When two rows with the same fingerprint race, the
// one that takes the shard lock first is kept.
type DedupeIndex struct {
	shards [DedupeShards]dedupeShard
}

type dedupeShard struct {
	mu   sync.Mutex
	seen map[uint64]struct{}
}

func NewDedupeIndex() *DedupeIndex {
	d := &DedupeIndex{}
	for i := range d.shards {
		d.shards[i].seen = make(map[uint64]struct{})
	}
	return d
}

// Add inserts fp and reports whether it was absent. The test and the insert
// happen under one shard lock.
func (d *DedupeIndex) Add(fp uint64) bool {
	s := &d.shards[fp%DedupeShards]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.seen[fp]; ok {
		return false
	}
	s.seen[fp] = struct{}{}
	return true
}

// Len returns the number of distinct fingerprints recorded.
func (d *DedupeIndex) Len() int {
	n := 0
	for i := range d.shards {
		s := &d.shards[i]
		s.mu.Lock()
		n += len(s.seen)
		s.mu.Unlock()
	}
	return n
}

// Fingerprint hashes the trimmed values of cols in rec (all fields when cols
// is nil) with xxh3. Positions past the end of rec hash as empty fields.
// Collisions are possible and would surface as a false duplicate.
func Fingerprint(rec []string, cols []int) uint64 {
	n := len(rec)
	if cols != nil {
		n = len(cols)
	}
	buf := make([]byte, 0, 64)
	for i := 0; i < n; i++ {
		j := i
		if cols != nil {
			j = cols[i]
		}
		if i > 0 {
			buf = append(buf, fieldSep)
		}
		if j < len(rec) {
			buf = append(buf, strings.TrimSpace(rec[j])...)
		}
	}
	return xxh3.Hash(buf)
}
