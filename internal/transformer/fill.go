package transformer

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// fillCell carries the last non-empty value of one column across a run.
type fillCell struct {
	mu   sync.Mutex
	last string
	set  bool
}

// next records v when it is non-empty, or returns the carried value for an
// empty v. ok is false when v is empty and nothing has been carried yet.
func (c *fillCell) next(v string, empty bool) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !empty {
		c.last, c.set = v, true
		return v, false
	}
	return c.last, c.set
}

// saltedHash returns the hex SHA-256 of v followed by salt.
func saltedHash(v, salt string) string {
	h := sha256.New()
	h.Write([]byte(v))
	h.Write([]byte(salt))
	return hex.EncodeToString(h.Sum(nil))
}
