package cache

import (
	"encoding/hex"
	"sync/atomic"

	"github.com/zeebo/blake3"
)

const keyPrefix = "refinery"

// Key builds the cache key of a text cleaned by a refinery version.
// Versions never share entries.
func Key(version, text string) string {
	sum := blake3.Sum256([]byte(text))
	return keyPrefix + ":" + version + ":" + hex.EncodeToString(sum[:])
}

// Stats counts cache lookups
type Stats struct {
	Hits   int64 `json:"hits"`
	Misses int64 `json:"misses"`
}

type counters struct {
	hits   atomic.Int64
	misses atomic.Int64
}

func (c *counters) hit()  { c.hits.Add(1) }
func (c *counters) miss() { c.misses.Add(1) }

func (c *counters) snapshot() Stats {
	return Stats{Hits: c.hits.Load(), Misses: c.misses.Load()}
}
