package cache

import (
	"hash/maphash"

	"github.com/hupe1980/wah"
	"github.com/hupe1980/wah/resource"
)

// Sharded distributes keys over several LRUs to reduce lock contention.
// The capacity is divided evenly across shards, so a single bitmap may not
// exceed capacity/shards bytes.
type Sharded struct {
	shards []*LRU
	seed   maphash.Seed
}

// NewSharded creates a cache of n shards sharing capacity bytes.
// n is clamped to [1, 256].
func NewSharded(capacity int64, n int, rc *resource.Controller) *Sharded {
	n = min(max(n, 1), 256)

	shardCapacity := max(capacity/int64(n), 1)

	s := &Sharded{
		shards: make([]*LRU, n),
		seed:   maphash.MakeSeed(),
	}

	for i := range s.shards {
		s.shards[i] = NewLRU(shardCapacity, rc)
	}

	return s
}

func (s *Sharded) shard(key string) *LRU {
	if len(s.shards) == 1 {
		return s.shards[0]
	}

	return s.shards[maphash.String(s.seed, key)%uint64(len(s.shards))]
}

// Get returns the cached bitmap for key.
func (s *Sharded) Get(key string) (*wah.Bitmap, bool) { return s.shard(key).Get(key) }

// Add caches b under key.
func (s *Sharded) Add(key string, b *wah.Bitmap) bool { return s.shard(key).Add(key, b) }

// Remove drops key if cached.
func (s *Sharded) Remove(key string) { s.shard(key).Remove(key) }

// OnEvict registers fn on every shard.
func (s *Sharded) OnEvict(fn func(key string, bytes int64)) {
	for _, sh := range s.shards {
		sh.OnEvict(fn)
	}
}

// Purge drops every entry in every shard.
func (s *Sharded) Purge() {
	for _, sh := range s.shards {
		sh.Purge()
	}
}

// Stats returns counters aggregated over all shards.
func (s *Sharded) Stats() Stats {
	var total Stats
	for _, sh := range s.shards {
		total.add(sh.Stats())
	}

	return total
}

// ShardStats returns per-shard statistics.
func (s *Sharded) ShardStats() []Stats {
	out := make([]Stats, len(s.shards))
	for i, sh := range s.shards {
		out[i] = sh.Stats()
	}

	return out
}

var (
	_ BitmapCache = (*LRU)(nil)
	_ BitmapCache = (*Sharded)(nil)
)
