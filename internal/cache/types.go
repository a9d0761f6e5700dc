package cache

import "github.com/hupe1980/wah"

// BitmapCache caches decoded bitmaps by key.
type BitmapCache interface {
	// Get returns a cached bitmap. ok=false if missing.
	Get(key string) (b *wah.Bitmap, ok bool)
	// Add caches b and reports whether it was admitted.
	Add(key string, b *wah.Bitmap) bool
	// Remove drops key if cached.
	Remove(key string)
	// Purge drops every entry.
	Purge()
	// Stats returns cache statistics.
	Stats() Stats
}

// Stats is a snapshot of cache counters.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Rejected  int64
	Entries   int
	Bytes     int64
}

// HitRatio returns hits/(hits+misses), or 0 before any lookup.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}

	return float64(s.Hits) / float64(total)
}

func (s *Stats) add(o Stats) {
	s.Hits += o.Hits
	s.Misses += o.Misses
	s.Evictions += o.Evictions
	s.Rejected += o.Rejected
	s.Entries += o.Entries
	s.Bytes += o.Bytes
}
