// Package cache keeps recently used decoded bitmaps in memory.
//
// LRU is a byte-budgeted least-recently-used cache keyed by blob name; the
// cost of an entry is its Bitmap.SizeBytes. Sharded spreads keys over
// several LRUs to reduce lock contention under parallel loads.
//
// Cached bitmaps are shared and must be treated as read-only. Callers that
// want to mutate a cached bitmap clone it first.
//
// When a resource.Controller is supplied, every cached byte is reserved
// against its memory budget; an entry the budget refuses is simply not
// cached.
package cache
