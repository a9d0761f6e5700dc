// Package resource bounds the shared resources a catalog consumes.
//
// A Controller enforces three independent limits:
//
//   - Memory: bytes held by decoded bitmaps (non-blocking, fail-fast)
//   - Load slots: concurrent blob loads during prefetch and query
//   - Read rate: bytes per second read from the blob store
//
// # Memory
//
// Reservations use a weighted semaphore for the hard limit and an atomic
// counter for usage. ReserveMemory never blocks; the cache treats a refusal
// as "do not cache":
//
//	rc := resource.NewController(resource.Config{
//	    MemoryLimitBytes: 256 << 20,
//	    MaxParallelLoads: 8,
//	    ReadBytesPerSec:  64 << 20,
//	})
//
//	if err := rc.ReserveMemory(b.SizeBytes()); err != nil {
//	    return err // over budget
//	}
//	defer rc.ReleaseMemory(b.SizeBytes())
//
// # Nil Controller
//
// Every method is safe on a nil *Controller and then imposes no limit.
package resource
