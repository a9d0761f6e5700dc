package resource

import (
	"context"
	"errors"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"
)

// ErrMemoryLimitExceeded is returned when a reservation would exceed the
// memory limit.
var ErrMemoryLimitExceeded = errors.New("resource: memory limit exceeded")

// Config holds resource limits.
type Config struct {
	// MemoryLimitBytes is the hard limit for reserved memory.
	// If 0, usage is tracked but not limited.
	MemoryLimitBytes int64

	// MaxParallelLoads is the maximum number of concurrent blob loads.
	// If 0, defaults to 1.
	MaxParallelLoads int64

	// ReadBytesPerSec caps blob store read throughput.
	// If 0, unlimited.
	ReadBytesPerSec int64
}

// Stats is a point-in-time snapshot of a Controller.
type Stats struct {
	MemoryUsed   int64
	MemoryLimit  int64
	LoadsActive  int64
	BytesRead    int64
	ReadsLimited bool
}

// Controller enforces memory, concurrency and IO limits.
type Controller struct {
	cfg Config

	memSem  *semaphore.Weighted // nil if unlimited
	memUsed atomic.Int64

	loadSem *semaphore.Weighted
	loads   atomic.Int64

	reader    *rate.Limiter // nil if unlimited
	bytesRead atomic.Int64
}

// NewController creates a new resource controller.
func NewController(cfg Config) *Controller {
	if cfg.MaxParallelLoads <= 0 {
		cfg.MaxParallelLoads = 1
	}

	c := &Controller{
		cfg:     cfg,
		loadSem: semaphore.NewWeighted(cfg.MaxParallelLoads),
	}

	if cfg.MemoryLimitBytes > 0 {
		c.memSem = semaphore.NewWeighted(cfg.MemoryLimitBytes)
	}

	if cfg.ReadBytesPerSec > 0 {
		c.reader = rate.NewLimiter(rate.Limit(cfg.ReadBytesPerSec), int(cfg.ReadBytesPerSec))
	}

	return c
}

// ReserveMemory reserves bytes or returns ErrMemoryLimitExceeded.
// It never blocks.
func (c *Controller) ReserveMemory(bytes int64) error {
	if c == nil || bytes <= 0 {
		return nil
	}

	if c.memSem != nil && !c.memSem.TryAcquire(bytes) {
		return ErrMemoryLimitExceeded
	}

	c.memUsed.Add(bytes)

	return nil
}

// ReleaseMemory returns bytes reserved by ReserveMemory.
func (c *Controller) ReleaseMemory(bytes int64) {
	if c == nil || bytes <= 0 {
		return
	}

	if c.memSem != nil {
		c.memSem.Release(bytes)
	}

	c.memUsed.Add(-bytes)
}

// MemoryUsage returns the currently reserved bytes.
func (c *Controller) MemoryUsage() int64 {
	if c == nil {
		return 0
	}

	return c.memUsed.Load()
}

// AcquireLoad blocks until a load slot is free or ctx is done.
func (c *Controller) AcquireLoad(ctx context.Context) error {
	if c == nil {
		return nil
	}

	if err := c.loadSem.Acquire(ctx, 1); err != nil {
		return err
	}

	c.loads.Add(1)

	return nil
}

// TryAcquireLoad reserves a load slot without blocking.
func (c *Controller) TryAcquireLoad() bool {
	if c == nil {
		return true
	}

	if !c.loadSem.TryAcquire(1) {
		return false
	}

	c.loads.Add(1)

	return true
}

// ReleaseLoad releases a slot taken by AcquireLoad or TryAcquireLoad.
func (c *Controller) ReleaseLoad() {
	if c == nil {
		return
	}

	c.loads.Add(-1)
	c.loadSem.Release(1)
}

// WaitRead blocks until the read limit admits n bytes or ctx is done.
// Requests larger than the limiter burst are admitted in burst-sized steps.
func (c *Controller) WaitRead(ctx context.Context, n int) error {
	if c == nil || n <= 0 {
		return nil
	}

	c.bytesRead.Add(int64(n))

	if c.reader == nil {
		return nil
	}

	burst := c.reader.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := c.reader.WaitN(ctx, step); err != nil {
			return err
		}

		n -= step
	}

	return nil
}

// Stats returns a snapshot of the controller's counters.
func (c *Controller) Stats() Stats {
	if c == nil {
		return Stats{}
	}

	return Stats{
		MemoryUsed:   c.memUsed.Load(),
		MemoryLimit:  c.cfg.MemoryLimitBytes,
		LoadsActive:  c.loads.Load(),
		BytesRead:    c.bytesRead.Load(),
		ReadsLimited: c.reader != nil,
	}
}
