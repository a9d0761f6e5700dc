package catalog

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the
// promcollector package ships a Prometheus implementation.
type MetricsCollector interface {
	// RecordLoad is called after each bitmap load. hit reports a cache hit,
	// bytes is the blob size read from the store (0 on a hit).
	RecordLoad(bytes int64, duration time.Duration, hit bool, err error)

	// RecordStore is called after each bitmap write.
	RecordStore(bytes int64, duration time.Duration, err error)

	// RecordQuery is called after each query. leaves is the number of
	// distinct bitmaps referenced.
	RecordQuery(leaves int, duration time.Duration, err error)

	// RecordCommit is called after each manifest commit.
	RecordCommit(duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
// Use this when metrics collection is not needed.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordLoad(int64, time.Duration, bool, error) {}
func (NoopMetricsCollector) RecordStore(int64, time.Duration, error)      {}
func (NoopMetricsCollector) RecordQuery(int, time.Duration, error)        {}
func (NoopMetricsCollector) RecordCommit(time.Duration, error)            {}

// BasicMetricsCollector provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type BasicMetricsCollector struct {
	LoadCount       atomic.Int64
	LoadHits        atomic.Int64
	LoadErrors      atomic.Int64
	LoadBytes       atomic.Int64
	LoadTotalNanos  atomic.Int64
	StoreCount      atomic.Int64
	StoreErrors     atomic.Int64
	StoreBytes      atomic.Int64
	QueryCount      atomic.Int64
	QueryErrors     atomic.Int64
	QueryLeaves     atomic.Int64
	QueryTotalNanos atomic.Int64
	CommitCount     atomic.Int64
	CommitErrors    atomic.Int64
}

// RecordLoad implements MetricsCollector.
func (b *BasicMetricsCollector) RecordLoad(bytes int64, duration time.Duration, hit bool, err error) {
	b.LoadCount.Add(1)
	b.LoadTotalNanos.Add(duration.Nanoseconds())
	b.LoadBytes.Add(bytes)

	if hit {
		b.LoadHits.Add(1)
	}

	if err != nil {
		b.LoadErrors.Add(1)
	}
}

// RecordStore implements MetricsCollector.
func (b *BasicMetricsCollector) RecordStore(bytes int64, _ time.Duration, err error) {
	b.StoreCount.Add(1)
	b.StoreBytes.Add(bytes)

	if err != nil {
		b.StoreErrors.Add(1)
	}
}

// RecordQuery implements MetricsCollector.
func (b *BasicMetricsCollector) RecordQuery(leaves int, duration time.Duration, err error) {
	b.QueryCount.Add(1)
	b.QueryLeaves.Add(int64(leaves))
	b.QueryTotalNanos.Add(duration.Nanoseconds())

	if err != nil {
		b.QueryErrors.Add(1)
	}
}

// RecordCommit implements MetricsCollector.
func (b *BasicMetricsCollector) RecordCommit(_ time.Duration, err error) {
	b.CommitCount.Add(1)

	if err != nil {
		b.CommitErrors.Add(1)
	}
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	return BasicMetricsStats{
		LoadCount:     b.LoadCount.Load(),
		LoadHits:      b.LoadHits.Load(),
		LoadErrors:    b.LoadErrors.Load(),
		LoadBytes:     b.LoadBytes.Load(),
		LoadAvgNanos:  avg(b.LoadTotalNanos.Load(), b.LoadCount.Load()),
		StoreCount:    b.StoreCount.Load(),
		StoreErrors:   b.StoreErrors.Load(),
		StoreBytes:    b.StoreBytes.Load(),
		QueryCount:    b.QueryCount.Load(),
		QueryErrors:   b.QueryErrors.Load(),
		QueryLeaves:   b.QueryLeaves.Load(),
		QueryAvgNanos: avg(b.QueryTotalNanos.Load(), b.QueryCount.Load()),
		CommitCount:   b.CommitCount.Load(),
		CommitErrors:  b.CommitErrors.Load(),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}

	return total / count
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	LoadCount     int64
	LoadHits      int64
	LoadErrors    int64
	LoadBytes     int64
	LoadAvgNanos  int64
	StoreCount    int64
	StoreErrors   int64
	StoreBytes    int64
	QueryCount    int64
	QueryErrors   int64
	QueryLeaves   int64
	QueryAvgNanos int64
	CommitCount   int64
	CommitErrors  int64
}

var (
	_ MetricsCollector = NoopMetricsCollector{}
	_ MetricsCollector = (*BasicMetricsCollector)(nil)
)
