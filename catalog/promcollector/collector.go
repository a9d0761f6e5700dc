// Package promcollector exports catalog metrics to Prometheus.
package promcollector

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hupe1980/wah/catalog"
)

var _ catalog.MetricsCollector = (*Collector)(nil)

// Collector implements catalog.MetricsCollector with Prometheus metrics.
type Collector struct {
	opLatency *prometheus.HistogramVec
	ops       *prometheus.CounterVec
	bytes     *prometheus.CounterVec
	cacheHits prometheus.Counter
	leaves    prometheus.Histogram
}

// NewCollector creates a Collector and registers its metrics with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewCollector(reg prometheus.Registerer, namespace string) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	if namespace == "" {
		namespace = "wah"
	}

	c := &Collector{
		opLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_operation_latency_seconds",
			Help:      "Latency of catalog operations",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op", "status"}),
		ops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_operations_total",
			Help:      "Total catalog operations",
		}, []string{"op", "status"}),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_bytes_total",
			Help:      "Encoded bytes moved to and from the blob store",
		}, []string{"direction"}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_cache_hits_total",
			Help:      "Loads served from the decoded-bitmap cache",
		}),
		leaves: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "catalog_query_leaves",
			Help:      "Distinct bitmaps referenced per query",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		}),
	}

	for _, m := range []prometheus.Collector{c.opLatency, c.ops, c.bytes, c.cacheHits, c.leaves} {
		if err := reg.Register(m); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func status(err error) string {
	if err != nil {
		return "error"
	}

	return "success"
}

func (c *Collector) observe(op string, d time.Duration, err error) {
	s := status(err)
	c.opLatency.WithLabelValues(op, s).Observe(d.Seconds())
	c.ops.WithLabelValues(op, s).Inc()
}

// RecordLoad implements catalog.MetricsCollector.
func (c *Collector) RecordLoad(bytes int64, d time.Duration, hit bool, err error) {
	c.observe("load", d, err)

	if hit {
		c.cacheHits.Inc()
	}

	c.bytes.WithLabelValues("read").Add(float64(bytes))
}

// RecordStore implements catalog.MetricsCollector.
func (c *Collector) RecordStore(bytes int64, d time.Duration, err error) {
	c.observe("store", d, err)

	if err == nil {
		c.bytes.WithLabelValues("write").Add(float64(bytes))
	}
}

// RecordQuery implements catalog.MetricsCollector.
func (c *Collector) RecordQuery(leaves int, d time.Duration, err error) {
	c.observe("query", d, err)
	c.leaves.Observe(float64(leaves))
}

// RecordCommit implements catalog.MetricsCollector.
func (c *Collector) RecordCommit(d time.Duration, err error) {
	c.observe("commit", d, err)
}
