package promcollector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/wah"
	"github.com/hupe1980/wah/blobstore"
	"github.com/hupe1980/wah/catalog"
)

func TestCollectorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()

	c, err := NewCollector(reg, "test")
	require.NoError(t, err)

	c.RecordLoad(100, time.Millisecond, false, nil)
	c.RecordLoad(0, time.Microsecond, true, nil)
	c.RecordStore(40, time.Millisecond, nil)
	c.RecordStore(40, time.Millisecond, errors.New("boom"))
	c.RecordQuery(3, time.Millisecond, nil)
	c.RecordCommit(time.Millisecond, nil)

	assert.InDelta(t, 2, testutil.ToFloat64(c.ops.WithLabelValues("load", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.ops.WithLabelValues("store", "error")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(c.cacheHits), 0)
	assert.InDelta(t, 100, testutil.ToFloat64(c.bytes.WithLabelValues("read")), 0)
	assert.InDelta(t, 40, testutil.ToFloat64(c.bytes.WithLabelValues("write")), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(c.leaves))

	// Registering the same namespace twice fails.
	_, err = NewCollector(reg, "test")
	assert.Error(t, err)
}

func TestCollectorWithCatalog(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()

	mc, err := NewCollector(reg, "")
	require.NoError(t, err)

	cat, err := catalog.Open(ctx, blobstore.NewMemoryStore(), catalog.WithMetricsCollector(mc))
	require.NoError(t, err)

	defer cat.Close()

	b := wah.New()
	b.Add1s(300)
	require.NoError(t, cat.Put(ctx, "x", b))
	require.NoError(t, cat.Commit(ctx))

	_, err = cat.Query(ctx, catalog.Not(catalog.Ref("x")))
	require.NoError(t, err)

	assert.InDelta(t, 1, testutil.ToFloat64(mc.ops.WithLabelValues("commit", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(mc.ops.WithLabelValues("query", "success")), 0)

	n, err := testutil.GatherAndCount(reg, "wah_catalog_operations_total")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
