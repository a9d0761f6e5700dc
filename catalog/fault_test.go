package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/wah"
	"github.com/hupe1980/wah/blobstore"
	"github.com/hupe1980/wah/internal/faultstore"
)

func TestPutFailureLeavesNoEntry(t *testing.T) {
	ctx := context.Background()
	fs := faultstore.New(blobstore.NewMemoryStore())
	mc := &BasicMetricsCollector{}

	c, err := Open(ctx, fs, WithMetricsCollector(mc))
	require.NoError(t, err)

	defer c.Close()

	fs.AddRule(bitmapPrefix, faultstore.Fault{FailPut: true})

	err = c.Put(ctx, "x", wah.New())
	require.ErrorIs(t, err, faultstore.ErrInjected)

	_, err = c.Stat("x")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, c.Dirty())
	assert.Equal(t, int64(1), mc.GetStats().StoreErrors)
}

func TestCommitFailures(t *testing.T) {
	ctx := context.Background()
	mem := blobstore.NewMemoryStore()
	fs := faultstore.New(mem)
	mc := &BasicMetricsCollector{}

	c, err := Open(ctx, fs, WithMetricsCollector(mc))
	require.NoError(t, err)

	defer c.Close()

	require.NoError(t, c.Put(ctx, "x", wah.New()))

	// The manifest cannot be written.
	fs.AddRule(manifestPrefix, faultstore.Fault{FailPut: true})
	require.ErrorIs(t, c.Commit(ctx), faultstore.ErrInjected)
	assert.Equal(t, uint64(0), c.Version())
	assert.True(t, c.Dirty())

	// The manifest is written but CURRENT cannot be swapped.
	fs.Clear()
	fs.AddRule(manifestPrefix, faultstore.Fault{FailCommit: true})
	require.ErrorIs(t, c.Commit(ctx), faultstore.ErrInjected)
	assert.Equal(t, uint64(0), c.Version())

	manifests, err := mem.List(ctx, manifestPrefix)
	require.NoError(t, err)
	assert.Empty(t, manifests)

	fs.Clear()
	require.NoError(t, c.Commit(ctx))
	assert.Equal(t, uint64(1), c.Version())

	stats := mc.GetStats()
	assert.Equal(t, int64(3), stats.CommitCount)
	assert.Equal(t, int64(2), stats.CommitErrors)
}

func TestCleanupFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	fs := faultstore.New(blobstore.NewMemoryStore())

	c, err := Open(ctx, fs)
	require.NoError(t, err)

	defer c.Close()

	require.NoError(t, c.Put(ctx, "x", wah.New()))
	require.NoError(t, c.Commit(ctx))

	fs.AddRule(bitmapPrefix, faultstore.Fault{FailDelete: true})

	require.NoError(t, c.Delete(ctx, "x"))
	require.NoError(t, c.Commit(ctx))
	assert.Equal(t, uint64(2), c.Version())
	assert.Positive(t, fs.Calls("delete"))
}

func TestLoadFailure(t *testing.T) {
	ctx := context.Background()
	fs := faultstore.New(blobstore.NewMemoryStore())

	c, err := Open(ctx, fs, WithCacheSize(0))
	require.NoError(t, err)

	defer c.Close()

	b := wah.New()
	b.Add1s(5)
	require.NoError(t, c.Put(ctx, "x", b))
	require.NoError(t, c.Put(ctx, "y", b))

	fs.AddRule("bitmaps/y.", faultstore.Fault{FailOpen: true})

	_, err = c.Get(ctx, "x")
	require.NoError(t, err)

	_, err = c.Query(ctx, Or(Ref("x"), Ref("y")))
	assert.ErrorIs(t, err, faultstore.ErrInjected)

	assert.ErrorIs(t, c.Prefetch(ctx, "x", "y"), faultstore.ErrInjected)
}

func TestOpenFailsOnBrokenCurrent(t *testing.T) {
	ctx := context.Background()
	mem := blobstore.NewMemoryStore()

	require.NoError(t, mem.Put(ctx, blobstore.CurrentName, []byte("nonsense")))

	_, err := Open(ctx, mem)
	assert.Error(t, err)

	require.NoError(t, mem.Put(ctx, blobstore.CurrentName, []byte(manifestName(3, "w"))))

	_, err = Open(ctx, mem)
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
}
