package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/wah"
	"github.com/hupe1980/wah/blobstore"
	"github.com/hupe1980/wah/codec"
	"github.com/hupe1980/wah/resource"
	"github.com/hupe1980/wah/testutil"
)

func fromBits(bits []bool) *wah.Bitmap {
	b := wah.New()
	b.Add(testutil.Pack(bits), uint64(len(bits)))

	return b
}

func requireBits(t *testing.T, want []bool, got *wah.Bitmap) {
	t.Helper()

	require.NoError(t, got.Validate())
	require.Equal(t, uint64(len(want)), got.Len())
	assert.Equal(t, testutil.Positions(want, true), got.ToSlice())
}

// checkerStore hides MemoryStore's Committer so commits go through the
// compare-then-put path.
type checkerStore struct {
	blobstore.BlobStore
}

func TestPutGetCommitReopen(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	rng := testutil.NewRNG(1)

	c, err := Open(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), c.Version())
	assert.False(t, c.Dirty())

	bits := map[string][]bool{
		"clicks":  rng.RunnyBits(5000, 60),
		"views":   rng.RandomBits(5000, 0.3),
		"empty":   nil,
		"a-b.c_d": rng.RunnyBits(33, 4),
	}

	for name, bs := range bits {
		require.NoError(t, c.Put(ctx, name, fromBits(bs)))
	}

	assert.True(t, c.Dirty())

	got, err := c.Get(ctx, "clicks")
	require.NoError(t, err)
	requireBits(t, bits["clicks"], got)

	require.NoError(t, c.Commit(ctx))
	assert.Equal(t, uint64(1), c.Version())
	assert.False(t, c.Dirty())

	// A second commit without changes is a no-op.
	require.NoError(t, c.Commit(ctx))
	assert.Equal(t, uint64(1), c.Version())

	require.NoError(t, c.Close())

	r, err := Open(ctx, store, WithVerify(true), WithCacheSize(0))
	require.NoError(t, err)

	defer r.Close()

	assert.Equal(t, uint64(1), r.Version())

	entries := r.Entries()
	require.Len(t, entries, len(bits))
	assert.Equal(t, "a-b.c_d", entries[0].Name)

	for name, bs := range bits {
		e, err := r.Stat(name)
		require.NoError(t, err)
		assert.Equal(t, testutil.Count(bs), e.Count)

		got, err := r.Get(ctx, name)
		require.NoError(t, err)
		requireBits(t, bs, got)
	}
}

func TestGetReturnsPrivateCopy(t *testing.T) {
	ctx := context.Background()

	c, err := Open(ctx, blobstore.NewMemoryStore())
	require.NoError(t, err)

	defer c.Close()

	b := wah.New()
	b.Add1s(100)
	require.NoError(t, c.Put(ctx, "ones", b))

	// Mutating the argument after Put does not affect the stored copy.
	b.Not()

	got, err := c.Get(ctx, "ones")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), got.Count())

	got.Not()

	again, err := c.Get(ctx, "ones")
	require.NoError(t, err)
	assert.Equal(t, uint64(100), again.Count())
}

func TestInvalidNameAndMissing(t *testing.T) {
	ctx := context.Background()

	c, err := Open(ctx, blobstore.NewMemoryStore())
	require.NoError(t, err)

	defer c.Close()

	assert.ErrorIs(t, c.Put(ctx, "-bad", wah.New()), ErrInvalidName)
	assert.ErrorIs(t, c.Put(ctx, "a/b", wah.New()), ErrInvalidName)
	assert.Error(t, c.Put(ctx, "nil", nil))

	_, err = c.Get(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.ErrorIs(t, c.Delete(ctx, "nope"), ErrNotFound)

	_, err = c.Query(ctx, And(Ref("nope"), Ref("nope2")))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteAndOrphanCleanup(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	c, err := Open(ctx, store)
	require.NoError(t, err)

	defer c.Close()

	b := wah.New()
	b.Add1s(64)

	require.NoError(t, c.Put(ctx, "x", b))
	require.NoError(t, c.Put(ctx, "y", b))

	// Replacing a staged-only bitmap drops the superseded blob right away.
	require.NoError(t, c.Put(ctx, "y", b))
	require.NoError(t, c.Commit(ctx))

	blobs, err := store.List(ctx, bitmapPrefix)
	require.NoError(t, err)
	assert.Len(t, blobs, 2)

	first, err := c.Stat("x")
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, "x", b))
	require.NoError(t, c.Delete(ctx, "y"))

	// Committed blobs survive until the next commit.
	blobs, err = store.List(ctx, bitmapPrefix)
	require.NoError(t, err)
	assert.Len(t, blobs, 3)
	assert.Contains(t, blobs, first.Blob)

	require.NoError(t, c.Commit(ctx))
	assert.Equal(t, uint64(2), c.Version())

	blobs, err = store.List(ctx, bitmapPrefix)
	require.NoError(t, err)
	require.Len(t, blobs, 1)

	second, err := c.Stat("x")
	require.NoError(t, err)
	assert.Equal(t, second.Blob, blobs[0])

	manifests, err := store.List(ctx, manifestPrefix)
	require.NoError(t, err)
	require.Len(t, manifests, 1)
	assert.True(t, strings.HasPrefix(manifests[0], manifestPrefix+"00000000000000000002-"))

	// Deleting a staged-only bitmap removes its blob.
	require.NoError(t, c.Put(ctx, "z", b))
	require.NoError(t, c.Delete(ctx, "z"))

	blobs, err = store.List(ctx, bitmapPrefix)
	require.NoError(t, err)
	assert.Len(t, blobs, 1)
}

func TestRefreshDiscardsStaged(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	c, err := Open(ctx, store)
	require.NoError(t, err)

	defer c.Close()

	require.NoError(t, c.Put(ctx, "keep", wah.New()))
	require.NoError(t, c.Commit(ctx))
	require.NoError(t, c.Put(ctx, "drop", wah.New()))

	require.NoError(t, c.Refresh(ctx))
	assert.False(t, c.Dirty())

	_, err = c.Stat("drop")
	assert.ErrorIs(t, err, ErrNotFound)

	blobs, err := store.List(ctx, bitmapPrefix)
	require.NoError(t, err)
	assert.Len(t, blobs, 1)
}

// gateStore holds every Put under prefix until release is closed, then
// fails it with err when err is set.
type gateStore struct {
	blobstore.BlobStore
	prefix  string
	err     error
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGateStore(inner blobstore.BlobStore, prefix string, err error) *gateStore {
	return &gateStore{
		BlobStore: inner,
		prefix:    prefix,
		err:       err,
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
}

func (g *gateStore) Put(ctx context.Context, name string, data []byte) error {
	if strings.HasPrefix(name, g.prefix) {
		g.once.Do(func() { close(g.entered) })
		<-g.release

		if g.err != nil {
			return g.err
		}
	}

	return g.BlobStore.Put(ctx, name, data)
}

func TestStagingDuringCommit(t *testing.T) {
	ctx := context.Background()

	x1 := fromBits([]bool{true, false, true})
	x2 := fromBits([]bool{false, true})
	y := fromBits([]bool{true, true, true, true})

	t.Run("published", func(t *testing.T) {
		mem := blobstore.NewMemoryStore()
		gate := newGateStore(mem, manifestPrefix, nil)

		c, err := Open(ctx, gate)
		require.NoError(t, err)

		defer c.Close()

		require.NoError(t, c.Put(ctx, "x", x1))
		require.NoError(t, c.Put(ctx, "y", y))

		done := make(chan error, 1)
		go func() { done <- c.Commit(ctx) }()

		<-gate.entered
		require.NoError(t, c.Put(ctx, "x", x2))
		require.NoError(t, c.Delete(ctx, "y"))
		close(gate.release)
		require.NoError(t, <-done)

		assert.Equal(t, uint64(1), c.Version())
		assert.True(t, c.Dirty())

		fresh, err := Open(ctx, mem)
		require.NoError(t, err)

		got, err := fresh.Get(ctx, "x")
		require.NoError(t, err)
		requireBits(t, []bool{true, false, true}, got)

		got, err = fresh.Get(ctx, "y")
		require.NoError(t, err)
		requireBits(t, []bool{true, true, true, true}, got)

		require.NoError(t, c.Commit(ctx))
		require.NoError(t, fresh.Refresh(ctx))

		got, err = fresh.Get(ctx, "x")
		require.NoError(t, err)
		requireBits(t, []bool{false, true}, got)

		_, err = fresh.Stat("y")
		assert.ErrorIs(t, err, ErrNotFound)

		blobs, err := mem.List(ctx, bitmapPrefix)
		require.NoError(t, err)
		assert.Len(t, blobs, 1)
	})

	t.Run("failed", func(t *testing.T) {
		mem := blobstore.NewMemoryStore()
		gate := newGateStore(mem, manifestPrefix, errors.New("manifest write failed"))

		c, err := Open(ctx, gate)
		require.NoError(t, err)

		defer c.Close()

		require.NoError(t, c.Put(ctx, "x", x1))

		done := make(chan error, 1)
		go func() { done <- c.Commit(ctx) }()

		<-gate.entered
		require.NoError(t, c.Put(ctx, "x", x2))
		close(gate.release)
		require.Error(t, <-done)

		assert.Equal(t, uint64(0), c.Version())

		// The unpublished x1 blob goes once the commit has failed.
		blobs, err := mem.List(ctx, bitmapPrefix)
		require.NoError(t, err)
		require.Len(t, blobs, 1)

		e, err := c.Stat("x")
		require.NoError(t, err)
		assert.Equal(t, e.Blob, blobs[0])

		gate.err = nil
		require.NoError(t, c.Commit(ctx))

		got, err := c.Get(ctx, "x")
		require.NoError(t, err)
		requireBits(t, []bool{false, true}, got)
	})
}

func TestConcurrentWriters(t *testing.T) {
	stores := map[string]func() blobstore.BlobStore{
		"committer": func() blobstore.BlobStore { return blobstore.NewMemoryStore() },
		"compare":   func() blobstore.BlobStore { return checkerStore{blobstore.NewMemoryStore()} },
	}

	for name, newStore := range stores {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := newStore()

			a, err := Open(ctx, store)
			require.NoError(t, err)

			b, err := Open(ctx, store)
			require.NoError(t, err)

			bm := wah.New()
			bm.Add1s(10)

			require.NoError(t, a.Put(ctx, "same", bm))
			require.NoError(t, b.Put(ctx, "same", bm))

			require.NoError(t, a.Commit(ctx))

			err = b.Commit(ctx)
			require.ErrorIs(t, err, blobstore.ErrConcurrentModification)

			// The loser still sees its staged change; after Refresh it sees
			// the winner's version and can commit on top.
			assert.True(t, b.Dirty())
			require.NoError(t, b.Refresh(ctx))
			assert.Equal(t, uint64(1), b.Version())

			require.NoError(t, b.Put(ctx, "other", bm))
			require.NoError(t, b.Commit(ctx))
			assert.Equal(t, uint64(2), b.Version())

			r, err := Open(ctx, store)
			require.NoError(t, err)
			assert.Len(t, r.Entries(), 2)

			winner, err := a.Stat("same")
			require.NoError(t, err)

			got, err := r.Stat("same")
			require.NoError(t, err)
			assert.Equal(t, winner.Blob, got.Blob)

			manifests, err := store.List(ctx, manifestPrefix)
			require.NoError(t, err)
			assert.Len(t, manifests, 1)
		})
	}
}

func TestQueryMatchesReference(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(3)

	c, err := Open(ctx, blobstore.NewMemoryStore(), WithCacheShards(4), WithConcurrency(2))
	require.NoError(t, err)

	defer c.Close()

	ref := map[string][]bool{
		"a": rng.RunnyBits(4000, 50),
		"b": rng.RandomBits(4000, 0.5),
		"c": rng.RunnyBits(2500, 300),
		"d": rng.RandomBits(4100, 0.05),
	}

	for name, bits := range ref {
		require.NoError(t, c.Put(ctx, name, fromBits(bits)))
	}

	var eval func(e Expr) []bool
	eval = func(e Expr) []bool {
		switch e := e.(type) {
		case refExpr:
			return ref[e.name]
		case notExpr:
			return testutil.NotBits(eval(e.x))
		case binaryExpr:
			l, r := eval(e.l), eval(e.r)

			switch e.op {
			case opAnd:
				return testutil.AndBits(l, r)
			case opOr:
				return testutil.OrBits(l, r)
			default:
				return testutil.AndNotBits(l, r)
			}
		}

		panic("unreachable")
	}

	queries := []string{
		"a",
		"!a",
		"a & b",
		"a | c",
		"a - b",
		"a & b | c - d",
		"!(a | b) & c",
		"(a - c) | (b & !d)",
		"a & a",
		"a - a | !!b",
		"d & (a | b | c)",
	}

	for _, q := range queries {
		t.Run(q, func(t *testing.T) {
			e, err := ParseExpr(q)
			require.NoError(t, err)

			got, err := c.Query(ctx, e)
			require.NoError(t, err)
			requireBits(t, eval(e), got)
		})
	}

	// Leaves in the cache are untouched by queries.
	for name, bits := range ref {
		got, err := c.Get(ctx, name)
		require.NoError(t, err)
		requireBits(t, bits, got)
	}
}

func TestParallelQueries(t *testing.T) {
	ctx := context.Background()
	rng := testutil.NewRNG(9)

	c, err := Open(ctx, blobstore.NewMemoryStore())
	require.NoError(t, err)

	defer c.Close()

	a, b := rng.RunnyBits(3000, 20), rng.RunnyBits(3000, 20)
	require.NoError(t, c.Put(ctx, "a", fromBits(a)))
	require.NoError(t, c.Put(ctx, "b", fromBits(b)))

	want := testutil.Count(testutil.AndNotBits(a, b))

	var wg sync.WaitGroup

	for range 8 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			got, err := c.Query(ctx, AndNot(Ref("a"), Ref("b")))
			if assert.NoError(t, err) {
				assert.Equal(t, want, got.Count())
			}
		}()
	}

	wg.Wait()
}

func TestCacheAndMetrics(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	mc := &BasicMetricsCollector{}

	w, err := Open(ctx, store)
	require.NoError(t, err)

	b := wah.New()
	b.Add1s(1000)
	b.Add0s(1000)
	require.NoError(t, w.Put(ctx, "half", b))
	require.NoError(t, w.Commit(ctx))

	var logs bytes.Buffer

	c, err := Open(ctx, store, WithMetricsCollector(mc), WithLogLevel(&logs, slog.LevelDebug))
	require.NoError(t, err)

	defer c.Close()

	for range 3 {
		_, err := c.Get(ctx, "half")
		require.NoError(t, err)
	}

	_, err = c.Query(ctx, Not(Ref("half")))
	require.NoError(t, err)

	stats := mc.GetStats()
	assert.Equal(t, int64(4), stats.LoadCount)
	assert.Equal(t, int64(3), stats.LoadHits)
	assert.Equal(t, int64(1), stats.QueryCount)
	assert.Equal(t, int64(1), stats.QueryLeaves)

	cs := c.CacheStats()
	assert.Equal(t, int64(3), cs.Hits)
	assert.Equal(t, int64(1), cs.Misses)
	assert.Equal(t, 1, cs.Entries)

	assert.Contains(t, logs.String(), "component=catalog")
	assert.Contains(t, logs.String(), "half")
}

func TestCorruptBlob(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	c, err := Open(ctx, store, WithCacheSize(0), WithCompressor(codec.None{}))
	require.NoError(t, err)

	defer c.Close()

	b := wah.New()
	b.Add1s(50)
	require.NoError(t, c.Put(ctx, "x", b))

	e, err := c.Stat("x")
	require.NoError(t, err)

	// A well-formed blob of another bitmap is caught by the entry check.
	other := wah.New()
	other.Add1s(49)
	data, err := codec.EncodeBitmap(codec.None{}, other)
	require.NoError(t, err)
	require.NoError(t, store.Put(ctx, e.Blob, data))

	_, err = c.Get(ctx, "x")
	assert.ErrorIs(t, err, ErrEntryMismatch)

	require.NoError(t, store.Put(ctx, e.Blob, []byte("garbage")))

	_, err = c.Get(ctx, "x")
	assert.Error(t, err)
}

func TestResourceLimits(t *testing.T) {
	ctx := context.Background()
	rc := resource.NewController(resource.Config{MemoryLimitBytes: 1})

	c, err := Open(ctx, blobstore.NewMemoryStore(), WithResourceController(rc))
	require.NoError(t, err)

	defer c.Close()

	b := wah.New()
	b.Add1s(10)
	require.NoError(t, c.Put(ctx, "x", b))

	// The cache refuses everything, loads still succeed.
	got, err := c.Get(ctx, "x")
	require.NoError(t, err)
	assert.Equal(t, uint64(10), got.Count())
	assert.Positive(t, c.CacheStats().Rejected)
	assert.Equal(t, int64(0), rc.MemoryUsage())
}

func TestLocalStoreBacked(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocalStore(t.TempDir())

	c, err := Open(ctx, store, WithCompressor(codec.Zstd{}), WithManifestCodec(codec.JSON{}))
	require.NoError(t, err)

	want := make(map[string][]bool)

	for i := range 5 {
		name := fmt.Sprintf("seg.%d", i)

		bits := make([]bool, 10000+i)
		for j := range bits {
			bits[j] = (j+i)%3 == 0
		}

		want[name] = bits
		require.NoError(t, c.Put(ctx, name, fromBits(want[name])))
	}

	require.NoError(t, c.Commit(ctx))
	require.NoError(t, c.Close())

	_, err = c.Get(ctx, "seg.0")
	assert.ErrorIs(t, err, ErrClosed)

	r, err := Open(ctx, store)
	require.NoError(t, err)

	defer r.Close()

	require.NoError(t, r.Prefetch(ctx, "seg.0", "seg.1", "seg.2", "seg.3", "seg.4"))

	for name, bits := range want {
		e, err := r.Stat(name)
		require.NoError(t, err)
		assert.Equal(t, "zstd", e.Compressor)

		got, err := r.Get(ctx, name)
		require.NoError(t, err)
		requireBits(t, bits, got)
	}
}

func TestVacuum(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	c, err := Open(ctx, store)
	require.NoError(t, err)

	require.NoError(t, c.Put(ctx, "x", wah.New()))
	require.NoError(t, c.Commit(ctx))

	// Leftovers from a writer that never committed.
	require.NoError(t, store.Put(ctx, bitmapPrefix+"stale.9-dead-1.wah", []byte("x")))
	require.NoError(t, store.Put(ctx, manifestName(7, "dead"), []byte("{}")))

	n, err := c.Vacuum(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = c.Get(ctx, "x")
	require.NoError(t, err)

	require.NoError(t, c.Close())

	_, err = c.Vacuum(ctx)
	assert.True(t, errors.Is(err, ErrClosed))
}
