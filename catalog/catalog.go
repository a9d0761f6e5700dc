package catalog

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/wah"
	"github.com/hupe1980/wah/blobstore"
	"github.com/hupe1980/wah/codec"
	"github.com/hupe1980/wah/internal/cache"
)

// Catalog is a versioned collection of named bitmaps in a blob store.
type Catalog struct {
	store  blobstore.BlobStore
	opts   options
	log    *wah.Logger
	cache  cache.BitmapCache // nil if disabled
	writer string
	seq    atomic.Uint64

	commitMu sync.Mutex

	mu        sync.RWMutex
	version   uint64
	current   string // manifest CURRENT pointed at when last read or written
	committed map[string]Entry
	entries   map[string]Entry // staged view
	inflight  map[string]struct{} // blobs of the manifest being published
	deferred  []string            // displaced blobs inflight still references
	closed    bool
}

// Open loads the catalog published in store. A store without CURRENT yields
// an empty catalog at version 0.
func Open(ctx context.Context, store blobstore.BlobStore, optFns ...Option) (*Catalog, error) {
	o := applyOptions(optFns)

	c := &Catalog{
		store:  store,
		opts:   o,
		log:    o.logger.WithComponent("catalog"),
		writer: strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
	}

	if o.cacheSize > 0 {
		if o.cacheShards > 1 {
			sc := cache.NewSharded(o.cacheSize, o.cacheShards, o.rc)
			sc.OnEvict(c.logEvict)
			c.cache = sc
		} else {
			lc := cache.NewLRU(o.cacheSize, o.rc)
			lc.OnEvict(c.logEvict)
			c.cache = lc
		}
	}

	if err := c.reload(ctx); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Catalog) logEvict(key string, bytes int64) {
	c.log.LogEvict(context.Background(), key, bytes)
}

// readCurrent returns the manifest CURRENT points at, or ("", nil) for an
// unpublished store.
func (c *Catalog) readCurrent(ctx context.Context) (string, *Manifest, error) {
	data, err := blobstore.Get(ctx, c.store, blobstore.CurrentName)
	if err != nil {
		if errors.Is(err, blobstore.ErrNotFound) {
			return "", nil, nil
		}

		return "", nil, fmt.Errorf("catalog: read %s: %w", blobstore.CurrentName, err)
	}

	name := strings.TrimSpace(string(data))

	version, err := parseManifestName(name)
	if err != nil {
		return "", nil, err
	}

	mdata, err := blobstore.Get(ctx, c.store, name)
	if err != nil {
		return "", nil, fmt.Errorf("catalog: read manifest %s: %w", name, err)
	}

	m, err := decodeManifest(mdata)
	if err != nil {
		return "", nil, err
	}

	if m.Version != version {
		return "", nil, fmt.Errorf("catalog: manifest %s records version %d", name, m.Version)
	}

	return name, m, nil
}

func (c *Catalog) reload(ctx context.Context) error {
	name, m, err := c.readCurrent(ctx)
	if err != nil {
		return err
	}

	committed := make(map[string]Entry)

	var version uint64

	if m != nil {
		version = m.Version
		for _, e := range m.Entries {
			committed[e.Name] = e
		}
	}

	c.mu.Lock()
	staged := c.stagedBlobsLocked()
	c.version = version
	c.current = name
	c.committed = committed
	c.entries = maps.Clone(committed)
	c.mu.Unlock()

	c.deleteBlobs(ctx, staged)

	return nil
}

// stagedBlobsLocked returns blobs written since the last commit.
func (c *Catalog) stagedBlobsLocked() []string {
	var out []string

	for name, e := range c.entries {
		if c.committed[name].Blob != e.Blob {
			out = append(out, e.Blob)
		}
	}

	return out
}

// Refresh discards staged changes and reloads the published version. It
// waits for a Commit in progress.
func (c *Catalog) Refresh(ctx context.Context) error {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	if err := c.checkOpen(); err != nil {
		return err
	}

	return c.reload(ctx)
}

// releaseLocked returns blob for deletion unless a Commit in progress
// publishes it, in which case Commit decides once the outcome is known.
func (c *Catalog) releaseLocked(blob string) []string {
	if _, ok := c.inflight[blob]; ok {
		c.deferred = append(c.deferred, blob)
		return nil
	}

	return []string{blob}
}

// liveBlobsLocked returns the blobs referenced by the committed or staged
// entries.
func (c *Catalog) liveBlobsLocked() map[string]struct{} {
	live := make(map[string]struct{}, len(c.committed)+len(c.entries))

	for _, e := range c.committed {
		live[e.Blob] = struct{}{}
	}

	for _, e := range c.entries {
		live[e.Blob] = struct{}{}
	}

	return live
}

func (c *Catalog) checkOpen() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return ErrClosed
	}

	return nil
}

// Version returns the committed version the catalog is based on.
func (c *Catalog) Version() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.version
}

// Dirty reports whether staged changes await Commit.
func (c *Catalog) Dirty() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return !maps.Equal(c.entries, c.committed)
}

// Entries returns the staged entries sorted by name.
func (c *Catalog) Entries() []Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := slices.Collect(maps.Values(c.entries))
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })

	return out
}

// Stat returns the staged entry for name.
func (c *Catalog) Stat(name string) (Entry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return Entry{}, ErrClosed
	}

	e, ok := c.entries[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	return e, nil
}

// Put encodes b and stages it under name. b is not retained.
func (c *Catalog) Put(ctx context.Context, name string, b *wah.Bitmap) error {
	if err := checkName(name); err != nil {
		return err
	}

	if b == nil {
		return fmt.Errorf("catalog: put %s: nil bitmap", name)
	}

	c.mu.RLock()
	closed, next := c.closed, c.version+1
	c.mu.RUnlock()

	if closed {
		return ErrClosed
	}

	start := time.Now()

	data, err := codec.EncodeBitmap(c.opts.compressor, b)
	if err == nil {
		blob := blobName(name, next, c.writer, c.seq.Add(1))
		err = c.putBlob(ctx, name, blob, data, b)
	}

	c.opts.metricsCollector.RecordStore(int64(len(data)), time.Since(start), err)
	c.log.LogStore(ctx, name, int64(len(data)), err)

	return err
}

func (c *Catalog) putBlob(ctx context.Context, name, blob string, data []byte, b *wah.Bitmap) error {
	if err := c.store.Put(ctx, blob, data); err != nil {
		return fmt.Errorf("catalog: put %s: %w", name, err)
	}

	comp, err := codec.FrameCompressor(data)
	if err != nil {
		return err
	}

	e := Entry{
		Name:       name,
		Blob:       blob,
		Len:        b.Len(),
		Count:      b.Count(),
		Compressor: comp.Name(),
		Size:       int64(len(data)),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.deleteBlobs(ctx, []string{blob})

		return ErrClosed
	}

	var drop []string

	prev, had := c.entries[name]
	c.entries[name] = e

	if had && c.committed[name].Blob != prev.Blob {
		drop = c.releaseLocked(prev.Blob)
	}
	c.mu.Unlock()

	c.deleteBlobs(ctx, drop)

	if c.cache != nil {
		c.cache.Add(blob, b.Clone())
	}

	return nil
}

// Delete stages the removal of name.
func (c *Catalog) Delete(ctx context.Context, name string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	e, ok := c.entries[name]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	var drop []string

	delete(c.entries, name)

	if c.committed[name].Blob != e.Blob {
		drop = c.releaseLocked(e.Blob)
	}
	c.mu.Unlock()

	c.deleteBlobs(ctx, drop)

	return nil
}

// deleteBlobs removes blobs and their cache entries, logging failures.
func (c *Catalog) deleteBlobs(ctx context.Context, blobs []string) {
	for _, blob := range blobs {
		if c.cache != nil {
			c.cache.Remove(blob)
		}

		if err := c.store.Delete(ctx, blob); err != nil {
			c.log.WarnContext(ctx, "blob cleanup failed", "blob", blob, "error", err)
		}
	}
}

// Get returns a private copy of the bitmap stored under name.
func (c *Catalog) Get(ctx context.Context, name string) (*wah.Bitmap, error) {
	e, err := c.Stat(name)
	if err != nil {
		return nil, err
	}

	b, shared, err := c.load(ctx, e)
	if err != nil {
		return nil, err
	}

	if shared {
		b = b.Clone()
	}

	return b, nil
}

// load returns the decoded bitmap for e. A shared bitmap is owned by the
// cache and must not be mutated.
func (c *Catalog) load(ctx context.Context, e Entry) (*wah.Bitmap, bool, error) {
	start := time.Now()

	if c.cache != nil {
		if b, ok := c.cache.Get(e.Blob); ok {
			c.opts.metricsCollector.RecordLoad(0, time.Since(start), true, nil)
			c.log.LogLoad(ctx, e.Name, e.Size, true, nil)

			return b, true, nil
		}
	}

	b, err := c.read(ctx, e)

	c.opts.metricsCollector.RecordLoad(e.Size, time.Since(start), false, err)
	c.log.LogLoad(ctx, e.Name, e.Size, false, err)

	if err != nil {
		return nil, false, err
	}

	if c.cache != nil && c.cache.Add(e.Blob, b) {
		return b, true, nil
	}

	return b, false, nil
}

func (c *Catalog) read(ctx context.Context, e Entry) (*wah.Bitmap, error) {
	rc := c.opts.rc

	if err := rc.AcquireLoad(ctx); err != nil {
		return nil, err
	}
	defer rc.ReleaseLoad()

	blob, err := c.store.Open(ctx, e.Blob)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", e.Name, err)
	}
	defer blob.Close()

	if err := rc.WaitRead(ctx, int(blob.Size())); err != nil {
		return nil, err
	}

	data, err := blobstore.ReadAll(ctx, blob)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", e.Name, err)
	}

	b, err := codec.DecodeBitmap(data)
	if err != nil {
		return nil, fmt.Errorf("catalog: decode %s: %w", e.Name, err)
	}

	if c.opts.verify {
		if err := b.Validate(); err != nil {
			return nil, fmt.Errorf("catalog: verify %s: %w", e.Name, err)
		}
	}

	if b.Len() != e.Len || b.Count() != e.Count {
		return nil, fmt.Errorf("%w: %s has len=%d count=%d, recorded len=%d count=%d",
			ErrEntryMismatch, e.Name, b.Len(), b.Count(), e.Len, e.Count)
	}

	return b, nil
}

type loaded struct {
	b      *wah.Bitmap
	shared bool
}

// fetch loads names in parallel.
func (c *Catalog) fetch(ctx context.Context, names []string) (map[string]loaded, error) {
	entries := make([]Entry, len(names))

	for i, name := range names {
		e, err := c.Stat(name)
		if err != nil {
			return nil, err
		}

		entries[i] = e
	}

	results := make([]loaded, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.concurrency)

	for i, e := range entries {
		g.Go(func() error {
			b, shared, err := c.load(gctx, e)
			if err != nil {
				return err
			}

			results[i] = loaded{b: b, shared: shared}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]loaded, len(names))
	for i, name := range names {
		out[name] = results[i]
	}

	return out, nil
}

// Prefetch loads names into the cache in parallel.
func (c *Catalog) Prefetch(ctx context.Context, names ...string) error {
	_, err := c.fetch(ctx, names)
	return err
}

// Query evaluates e over the staged entries and returns a private result.
func (c *Catalog) Query(ctx context.Context, e Expr) (*wah.Bitmap, error) {
	start := time.Now()
	names := Refs(e)

	var result *wah.Bitmap

	leaves, err := c.fetch(ctx, names)
	if err == nil {
		var owned bool

		result, owned = eval(e, leaves)
		if !owned {
			result = result.Clone()
		}
	}

	elapsed := time.Since(start)

	var count uint64
	if result != nil {
		count = result.Count()
	}

	c.opts.metricsCollector.RecordQuery(len(names), elapsed, err)
	c.log.LogQuery(ctx, e.String(), count, elapsed, err)

	return result, err
}

// eval computes e. The result is owned (safe to mutate) when the second
// return value is true; leaves are never owned.
func eval(e Expr, leaves map[string]loaded) (*wah.Bitmap, bool) {
	switch e := e.(type) {
	case refExpr:
		return leaves[e.name].b, false
	case notExpr:
		x, owned := eval(e.x, leaves)
		if !owned {
			x = x.Clone()
		}

		x.Not()

		return x, true
	case binaryExpr:
		l, owned := eval(e.l, leaves)
		r, _ := eval(e.r, leaves)

		if !owned {
			l = l.Clone()
		}

		switch e.op {
		case opAnd:
			l.And(r)
		case opOr:
			l.Or(r)
		case opAndNot:
			l.AndNot(r)
		}

		return l, true
	default:
		panic(fmt.Sprintf("catalog: unknown expression %T", e))
	}
}

// Commit publishes the staged entries as the next version and removes blobs
// the new version no longer references. It returns
// blobstore.ErrConcurrentModification if another writer published first;
// Refresh then drops the staged changes.
//
// Put and Delete may run while Commit publishes. Their changes stay staged
// for the next Commit.
func (c *Catalog) Commit(ctx context.Context) error {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}

	if maps.Equal(c.entries, c.committed) {
		c.mu.Unlock()
		return nil
	}

	version := c.version + 1
	base := c.current
	snapshot := maps.Clone(c.entries)
	oldCommitted := c.committed

	c.inflight = make(map[string]struct{}, len(snapshot))
	for _, e := range snapshot {
		c.inflight[e.Blob] = struct{}{}
	}
	c.mu.Unlock()

	start := time.Now()
	name, err := c.publish(ctx, version, base, snapshot)

	c.opts.metricsCollector.RecordCommit(time.Since(start), err)
	c.log.LogCommit(ctx, version, len(snapshot), err)

	var garbage []string

	c.mu.Lock()
	if err == nil {
		c.version = version
		c.current = name
		c.committed = snapshot

		for n, e := range oldCommitted {
			if snapshot[n].Blob != e.Blob {
				garbage = append(garbage, e.Blob)
			}
		}
	}

	garbage = append(garbage, c.deferred...)
	live := c.liveBlobsLocked()
	garbage = slices.DeleteFunc(garbage, func(blob string) bool {
		_, ok := live[blob]
		return ok
	})
	c.inflight, c.deferred = nil, nil
	c.mu.Unlock()

	if err == nil && base != "" {
		garbage = append(garbage, base)
	}

	c.deleteBlobs(ctx, garbage)

	return err
}

func (c *Catalog) publish(ctx context.Context, version uint64, base string, entries map[string]Entry) (string, error) {
	m := &Manifest{
		Version: version,
		Created: time.Now().UTC(),
		Entries: slices.Collect(maps.Values(entries)),
	}

	data, err := encodeManifest(c.opts.manifestCodec, m)
	if err != nil {
		return "", err
	}

	name := manifestName(version, c.writer)

	if err := c.store.Put(ctx, name, data); err != nil {
		return "", fmt.Errorf("catalog: write manifest: %w", err)
	}

	if err := c.swapCurrent(ctx, version, base, name); err != nil {
		c.deleteBlobs(ctx, []string{name})

		if errors.Is(err, blobstore.ErrConcurrentModification) {
			c.log.WarnContext(ctx, "concurrent commit detected", "version", version)
		}

		return "", err
	}

	return name, nil
}

func (c *Catalog) swapCurrent(ctx context.Context, version uint64, base, name string) error {
	if committer, ok := c.store.(blobstore.Committer); ok {
		return committer.Commit(ctx, version, name)
	}

	cur, _, err := c.readCurrent(ctx)
	if err != nil {
		return err
	}

	if cur != base {
		return fmt.Errorf("%w: CURRENT is %q, expected %q", blobstore.ErrConcurrentModification, cur, base)
	}

	return c.store.Put(ctx, blobstore.CurrentName, []byte(name))
}

// Vacuum deletes bitmap and manifest blobs referenced by neither the
// published nor the staged version. It must not run while another process
// writes to the same store.
func (c *Catalog) Vacuum(ctx context.Context) (int, error) {
	c.commitMu.Lock()
	defer c.commitMu.Unlock()

	if err := c.checkOpen(); err != nil {
		return 0, err
	}

	c.mu.RLock()
	keep := c.liveBlobsLocked()
	keep[c.current] = struct{}{}
	c.mu.RUnlock()

	var garbage []string

	for _, prefix := range []string{bitmapPrefix, manifestPrefix} {
		names, err := c.store.List(ctx, prefix)
		if err != nil {
			return 0, err
		}

		for _, n := range names {
			if _, ok := keep[n]; !ok {
				garbage = append(garbage, n)
			}
		}
	}

	c.deleteBlobs(ctx, garbage)

	return len(garbage), nil
}

// CacheStats reports decoded-bitmap cache activity. It is zero when the
// cache is disabled.
type CacheStats = cache.Stats

// CacheStats returns a snapshot of cache counters.
func (c *Catalog) CacheStats() CacheStats {
	if c.cache == nil {
		return CacheStats{}
	}

	return c.cache.Stats()
}

// Close releases the cache. Staged changes that were not committed are
// discarded but their blobs stay in the store until Vacuum.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.closed = true

	if c.cache != nil {
		c.cache.Purge()
	}

	return nil
}
