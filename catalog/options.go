package catalog

import (
	"io"
	"log/slog"
	"runtime"

	"github.com/hupe1980/wah"
	"github.com/hupe1980/wah/codec"
	"github.com/hupe1980/wah/resource"
)

// DefaultCacheSize is the decoded-bitmap cache budget used when none is
// configured.
const DefaultCacheSize = 64 << 20

type options struct {
	compressor       codec.Compressor
	manifestCodec    codec.Codec
	cacheSize        int64
	cacheShards      int
	concurrency      int
	rc               *resource.Controller
	metricsCollector MetricsCollector
	logger           *wah.Logger
	verify           bool
}

// Option configures Open.
type Option func(*options)

// WithCompressor configures the compressor for newly written bitmaps.
// Existing blobs record their own compressor and stay readable.
//
// If nil is passed, bitmaps are stored uncompressed.
func WithCompressor(c codec.Compressor) Option {
	return func(o *options) {
		if c == nil {
			c = codec.None{}
		}

		o.compressor = c
	}
}

// WithManifestCodec configures the codec used to write manifests.
//
// If nil is passed, codec.Default is used.
func WithManifestCodec(c codec.Codec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.Default
		}

		o.manifestCodec = c
	}
}

// WithCacheSize sets the byte budget of the decoded-bitmap cache.
// Zero or negative disables caching.
func WithCacheSize(bytes int64) Option {
	return func(o *options) {
		o.cacheSize = bytes
	}
}

// WithCacheShards splits the cache into n independently locked shards.
// Each shard holds cacheSize/n bytes, so a bitmap larger than a shard is
// never cached.
func WithCacheShards(n int) Option {
	return func(o *options) {
		o.cacheShards = n
	}
}

// WithConcurrency bounds the number of parallel loads in Prefetch and Query.
func WithConcurrency(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithResourceController shares memory, load-slot and read-rate limits
// between catalogs.
func WithResourceController(rc *resource.Controller) Option {
	return func(o *options) {
		o.rc = rc
	}
}

// WithVerify validates the structure of every loaded bitmap.
func WithVerify(verify bool) Option {
	return func(o *options) {
		o.verify = verify
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &catalog.BasicMetricsCollector{}
//	cat, _ := catalog.Open(ctx, store, catalog.WithMetricsCollector(metrics))
//	// ... use cat ...
//	stats := metrics.GetStats()
//	fmt.Printf("Loads: %d, hits: %d\n", stats.LoadCount, stats.LoadHits)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		if mc == nil {
			mc = NoopMetricsCollector{}
		}

		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *wah.Logger) Option {
	return func(o *options) {
		if logger == nil {
			logger = wah.NoopLogger()
		}

		o.logger = logger
	}
}

// WithLogLevel creates a text logger writing to w with the specified level.
// Convenience wrapper for WithLogger(wah.NewTextLogger(w, level)).
func WithLogLevel(w io.Writer, level slog.Level) Option {
	return func(o *options) {
		o.logger = wah.NewTextLogger(w, level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		compressor:       codec.LZ4{},
		manifestCodec:    codec.Default,
		cacheSize:        DefaultCacheSize,
		cacheShards:      1,
		concurrency:      runtime.GOMAXPROCS(0),
		metricsCollector: NoopMetricsCollector{},
		logger:           wah.NoopLogger(),
	}

	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}

	return o
}
