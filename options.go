package sketchtree

import (
	"log/slog"

	"github.com/hupe1980/sketchtree/blobstore"
	"github.com/hupe1980/sketchtree/codec"
	"github.com/hupe1980/sketchtree/sbt"
)

const (
	// DefaultBloomFilterSize is the number of bits per internal node filter.
	DefaultBloomFilterSize = 100_000
	// DefaultBranchingFactor is the number of children per internal node.
	DefaultBranchingFactor = 2

	defaultNumHashes = 4
	// Filters index hash values directly, so every sketch hash is one "k-mer".
	defaultFilterKSize = 1
)

type options struct {
	bloomFilterSize     uint64
	branchingFactor     int
	printVersionWarning bool
	cacheSize           int
	storage             blobstore.Store
	codec               *codec.SketchCodec
	metricsCollector    MetricsCollector
	logger              *Logger
	loggerSet           bool
	exactThreshold      bool
	searchFunc          sbt.SearchFunc
}

// Option configures index creation, loading, leaves and searches.
// Options that do not apply to an operation are ignored by it.
type Option func(*options)

// WithBloomFilterSize sets the filter size, in bits, of internal nodes
// created by CreateIndex.
func WithBloomFilterSize(size uint64) Option {
	return func(o *options) {
		o.bloomFilterSize = size
	}
}

// WithBranchingFactor sets the number of children per internal node for
// CreateIndex. Values below 2 select the default.
func WithBranchingFactor(d int) Option {
	return func(o *options) {
		o.branchingFactor = d
	}
}

// WithPrintVersionWarning controls whether LoadIndex warns when reading an
// older descriptor version. Enabled by default.
func WithPrintVersionWarning(enabled bool) Option {
	return func(o *options) {
		o.printVersionWarning = enabled
	}
}

// WithCacheSize bounds how many internal node filters a loaded tree keeps in
// memory. Zero leaves the cache unbounded.
func WithCacheSize(n int) Option {
	return func(o *options) {
		o.cacheSize = n
	}
}

// WithStorage overrides the store that LoadIndex reads node and leaf payloads
// from. By default the store named in the descriptor is used.
func WithStorage(store blobstore.Store) Option {
	return func(o *options) {
		o.storage = store
	}
}

// WithSketchCodec configures how leaves encode and decode their sketch.
//
// If nil is passed, codec.DefaultSketchCodec is used.
func WithSketchCodec(c *codec.SketchCodec) Option {
	return func(o *options) {
		if c == nil {
			c = codec.DefaultSketchCodec
		}
		o.codec = c
	}
}

// WithExactThreshold makes Search drop candidates whose exact similarity is
// below the threshold. This only matters with a custom search function whose
// leaf decision is approximate.
func WithExactThreshold() Option {
	return func(o *options) {
		o.exactThreshold = true
	}
}

// WithSearchFunc replaces SearchMinHashes as the traversal predicate used by
// Search.
func WithSearchFunc(fn sbt.SearchFunc) Option {
	return func(o *options) {
		o.searchFunc = fn
	}
}

// WithMetricsCollector configures a metrics collector for monitoring operations.
// Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &sketchtree.BasicMetricsCollector{}
//	tree, _ := sketchtree.LoadIndex(ctx, "genomes.sbt.json", sketchtree.WithMetricsCollector(metrics))
//	// ... search ...
//	stats := metrics.GetStats()
//	fmt.Printf("Loads: %d, Bytes: %d\n", stats.LoadCount, stats.LoadBytes)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
		o.loggerSet = logger != nil
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
		o.loggerSet = true
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		bloomFilterSize:     DefaultBloomFilterSize,
		branchingFactor:     DefaultBranchingFactor,
		printVersionWarning: true,
		codec:               codec.DefaultSketchCodec,
		metricsCollector:    NoopMetricsCollector{},
		logger:              NoopLogger(),
		searchFunc:          SearchMinHashes,
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	if o.searchFunc == nil {
		o.searchFunc = SearchMinHashes
	}
	if o.branchingFactor < 2 {
		o.branchingFactor = DefaultBranchingFactor
	}
	return o
}
