package sketchtree

import (
	"bytes"
	"context"
	"fmt"
	"maps"
	"time"

	"github.com/hupe1980/sketchtree/blobstore"
	"github.com/hupe1980/sketchtree/sbt"
	"github.com/hupe1980/sketchtree/sketch"
)

// saveCompressionLevel is the level leaves are always written with.
const saveCompressionLevel = 1

// Leaf is a tree leaf holding a single sketch. The sketch is read from
// storage on first use and cached until replaced with Set or released by an
// unloading traversal.
//
// A Leaf is not safe for concurrent use.
type Leaf struct {
	name     string
	key      string
	metadata map[string]any
	store    blobstore.Store
	data     *sketch.Sketch
	opts     options
}

var _ sbt.Leaf = (*Leaf)(nil)

// NewLeaf creates a leaf around an in-memory sketch. store is where Save
// writes the payload; it may be nil for trees that are never saved.
func NewLeaf(name string, s *sketch.Sketch, store blobstore.Store, optFns ...Option) *Leaf {
	return &Leaf{
		name:     name,
		metadata: make(map[string]any),
		store:    store,
		data:     s,
		opts:     applyOptions(optFns),
	}
}

// LoadLeaf rebuilds a leaf from its descriptor entry without reading the
// payload. It is the sbt.LeafLoader used by LoadIndex.
func LoadLeaf(info sbt.LeafInfo, store blobstore.Store) (sbt.Leaf, error) {
	return loadLeaf(info, store, applyOptions(nil)), nil
}

func leafLoader(o options) sbt.LeafLoader {
	return func(info sbt.LeafInfo, store blobstore.Store) (sbt.Leaf, error) {
		return loadLeaf(info, store, o), nil
	}
}

func loadLeaf(info sbt.LeafInfo, store blobstore.Store, o options) *Leaf {
	md := make(map[string]any, len(info.Metadata))
	maps.Copy(md, info.Metadata)
	return &Leaf{
		name:     info.Name,
		key:      info.Key,
		metadata: md,
		store:    store,
		opts:     o,
	}
}

// Name returns the leaf name.
func (l *Leaf) Name() string { return l.name }

// Key returns the storage key of the payload, or "" if never saved.
func (l *Leaf) Key() string { return l.key }

// Metadata returns the metadata persisted with the leaf in the descriptor.
func (l *Leaf) Metadata() map[string]any { return l.metadata }

// SetMetadata stores a metadata value.
func (l *Leaf) SetMetadata(key string, value any) { l.metadata[key] = value }

// Storage returns the store the leaf reads from and writes to.
func (l *Leaf) Storage() blobstore.Store { return l.store }

// SetStorage retargets the leaf to another store. The cached sketch, if any,
// is kept; a leaf that has none still reads from the new store.
func (l *Leaf) SetStorage(store blobstore.Store) { l.store = store }

// Loaded reports whether the sketch is cached.
func (l *Leaf) Loaded() bool { return l.data != nil }

// Get returns the cached sketch, reading and decoding it from storage on the
// first call. Later calls return the same value until Set or Unload.
func (l *Leaf) Get(ctx context.Context) (*sketch.Sketch, error) {
	if l.data != nil {
		return l.data, nil
	}
	if l.key == "" {
		return nil, &LeafError{Leaf: l.name, Op: "load", cause: ErrNoData}
	}
	if l.store == nil {
		return nil, &LeafError{Leaf: l.name, Op: "load", cause: ErrNoStorage}
	}

	start := time.Now()
	raw, err := blobstore.Load(ctx, l.store, l.key)

	var s *sketch.Sketch
	if err == nil {
		s, err = l.opts.codec.DecodeOne(bytes.NewReader(raw))
	}

	elapsed := time.Since(start)
	l.opts.metricsCollector.RecordLoad(len(raw), elapsed, err)
	l.opts.logger.WithLeaf(l.name).LogLoad(ctx, l.key, len(raw), elapsed, err)

	if err != nil {
		return nil, &LeafError{Leaf: l.name, Op: "load", cause: err}
	}
	l.data = s
	return s, nil
}

// Set replaces the cached sketch without any I/O.
func (l *Leaf) Set(s *sketch.Sketch) { l.data = s }

// Save encodes the sketch and writes it under key, returning the key the
// store actually used. The sketch is materialized before anything is
// written, so saving over the leaf's own key is safe.
func (l *Leaf) Save(ctx context.Context, key string) (string, error) {
	s, err := l.Get(ctx)
	if err != nil {
		return "", err
	}
	if l.store == nil {
		return "", &LeafError{Leaf: l.name, Op: "save", cause: ErrNoStorage}
	}

	start := time.Now()
	data, err := l.opts.codec.Encode([]*sketch.Sketch{s}, saveCompressionLevel)
	if err != nil {
		return "", &LeafError{Leaf: l.name, Op: "save", cause: err}
	}

	newKey, err := blobstore.Save(ctx, l.store, key, data)
	l.opts.metricsCollector.RecordSave(len(data), time.Since(start), err)
	l.opts.logger.WithLeaf(l.name).LogSave(ctx, key, newKey, len(data), err)
	if err != nil {
		return "", &LeafError{Leaf: l.name, Op: "save", cause: err}
	}

	l.key = newKey
	return newKey, nil
}

// Update folds the leaf's sketch into parent: every hash is added to the
// parent filter, and the parent's min_n_below becomes the smaller of its
// current value and the sketch cardinality, never less than 1.
func (l *Leaf) Update(ctx context.Context, parent *sbt.Node) error {
	s, err := l.Get(ctx)
	if err != nil {
		return err
	}
	bf, err := parent.Filter(ctx)
	if err != nil {
		return err
	}
	bf.Update(s)

	n := s.Cardinality()
	if cur, ok := parent.MinNBelow(); ok {
		n = min(n, cur)
	}
	if n == 0 {
		n = 1
	}
	parent.SetMinNBelow(n)
	return nil
}

// Unload drops the cached sketch. Leaves that were never saved keep it, since
// it could not be read back.
func (l *Leaf) Unload() {
	if l.key != "" {
		l.data = nil
	}
}

func (l *Leaf) String() string {
	return fmt.Sprintf("**Leaf:%s -> %v", l.name, l.metadata)
}
