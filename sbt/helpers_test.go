package sbt

import (
	"bytes"
	"context"
	"testing"

	"github.com/hupe1980/sketchtree/blobstore"
	"github.com/hupe1980/sketchtree/codec"
	"github.com/hupe1980/sketchtree/sketch"
	"github.com/stretchr/testify/require"
)

// memLeaf is a minimal Leaf used to exercise the tree without the root package.
type memLeaf struct {
	name  string
	key   string
	store blobstore.Store
	data  *sketch.Sketch
	loads int
}

func (l *memLeaf) Name() string             { return l.name }
func (l *memLeaf) Key() string              { return l.key }
func (l *memLeaf) Metadata() map[string]any { return map[string]any{"filename": l.name + ".sig"} }

func (l *memLeaf) Get(ctx context.Context) (*sketch.Sketch, error) {
	if l.data != nil {
		return l.data, nil
	}
	raw, err := blobstore.Load(ctx, l.store, l.key)
	if err != nil {
		return nil, err
	}
	s, err := codec.DecodeOne(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	l.loads++
	l.data = s
	return s, nil
}

func (l *memLeaf) Update(ctx context.Context, parent *Node) error {
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
	if cur, ok := parent.MinNBelow(); ok && cur < n {
		n = cur
	}
	parent.SetMinNBelow(max(n, 1))
	return nil
}

func (l *memLeaf) Save(ctx context.Context, key string) (string, error) {
	s, err := l.Get(ctx)
	if err != nil {
		return "", err
	}
	data, err := codec.Encode([]*sketch.Sketch{s}, 1)
	if err != nil {
		return "", err
	}
	newKey, err := blobstore.Save(ctx, l.store, key, data)
	if err != nil {
		return "", err
	}
	l.key = newKey
	return newKey, nil
}

func (l *memLeaf) SetStorage(store blobstore.Store) { l.store = store }

func (l *memLeaf) Unload() {
	if l.key != "" {
		l.data = nil
	}
}

func loadMemLeaf(info LeafInfo, store blobstore.Store) (Leaf, error) {
	return &memLeaf{name: info.Name, key: info.Key, store: store}, nil
}

func newSketch(t *testing.T, name string, hashes ...uint64) *sketch.Sketch {
	t.Helper()
	s, err := sketch.New(sketch.Params{Name: name, KSize: 31}, hashes)
	require.NoError(t, err)
	return s
}

func seq(from, to uint64) []uint64 {
	var out []uint64
	for h := from; h < to; h++ {
		out = append(out, h*7919)
	}
	return out
}

// similaritySearch accepts leaves by exact similarity and nodes by the
// fraction of query hashes found in their filter.
func similaritySearch(ctx context.Context, item Item, query *sketch.Sketch, threshold float64) (bool, error) {
	switch v := item.(type) {
	case Leaf:
		s, err := v.Get(ctx)
		if err != nil {
			return false, err
		}
		sim, err := query.Similarity(s)
		if err != nil {
			return false, err
		}
		return sim >= threshold, nil
	case *Node:
		n, ok := v.MinNBelow()
		if !ok || query.Cardinality() == 0 {
			return false, nil
		}
		bf, err := v.Filter(ctx)
		if err != nil {
			return false, err
		}
		return float64(bf.Matches(query))/float64(n) >= threshold, nil
	}
	return false, nil
}

func testFactory() Factory {
	return Factory{KSize: 1, Size: 1 << 12, NumHashes: 4}
}
