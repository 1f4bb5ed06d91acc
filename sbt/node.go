package sbt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/hupe1980/sketchtree/blobstore"
)

// MetaMinNBelow is the metadata key holding the smallest sketch cardinality
// found beneath a node.
const MetaMinNBelow = "min_n_below"

// Item is either a *Node or a Leaf.
type Item interface {
	Name() string
}

// Node is an internal tree node. Its filter is loaded from storage on first
// use when the node came from a saved tree.
type Node struct {
	name     string
	metadata map[string]any
	factory  Factory

	filter *BloomFilter
	key    string
	store  blobstore.Store
	dirty  bool

	onLoad func(*Node)
}

// NewNode returns an empty node whose filter is created by factory.
func NewNode(factory Factory, name string) *Node {
	return &Node{
		name:     name,
		metadata: make(map[string]any),
		factory:  factory,
		dirty:    true,
	}
}

func loadedNode(factory Factory, name, key string, metadata map[string]any, store blobstore.Store) *Node {
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &Node{
		name:     name,
		metadata: metadata,
		factory:  factory,
		key:      key,
		store:    store,
	}
}

// Name returns the node name, "internal.<pos>" for nodes created by a Tree.
func (n *Node) Name() string { return n.name }

// Key returns the storage key of the persisted filter, or "" if never saved.
func (n *Node) Key() string { return n.key }

// Metadata returns the node's metadata map. Callers must not retain it across
// mutations of the node.
func (n *Node) Metadata() map[string]any { return n.metadata }

// Loaded reports whether the filter is in memory.
func (n *Node) Loaded() bool { return n.filter != nil }

// Filter returns the node's Bloom filter, reading it from storage if needed.
func (n *Node) Filter(ctx context.Context) (*BloomFilter, error) {
	if n.filter != nil {
		return n.filter, nil
	}
	if n.key == "" {
		n.filter = n.factory.NewBloomFilter()
		return n.filter, nil
	}

	data, err := blobstore.Load(ctx, n.store, n.key)
	if err != nil {
		return nil, err
	}
	bf, err := ReadBloomFilter(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("sbt: node %s: %w", n.name, err)
	}
	n.filter = bf
	if n.onLoad != nil {
		n.onLoad(n)
	}
	return bf, nil
}

// MinNBelow returns the min_n_below metadata value. ok is false until a leaf
// has been attached beneath the node.
func (n *Node) MinNBelow() (v int, ok bool) {
	switch x := n.metadata[MetaMinNBelow].(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		if x > math.MaxInt || x < math.MinInt {
			return 0, false
		}
		return int(x), true
	case json.Number:
		i, err := x.Int64()
		if err != nil {
			return 0, false
		}
		return int(i), true
	default:
		return 0, false
	}
}

// SetMinNBelow stores min_n_below and marks the node as modified.
func (n *Node) SetMinNBelow(v int) {
	n.metadata[MetaMinNBelow] = v
	n.dirty = true
}

// Unload drops the in-memory filter of a persisted, unmodified node.
// Nodes that have never been saved or carry unsaved changes keep their data.
func (n *Node) Unload() {
	if n.key == "" || n.dirty {
		return
	}
	n.filter = nil
}

func (n *Node) String() string {
	return fmt.Sprintf("*Node:%s [occupied: %v]", n.name, n.metadata)
}
