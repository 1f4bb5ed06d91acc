package sbt

import (
	"context"

	"github.com/hupe1980/sketchtree/blobstore"
	"github.com/hupe1980/sketchtree/sketch"
)

// Leaf is a tree leaf holding one sketch.
type Leaf interface {
	Item
	// Key returns the storage key of the payload, or "" if never saved.
	Key() string
	// Metadata returns user metadata persisted in the descriptor.
	Metadata() map[string]any
	// Get returns the sketch, loading it on first use.
	Get(ctx context.Context) (*sketch.Sketch, error)
	// Update folds the leaf into parent's filter and metadata.
	Update(ctx context.Context, parent *Node) error
	// Save persists the sketch under key and returns the key actually used.
	Save(ctx context.Context, key string) (string, error)
	// Unload drops cached data that can be read back from storage.
	Unload()
}

// LeafInfo is the descriptor entry of a saved leaf.
type LeafInfo struct {
	Name     string
	Key      string
	Metadata map[string]any
}

// LeafLoader rebuilds a Leaf from its descriptor entry. It must not read the
// payload; that happens lazily through Leaf.Get.
type LeafLoader func(info LeafInfo, store blobstore.Store) (Leaf, error)
