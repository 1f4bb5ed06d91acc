package sbt

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/hupe1980/sketchtree/blobstore"
)

// DefaultBranching is the default number of children per internal node.
const DefaultBranching = 2

// Tree is a Sequence Bloom Tree. It is not safe for concurrent use.
type Tree struct {
	name    string
	factory Factory
	d       int

	nodes  map[int]*Node
	leaves map[int]Leaf

	// missing holds free positions below the highest occupied one that
	// placement must skip, as recorded when a tree is loaded.
	missing  *roaring.Bitmap
	nextNode int

	store  blobstore.Store
	cache  *lru.Cache[int, *Node]
	logger *slog.Logger
}

// New creates an empty tree with branching factor d. Values below 2 select
// DefaultBranching.
func New(factory Factory, d int) *Tree {
	if d < 2 {
		d = DefaultBranching
	}
	return &Tree{
		factory: factory,
		d:       d,
		nodes:   make(map[int]*Node),
		leaves:  make(map[int]Leaf),
		missing: roaring.New(),
		logger:  slog.Default(),
	}
}

// Name returns the tree name taken from the descriptor path the tree was
// loaded from or last saved to. It is empty for a tree never persisted.
func (t *Tree) Name() string { return t.name }

// Factory returns the factory used for new internal nodes.
func (t *Tree) Factory() Factory { return t.factory }

// Branching returns the number of children per internal node.
func (t *Tree) Branching() int { return t.d }

// Storage returns the store the tree was loaded from or last saved to.
func (t *Tree) Storage() blobstore.Store { return t.store }

// Len returns the number of leaves.
func (t *Tree) Len() int { return len(t.leaves) }

// NodeCount returns the number of internal nodes.
func (t *Tree) NodeCount() int { return len(t.nodes) }

// Leaves returns all leaves ordered by position.
func (t *Tree) Leaves() []Leaf {
	positions := make([]int, 0, len(t.leaves))
	for p := range t.leaves {
		positions = append(positions, p)
	}
	slices.Sort(positions)

	out := make([]Leaf, 0, len(positions))
	for _, p := range positions {
		out = append(out, t.leaves[p])
	}
	return out
}

// Node returns the internal node at pos.
func (t *Tree) Node(pos int) (*Node, bool) {
	n, ok := t.nodes[pos]
	return n, ok
}

// Leaf returns the leaf at pos.
func (t *Tree) Leaf(pos int) (Leaf, bool) {
	l, ok := t.leaves[pos]
	return l, ok
}

func (t *Tree) parent(pos int) int {
	if pos <= 0 {
		return -1
	}
	return (pos - 1) / t.d
}

func (t *Tree) children(pos int) []int {
	out := make([]int, t.d)
	for i := range out {
		out[i] = t.d*pos + i + 1
	}
	return out
}

func (t *Tree) occupied(pos int) bool {
	if _, ok := t.nodes[pos]; ok {
		return true
	}
	_, ok := t.leaves[pos]
	return ok
}

func (t *Tree) newNodePos() int {
	if len(t.nodes) == 0 {
		t.nextNode = 1
		return 0
	}
	for t.occupied(t.nextNode) || t.missing.Contains(uint32(t.nextNode)) {
		t.nextNode++
	}
	return t.nextNode
}

func (t *Tree) newNode(pos int) *Node {
	n := NewNode(t.factory, fmt.Sprintf("internal.%d", pos))
	t.track(n, pos)
	t.nodes[pos] = n
	t.missing.Remove(uint32(pos))
	return n
}

// rebuildMissing recreates the internal nodes a loaded descriptor left out
// above occupied positions and folds every leaf below them back in. A
// position beneath a leaf cannot be reached and invalidates the layout.
func (t *Tree) rebuildMissing(ctx context.Context) (int, error) {
	occupied := make([]int, 0, len(t.nodes)+len(t.leaves))
	for pos := range t.nodes {
		occupied = append(occupied, pos)
	}
	for pos := range t.leaves {
		occupied = append(occupied, pos)
	}

	rebuilt := make(map[int]*Node)
	for _, pos := range occupied {
		for a := t.parent(pos); a >= 0; a = t.parent(a) {
			if _, ok := t.leaves[a]; ok {
				return 0, fmt.Errorf("%w: position %d lies below leaf %d", ErrInvalidDescriptor, pos, a)
			}
			if _, ok := t.nodes[a]; ok {
				break
			}
			rebuilt[a] = t.newNode(a)
		}
	}
	if len(rebuilt) == 0 {
		return 0, nil
	}

	for pos, leaf := range t.leaves {
		touched := false
		for a := t.parent(pos); a >= 0; a = t.parent(a) {
			n, ok := rebuilt[a]
			if !ok {
				continue
			}
			if err := leaf.Update(ctx, n); err != nil {
				return 0, fmt.Errorf("sbt: rebuild %s: %w", n.Name(), err)
			}
			touched = true
		}
		if touched {
			leaf.Unload()
		}
	}
	return len(rebuilt), nil
}

// track registers n with the node cache once its filter is read from storage.
func (t *Tree) track(n *Node, pos int) {
	if t.cache == nil {
		return
	}
	n.onLoad = func(*Node) {
		t.cache.Add(pos, n)
	}
}

// Add inserts leaf into the tree. The leaf's Update is called for its parent
// and every ancestor up to the root.
func (t *Tree) Add(ctx context.Context, leaf Leaf) error {
	pos := t.newNodePos()
	if pos == 0 {
		t.newNode(0)
		pos = t.newNodePos()
	}

	p := t.parent(pos)
	switch {
	case t.leaves[p] != nil:
		// The parent slot holds a leaf: replace it with an internal node
		// and move both leaves underneath.
		old := t.leaves[p]
		n := t.newNode(p)
		c := t.children(p)
		delete(t.leaves, p)
		t.leaves[c[0]] = old
		t.leaves[c[1]] = leaf
		for _, child := range []Leaf{old, leaf} {
			if err := child.Update(ctx, n); err != nil {
				return fmt.Errorf("sbt: add %s: %w", leaf.Name(), err)
			}
		}
	case t.nodes[p] != nil:
		t.leaves[pos] = leaf
		if err := leaf.Update(ctx, t.nodes[p]); err != nil {
			return fmt.Errorf("sbt: add %s: %w", leaf.Name(), err)
		}
	default:
		n := t.newNode(p)
		t.leaves[pos] = leaf
		if err := leaf.Update(ctx, n); err != nil {
			return fmt.Errorf("sbt: add %s: %w", leaf.Name(), err)
		}
	}

	for a := t.parent(p); a >= 0; a = t.parent(a) {
		n, ok := t.nodes[a]
		if !ok {
			// Nothing else lives below a free position once a loaded tree
			// has been rebuilt, so the new leaf alone describes it.
			n = t.newNode(a)
		}
		if err := leaf.Update(ctx, n); err != nil {
			return fmt.Errorf("sbt: add %s: %w", leaf.Name(), err)
		}
	}
	return nil
}
