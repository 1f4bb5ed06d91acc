package sbt

import (
	"context"
	"iter"

	"github.com/hupe1980/sketchtree/sketch"
)

// SearchFunc decides whether Find descends into an internal node or reports a
// leaf. item is either a *Node or a Leaf.
type SearchFunc func(ctx context.Context, item Item, query *sketch.Sketch, threshold float64) (bool, error)

type findOptions struct {
	unloadData bool
}

// FindOption configures Find.
type FindOption func(*findOptions)

// UnloadData releases node and leaf data after each visit, so a traversal
// keeps at most one payload in memory.
func UnloadData() FindOption {
	return func(o *findOptions) {
		o.unloadData = true
	}
}

// Find walks the tree breadth first from the root and yields every leaf
// accepted by fn. Subtrees whose node fn rejects are skipped.
//
// Iteration stops at the first error, which is yielded with a nil Leaf.
// With UnloadData, a yielded leaf is unloaded once the consumer returns.
func (t *Tree) Find(ctx context.Context, fn SearchFunc, query *sketch.Sketch, threshold float64, optFns ...FindOption) iter.Seq2[Leaf, error] {
	var opts findOptions
	for _, o := range optFns {
		o(&opts)
	}

	return func(yield func(Leaf, error) bool) {
		visited := make(map[int]struct{})
		queue := []int{0}

		for len(queue) > 0 {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}

			pos := queue[0]
			queue = queue[1:]
			if _, seen := visited[pos]; seen {
				continue
			}

			var item Item
			if leaf, ok := t.leaves[pos]; ok {
				item = leaf
			} else if node, ok := t.nodes[pos]; ok {
				item = node
			} else {
				continue
			}
			visited[pos] = struct{}{}

			ok, err := fn(ctx, item, query, threshold)
			if err != nil {
				yield(nil, err)
				return
			}

			switch v := item.(type) {
			case *Node:
				if ok {
					queue = append(queue, t.children(pos)...)
				}
				if opts.unloadData {
					v.Unload()
				}
			case Leaf:
				cont := true
				if ok {
					cont = yield(v, nil)
				}
				if opts.unloadData {
					v.Unload()
				}
				if !cont {
					return
				}
			}
		}
	}
}
