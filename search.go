package sketchtree

import (
	"context"
	"iter"
	"time"

	"github.com/hupe1980/sketchtree/sbt"
	"github.com/hupe1980/sketchtree/sketch"
)

// Match is a search result.
type Match struct {
	// Sketch is the leaf's sketch.
	Sketch *sketch.Sketch
	// Similarity is the exact similarity between the query and Sketch.
	Similarity float64
}

// Search returns the leaves of tree that the search function accepts for
// query at threshold, each paired with its exact similarity to query.
//
// Every range over the returned sequence starts a fresh traversal. Leaf and
// node data is released as the traversal moves on, so memory stays bounded by
// the tree's node cache. The first error ends the sequence and is yielded
// with a zero Match.
//
// Example:
//
//	for m, err := range sketchtree.Search(ctx, tree, query, 0.8) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(m.Sketch.Name(), m.Similarity)
//	}
func Search(ctx context.Context, tree *sbt.Tree, query *sketch.Sketch, threshold float64, optFns ...Option) iter.Seq2[Match, error] {
	o := applyOptions(optFns)
	if name := tree.Name(); name != "" {
		o.logger = o.logger.WithTree(name)
	}

	return func(yield func(Match, error) bool) {
		var (
			start = time.Now()
			found int
			err   error
		)
		defer func() {
			o.metricsCollector.RecordSearch(found, time.Since(start), err)
			o.logger.LogSearch(ctx, threshold, found, err)
		}()

		if query == nil {
			err = ErrNilQuery
			yield(Match{}, err)
			return
		}

		for leaf, ferr := range tree.Find(ctx, o.searchFunc, query, threshold, sbt.UnloadData()) {
			if ferr != nil {
				err = ferr
				yield(Match{}, err)
				return
			}

			var s *sketch.Sketch
			s, err = leaf.Get(ctx)
			if err != nil {
				yield(Match{}, err)
				return
			}

			var sim float64
			sim, err = query.Similarity(s)
			if err != nil {
				yield(Match{}, err)
				return
			}

			if o.exactThreshold && sim < threshold {
				continue
			}

			found++
			if !yield(Match{Sketch: s, Similarity: sim}, nil) {
				return
			}
		}
	}
}
