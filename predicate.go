package sketchtree

import (
	"context"
	"fmt"

	"github.com/hupe1980/sketchtree/sbt"
	"github.com/hupe1980/sketchtree/sketch"
)

// SearchMinHashes is the default traversal predicate.
//
// A leaf is accepted when its exact similarity to query reaches threshold.
// An internal node is descended into when the query hashes found in its
// filter, divided by the larger of the query size and min_n_below, reach
// threshold. Nodes without min_n_below divide by the query size alone. Both
// bound the similarity of every leaf below from above, and filters have no
// false negatives, so a rejected node has no matching leaf. An empty query
// scores 0.
func SearchMinHashes(ctx context.Context, item sbt.Item, query *sketch.Sketch, threshold float64) (bool, error) {
	switch v := item.(type) {
	case *sbt.Node:
		score, err := nodeScore(ctx, v, query)
		if err != nil {
			return false, err
		}
		return score >= threshold, nil

	case sbt.Leaf:
		s, err := v.Get(ctx)
		if err != nil {
			return false, err
		}
		sim, err := query.Similarity(s)
		if err != nil {
			return false, err
		}
		return sim >= threshold, nil

	default:
		return false, fmt.Errorf("sketchtree: unsupported tree item %T", item)
	}
}

func nodeScore(ctx context.Context, node *sbt.Node, query *sketch.Sketch) (float64, error) {
	denom := query.Cardinality()
	if denom == 0 {
		return 0, nil
	}
	if n, ok := node.MinNBelow(); ok && n > denom {
		denom = n
	}
	bf, err := node.Filter(ctx)
	if err != nil {
		return 0, err
	}
	return float64(bf.Matches(query)) / float64(denom), nil
}
