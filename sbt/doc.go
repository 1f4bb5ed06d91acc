// Package sbt implements a Sequence Bloom Tree: a d-ary tree whose internal
// nodes hold Bloom filters of every hash stored beneath them and whose leaves
// hold MinHash sketches.
//
// Positions follow an implicit layout. The children of position p are
// d*p+1 through d*p+d and the parent of p is (p-1)/d, so the tree stores no
// pointers between nodes.
//
// # Searching
//
// Find walks the tree breadth first. A SearchFunc decides for every internal
// node whether to descend and for every leaf whether it matches:
//
//	for leaf, err := range tree.Find(ctx, fn, query, 0.8, sbt.UnloadData()) {
//	    if err != nil { ... }
//	    ...
//	}
//
// # Persistence
//
// Save writes every node filter and leaf payload to a blobstore.Store and a
// JSON descriptor to disk. Load reads the descriptor back and creates leaves
// through a caller supplied LeafLoader, so payloads are only fetched when a
// search touches them.
package sbt
