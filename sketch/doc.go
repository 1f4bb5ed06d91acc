// Package sketch provides the MinHash sketch stored in every leaf of a
// sketchtree index.
//
// A Sketch is an immutable, sorted set of retained 64-bit hash values plus the
// parameters needed to compare two sketches (k-mer size, hash seed, and either a
// bottom-k size or a scaled max hash).
//
// # Building
//
//	b := sketch.NewBuilder(sketch.Params{KSize: 31, Num: 500})
//	b.AddSequence("ACGTACGT...")
//	s := b.Build()
//
// # Comparing
//
//	sim, err := query.Similarity(s) // Jaccard estimate in [0, 1]
//
// Sketches built with different parameters are incompatible; comparing them
// returns ErrIncompatible.
package sketch
