// Package testutil provides testing utilities for sketchtree.
//
// This package is intended for use in tests and benchmarks only.
// It provides helpers for generating random sketches, sketches with a known
// similarity to another one, and verifying search recall.
//
// # Random Sketches
//
//	rng := testutil.NewRNG(seed)
//	s := rng.Sketch("genome-1", 31, 500)
//	near := rng.Similar(s, "genome-2", 0.8)  // Jaccard ≈ 0.8 with s
//
// # Recall Verification
//
//	recall := testutil.ComputeRecall(exactNames, foundNames)
package testutil
