// Package sketchtree indexes MinHash sketches in a Sequence Bloom Tree and
// answers similarity threshold queries against it.
//
// A tree is made of internal nodes, each holding a Bloom filter over every
// hash found beneath it, and leaves, each holding one sketch. Searches prune
// every subtree whose filter shows too few query hashes to possibly reach the
// threshold, then compute the exact similarity of the surviving leaves.
//
// # Building an index
//
//	tree := sketchtree.CreateIndex(sketchtree.WithBloomFilterSize(1 << 20))
//	for _, s := range sketches {
//	    if err := tree.Add(ctx, sketchtree.NewLeaf(s.Name(), s, nil)); err != nil {
//	        return err
//	    }
//	}
//	path, err := tree.Save(ctx, "genomes", nil) // writes genomes.sbt.json and .sbt.genomes/
//
// # Searching
//
//	tree, err := sketchtree.LoadIndex(ctx, "genomes.sbt.json", sketchtree.WithCacheSize(1024))
//	if err != nil {
//	    return err
//	}
//	for m, err := range sketchtree.Search(ctx, tree, query, 0.8) {
//	    if err != nil {
//	        return err
//	    }
//	    fmt.Println(m.Sketch.Name(), m.Similarity)
//	}
//
// # Lazy loading
//
// Loaded trees keep node filters and leaf sketches in storage until a search
// touches them, and release them again as the traversal moves on. Leaves read
// their payload through a blobstore.Store: the local filesystem by default, or
// any store passed with WithStorage (S3, MinIO, SQLite, in-memory).
//
// # Observability
//
// Operations report to a MetricsCollector (see WithMetricsCollector and
// package metrics/prometheus) and log through a slog-based Logger
// (see WithLogger).
package sketchtree
