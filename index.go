package sketchtree

import (
	"context"
	"log/slog"

	"github.com/hupe1980/sketchtree/sbt"
)

// CreateIndex returns an empty tree whose internal nodes use Bloom filters of
// WithBloomFilterSize bits and WithBranchingFactor children. It does no I/O.
func CreateIndex(optFns ...Option) *sbt.Tree {
	o := applyOptions(optFns)
	factory := sbt.Factory{
		KSize:     defaultFilterKSize,
		Size:      o.bloomFilterSize,
		NumHashes: defaultNumHashes,
	}
	return sbt.New(factory, o.branchingFactor)
}

// LoadIndex reads a saved tree from its descriptor path. Leaves are rebuilt
// with LoadLeaf semantics and read their sketch lazily; errors from the
// descriptor layer are returned as is.
//
// Example:
//
//	tree, err := sketchtree.LoadIndex(ctx, "genomes.sbt.json", sketchtree.WithCacheSize(1024))
func LoadIndex(ctx context.Context, path string, optFns ...Option) (*sbt.Tree, error) {
	o := applyOptions(optFns)
	o.logger = o.logger.WithTree(sbt.TreeName(path))

	// Version warnings go to slog's default logger unless one was configured.
	var descLogger *slog.Logger
	if o.loggerSet {
		descLogger = o.logger.Logger
	}

	tree, err := sbt.Load(ctx, path, sbt.LoadOptions{
		LeafLoader:          leafLoader(o),
		PrintVersionWarning: o.printVersionWarning,
		CacheSize:           o.cacheSize,
		Storage:             o.storage,
		Logger:              descLogger,
	})
	if err != nil {
		o.logger.LogIndexLoad(ctx, path, 0, err)
		return nil, err
	}

	o.logger.LogIndexLoad(ctx, path, tree.Len(), nil)
	return tree, nil
}
