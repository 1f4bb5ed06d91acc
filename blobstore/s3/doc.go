// Package s3 provides an Amazon S3 implementation of blobstore.Store.
//
// # Usage
//
//	cfg, err := config.LoadDefaultConfig(ctx)
//	store := s3.NewStore(awss3.NewFromConfig(cfg), "my-bucket", "indexes/")
//
//	tree, err := sketchtree.LoadIndex(ctx, "genomes.sbt.json", sketchtree.WithStorage(store))
//
// # Features
//
//   - CRC32C integrity checksums on upload
//   - Multipart uploads for large blobs
//   - Automatic pagination for listing
//   - Configurable prefix for multi-tenant isolation
package s3
