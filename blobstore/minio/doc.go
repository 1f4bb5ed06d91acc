// Package minio stores sketch and filter blobs in a MinIO (or other
// S3-compatible) bucket through minio-go.
//
//	client, err := minio.New("localhost:9000", &minio.Options{
//	    Creds: credentials.NewStaticV4("minioadmin", "minioadmin", ""),
//	})
//	if err != nil {
//	    return err
//	}
//	store := minioblob.NewStore(client, "sketches", "indexes/")
//	tree, err := sketchtree.LoadIndex(ctx, "genomes.sbt.json", sketchtree.WithStorage(store))
//
// Keys are joined to the prefix with a slash. Blobs are read and written
// whole; missing objects map to blobstore.ErrNotFound.
package minio
