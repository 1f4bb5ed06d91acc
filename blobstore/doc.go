// Package blobstore provides the storage backends that hold persisted sketch
// leaves and tree node filters.
//
// A Store maps string keys to immutable byte blobs. Save may store the data
// under a different key than requested (ContentAddressedStore does); callers
// must record the returned key, not the one they asked for.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process map, used by tests
//   - LocalStore: local filesystem with mmap reads and atomic writes
//   - ContentAddressedStore: keys blobs by the hash of their content
//   - CachingStore: LRU of whole blobs in front of any Store
//   - ThrottledStore: rate-limits bytes moved through any Store
//   - s3.Store, minio.Store, sqlite.Store: remote and embedded backends
//
// # Custom Implementations
//
//	type Store interface {
//	    Load(ctx, key) ([]byte, error)
//	    Save(ctx, key, data) (string, error)
//	}
//
// Implementations must be safe for concurrent reads and should return an
// error satisfying errors.Is(err, ErrNotFound) for missing keys.
package blobstore
