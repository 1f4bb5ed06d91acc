package blobstore

import (
	"context"
	"path"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ContentAddressedStore stores each blob under the xxhash of its content,
// placed in the directory of the requested key. Identical payloads share a key.
type ContentAddressedStore struct {
	inner Store
}

// NewContentAddressedStore wraps inner.
func NewContentAddressedStore(inner Store) *ContentAddressedStore {
	return &ContentAddressedStore{inner: inner}
}

// ContentKey returns the key data would be stored under when saved as key.
func ContentKey(key string, data []byte) string {
	sum := strconv.FormatUint(xxhash.Sum64(data), 16)
	dir := path.Dir(key)
	if dir == "." || dir == "/" {
		return sum
	}
	return path.Join(dir, sum)
}

func (s *ContentAddressedStore) Load(ctx context.Context, key string) ([]byte, error) {
	return s.inner.Load(ctx, key)
}

// Save stores data under its content key and returns that key.
func (s *ContentAddressedStore) Save(ctx context.Context, key string, data []byte) (string, error) {
	return s.inner.Save(ctx, ContentKey(key, data), data)
}
