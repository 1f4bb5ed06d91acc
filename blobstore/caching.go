package blobstore

import (
	"context"
	"slices"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheStats reports CachingStore effectiveness.
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
}

// CachingStore keeps recently loaded blobs in an LRU in front of another Store.
// Saves write through and replace the cached entry.
type CachingStore struct {
	inner Store
	cache *lru.Cache[string, []byte]

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

// NewCachingStore creates a CachingStore holding at most size blobs.
func NewCachingStore(inner Store, size int) (*CachingStore, error) {
	s := &CachingStore{inner: inner}
	cache, err := lru.NewWithEvict[string, []byte](size, s.handleEviction)
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

func (s *CachingStore) handleEviction(_ string, _ []byte) {
	s.evictions.Add(1)
}

func (s *CachingStore) Load(ctx context.Context, key string) ([]byte, error) {
	if data, ok := s.cache.Get(key); ok {
		s.hits.Add(1)
		return slices.Clone(data), nil
	}
	s.misses.Add(1)

	data, err := s.inner.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	s.cache.Add(key, slices.Clone(data))
	return data, nil
}

func (s *CachingStore) Save(ctx context.Context, key string, data []byte) (string, error) {
	s.cache.Remove(key)

	newKey, err := s.inner.Save(ctx, key, data)
	if err != nil {
		return "", err
	}
	s.cache.Add(newKey, slices.Clone(data))
	return newKey, nil
}

// Purge drops every cached blob.
func (s *CachingStore) Purge() {
	s.cache.Purge()
}

// Stats returns a snapshot of the cache counters.
func (s *CachingStore) Stats() CacheStats {
	return CacheStats{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
	}
}
