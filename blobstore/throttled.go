package blobstore

import (
	"context"

	"golang.org/x/time/rate"
)

// ThrottledStore limits the bytes per second moved through another Store.
type ThrottledStore struct {
	inner   Store
	limiter *rate.Limiter
}

// NewThrottledStore wraps inner with a limit of bytesPerSec.
// A non-positive limit disables throttling.
func NewThrottledStore(inner Store, bytesPerSec int) *ThrottledStore {
	s := &ThrottledStore{inner: inner}
	if bytesPerSec > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(bytesPerSec), bytesPerSec)
	}
	return s
}

// acquire waits for n bytes of budget, in burst-sized steps since WaitN
// rejects requests larger than the burst.
func (s *ThrottledStore) acquire(ctx context.Context, n int) error {
	if s.limiter == nil {
		return nil
	}
	burst := s.limiter.Burst()
	for n > 0 {
		step := min(n, burst)
		if err := s.limiter.WaitN(ctx, step); err != nil {
			return err
		}
		n -= step
	}
	return nil
}

func (s *ThrottledStore) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.inner.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := s.acquire(ctx, len(data)); err != nil {
		return nil, err
	}
	return data, nil
}

func (s *ThrottledStore) Save(ctx context.Context, key string, data []byte) (string, error) {
	if err := s.acquire(ctx, len(data)); err != nil {
		return "", err
	}
	return s.inner.Save(ctx, key, data)
}
