package testutil

import (
	"fmt"
	"math"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/sketchtree/sketch"
)

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Uint64 returns a pseudo-random uint64.
func (r *RNG) Uint64() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Uint64()
}

// Hashes returns n distinct pseudo-random hash values in ascending order.
func (r *RNG) Hashes(n int) []uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.hashesLocked(n, nil)
}

func (r *RNG) hashesLocked(n int, exclude map[uint64]struct{}) []uint64 {
	seen := make(map[uint64]struct{}, n)
	out := make([]uint64, 0, n)
	for len(out) < n {
		h := r.rand.Uint64()
		if _, ok := seen[h]; ok {
			continue
		}
		if _, ok := exclude[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}

// Sketch returns a scaled sketch of n random hashes.
func (r *RNG) Sketch(name string, ksize uint32, n int) *sketch.Sketch {
	return mustSketch(name, ksize, r.Hashes(n))
}

// Sketches returns num random sketches named "<prefix>-<i>", each holding n
// hashes.
func (r *RNG) Sketches(prefix string, num int, ksize uint32, n int) []*sketch.Sketch {
	out := make([]*sketch.Sketch, num)
	for i := range num {
		out[i] = r.Sketch(fmt.Sprintf("%s-%d", prefix, i), ksize, n)
	}
	return out
}

// Similar returns a sketch of the same size as base whose Jaccard similarity
// with base is as close to sim as the sketch size allows.
//
// Two sets of size n sharing c elements have similarity c / (2n - c), so
// c = 2n*sim / (1 + sim).
func (r *RNG) Similar(base *sketch.Sketch, name string, sim float64) *sketch.Sketch {
	n := base.Cardinality()
	shared := int(math.Round(2 * float64(n) * sim / (1 + sim)))
	shared = min(max(shared, 0), n)

	baseHashes := base.Hashes()
	exclude := make(map[uint64]struct{}, n)
	for _, h := range baseHashes {
		exclude[h] = struct{}{}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	keep := slices.Clone(baseHashes)
	r.rand.Shuffle(len(keep), func(i, j int) { keep[i], keep[j] = keep[j], keep[i] })
	hashes := append(keep[:shared], r.hashesLocked(n-shared, exclude)...)
	return mustSketch(name, base.KSize(), hashes)
}

// ComputeRecall returns the fraction of names in groundTruth that also
// appear in found. An empty ground truth has recall 1.
func ComputeRecall(groundTruth, found []string) float64 {
	if len(groundTruth) == 0 {
		return 1
	}
	set := make(map[string]struct{}, len(found))
	for _, name := range found {
		set[name] = struct{}{}
	}
	hits := 0
	for _, name := range groundTruth {
		if _, ok := set[name]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(groundTruth))
}

func mustSketch(name string, ksize uint32, hashes []uint64) *sketch.Sketch {
	s, err := sketch.New(sketch.Params{Name: name, KSize: ksize}, hashes)
	if err != nil {
		panic(err)
	}
	return s
}
