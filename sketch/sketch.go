package sketch

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// DefaultSeed is the hash seed used when Params.Seed is zero.
const DefaultSeed uint64 = 42

var (
	// ErrIncompatible is returned when two sketches cannot be compared.
	ErrIncompatible = errors.New("sketch: incompatible sketches")

	// ErrInvalidParams is returned for parameter combinations that cannot describe a sketch.
	ErrInvalidParams = errors.New("sketch: invalid parameters")
)

// Params describes how a Sketch was built.
type Params struct {
	Name     string
	Filename string
	KSize    uint32
	Seed     uint64
	// Num is the bottom-k size. Zero selects scaled mode.
	Num uint32
	// MaxHash bounds retained hashes in scaled mode. Zero means unbounded.
	MaxHash uint64
}

// MaxHashForScaled returns the max hash that keeps roughly 1/scaled of all hashes.
func MaxHashForScaled(scaled uint64) uint64 {
	if scaled <= 1 {
		return 0
	}
	return math.MaxUint64 / scaled
}

// Sketch is an immutable MinHash sketch.
type Sketch struct {
	params Params
	hashes []uint64 // sorted ascending, unique
}

// New creates a Sketch from params and a set of retained hashes.
// The hashes are copied, sorted, and deduplicated.
func New(params Params, hashes []uint64) (*Sketch, error) {
	if params.Num > 0 && params.MaxHash > 0 {
		return nil, fmt.Errorf("%w: num=%d and max_hash=%d are mutually exclusive", ErrInvalidParams, params.Num, params.MaxHash)
	}
	if params.Seed == 0 {
		params.Seed = DefaultSeed
	}

	hs := slices.Clone(hashes)
	slices.Sort(hs)
	hs = slices.Compact(hs)

	if params.Num > 0 && len(hs) > int(params.Num) {
		return nil, fmt.Errorf("%w: %d hashes exceed num=%d", ErrInvalidParams, len(hs), params.Num)
	}
	if params.MaxHash > 0 && len(hs) > 0 && hs[len(hs)-1] > params.MaxHash {
		return nil, fmt.Errorf("%w: hash %d exceeds max_hash=%d", ErrInvalidParams, hs[len(hs)-1], params.MaxHash)
	}

	return &Sketch{params: params, hashes: hs}, nil
}

// Params returns the build parameters.
func (s *Sketch) Params() Params { return s.params }

// Name returns the sketch name.
func (s *Sketch) Name() string { return s.params.Name }

// Filename returns the file the sketch was computed from, if known.
func (s *Sketch) Filename() string { return s.params.Filename }

// KSize returns the k-mer size.
func (s *Sketch) KSize() uint32 { return s.params.KSize }

// Seed returns the hash seed.
func (s *Sketch) Seed() uint64 { return s.params.Seed }

// Num returns the bottom-k size (0 in scaled mode).
func (s *Sketch) Num() uint32 { return s.params.Num }

// MaxHash returns the scaled-mode hash bound (0 in bottom-k mode).
func (s *Sketch) MaxHash() uint64 { return s.params.MaxHash }

// Cardinality returns the number of retained hashes.
func (s *Sketch) Cardinality() int { return len(s.hashes) }

// Len is an alias for Cardinality.
func (s *Sketch) Len() int { return len(s.hashes) }

// Hashes returns a copy of the retained hashes in ascending order.
func (s *Sketch) Hashes() []uint64 { return slices.Clone(s.hashes) }

// Each calls fn for every retained hash in ascending order until fn returns false.
func (s *Sketch) Each(fn func(h uint64) bool) {
	for _, h := range s.hashes {
		if !fn(h) {
			return
		}
	}
}

// Contains reports whether h is retained.
func (s *Sketch) Contains(h uint64) bool {
	_, ok := slices.BinarySearch(s.hashes, h)
	return ok
}

// IsCompatible reports whether s and other can be compared.
func (s *Sketch) IsCompatible(other *Sketch) bool {
	if other == nil {
		return false
	}
	return s.params.KSize == other.params.KSize &&
		s.params.Seed == other.params.Seed &&
		s.params.Num == other.params.Num &&
		s.params.MaxHash == other.params.MaxHash
}

// Similarity returns the estimated Jaccard similarity of s and other.
func (s *Sketch) Similarity(other *Sketch) (float64, error) {
	if !s.IsCompatible(other) {
		return 0, ErrIncompatible
	}
	common, total := s.intersectionSize(other)
	if total == 0 {
		return 0, nil
	}
	return float64(common) / float64(total), nil
}

// intersectionSize returns the number of shared hashes and the size of the
// union the estimate is taken over. In bottom-k mode only the smallest Num
// hashes of the union are considered.
func (s *Sketch) intersectionSize(other *Sketch) (common, total int) {
	limit := math.MaxInt
	if s.params.Num > 0 {
		limit = int(s.params.Num)
	}

	a, b := s.hashes, other.hashes
	i, j := 0, 0
	for total < limit && (i < len(a) || j < len(b)) {
		switch {
		case j >= len(b) || (i < len(a) && a[i] < b[j]):
			i++
		case i >= len(a) || b[j] < a[i]:
			j++
		default:
			common++
			i++
			j++
		}
		total++
	}
	return common, total
}

// Equal reports whether s and other have the same parameters and hashes.
// Name and filename are ignored.
func (s *Sketch) Equal(other *Sketch) bool {
	if other == nil {
		return false
	}
	return s.IsCompatible(other) && slices.Equal(s.hashes, other.hashes)
}

func (s *Sketch) String() string {
	return fmt.Sprintf("Sketch(name=%q, ksize=%d, num=%d, max_hash=%d, n=%d)",
		s.params.Name, s.params.KSize, s.params.Num, s.params.MaxHash, len(s.hashes))
}
