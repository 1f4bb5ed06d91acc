package sbt

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/bits-and-blooms/bitset"
	"github.com/cespare/xxhash/v2"
	"github.com/hupe1980/sketchtree/internal/hash"
	"github.com/hupe1980/sketchtree/sketch"
)

var (
	// ErrCorruptedBloomFilter indicates the Bloom filter data is invalid.
	ErrCorruptedBloomFilter = errors.New("sbt: corrupted bloom filter data")
	// ErrIncompatibleFilter is returned when combining filters of different shape.
	ErrIncompatibleFilter = errors.New("sbt: incompatible bloom filters")
)

const (
	minBloomBits = 64
	maxBloomK    = 16
	headerSize   = 28 // magic(4) + ksize(4) + numBits(8) + k(4) + count(8)
)

var bloomMagic = [4]byte{'S', 'B', 'T', 'B'}

// BloomFilter records the hash values inserted beneath an internal node.
// It can definitively say "not in set" but may have false positives for "in set".
type BloomFilter struct {
	ksize   uint32
	bits    *bitset.BitSet
	numBits uint64
	k       uint32
	count   uint64 // Number of hashes added
}

// NewBloomFilter creates a filter with numBits bits and k probes per hash.
func NewBloomFilter(ksize uint32, numBits uint64, k uint32) *BloomFilter {
	numBits = max(numBits, minBloomBits)
	k = min(max(k, 1), maxBloomK)

	return &BloomFilter{
		ksize:   ksize,
		bits:    bitset.New(uint(numBits)),
		numBits: numBits,
		k:       k,
	}
}

// probes returns the two seeds for double hashing: h(i) = h1 + i*h2.
func probes(h uint64) (h1, h2 uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], h)
	return h, xxhash.Sum64(buf[:]) | 1
}

// Add inserts a hash value.
// After Add(h), Contains(h) always returns true.
func (bf *BloomFilter) Add(h uint64) {
	h1, h2 := probes(h)
	for i := uint64(0); i < uint64(bf.k); i++ {
		bf.bits.Set(uint((h1 + i*h2) % bf.numBits))
	}
	bf.count++
}

// Contains reports whether h might have been added.
func (bf *BloomFilter) Contains(h uint64) bool {
	h1, h2 := probes(h)
	for i := uint64(0); i < uint64(bf.k); i++ {
		if !bf.bits.Test(uint((h1 + i*h2) % bf.numBits)) {
			return false
		}
	}
	return true
}

// Update adds every hash retained by s.
func (bf *BloomFilter) Update(s *sketch.Sketch) {
	s.Each(func(h uint64) bool {
		bf.Add(h)
		return true
	})
}

// Matches counts the hashes of s the filter might contain.
func (bf *BloomFilter) Matches(s *sketch.Sketch) int {
	n := 0
	s.Each(func(h uint64) bool {
		if bf.Contains(h) {
			n++
		}
		return true
	})
	return n
}

// Union merges other into bf. Both filters must have the same shape.
func (bf *BloomFilter) Union(other *BloomFilter) error {
	if bf.numBits != other.numBits || bf.k != other.k {
		return fmt.Errorf("%w: %d/%d bits, %d/%d hashes", ErrIncompatibleFilter, bf.numBits, other.numBits, bf.k, other.k)
	}
	bf.bits.InPlaceUnion(other.bits)
	bf.count += other.count
	return nil
}

// KSize returns the k-mer size recorded in the filter.
func (bf *BloomFilter) KSize() uint32 { return bf.ksize }

// NumBits returns the filter size in bits.
func (bf *BloomFilter) NumBits() uint64 { return bf.numBits }

// NumHashes returns the number of probes per hash.
func (bf *BloomFilter) NumHashes() uint32 { return bf.k }

// Count returns the number of hashes added, including duplicates.
func (bf *BloomFilter) Count() uint64 { return bf.count }

// Occupancy returns the number of set bits.
func (bf *BloomFilter) Occupancy() uint64 { return uint64(bf.bits.Count()) }

// WriteTo serializes the filter followed by a CRC32C of the whole record.
func (bf *BloomFilter) WriteTo(w io.Writer) (int64, error) {
	payload, err := bf.bits.MarshalBinary()
	if err != nil {
		return 0, err
	}

	buf := make([]byte, headerSize, headerSize+len(payload)+hash.TrailerSize)
	copy(buf[0:4], bloomMagic[:])
	binary.LittleEndian.PutUint32(buf[4:8], bf.ksize)
	binary.LittleEndian.PutUint64(buf[8:16], bf.numBits)
	binary.LittleEndian.PutUint32(buf[16:20], bf.k)
	binary.LittleEndian.PutUint64(buf[20:28], bf.count)
	buf = append(buf, payload...)
	buf = hash.Seal(buf)

	n, err := w.Write(buf)
	return int64(n), err
}

// MarshalBinary returns the WriteTo encoding.
func (bf *BloomFilter) MarshalBinary() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := bf.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ReadBloomFilter deserializes a filter written by WriteTo.
func ReadBloomFilter(r io.Reader) (*BloomFilter, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(data) < headerSize+hash.TrailerSize || !bytes.Equal(data[0:4], bloomMagic[:]) {
		return nil, ErrCorruptedBloomFilter
	}

	body, err := hash.Open(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptedBloomFilter, err)
	}

	bf := &BloomFilter{
		ksize:   binary.LittleEndian.Uint32(body[4:8]),
		numBits: binary.LittleEndian.Uint64(body[8:16]),
		k:       binary.LittleEndian.Uint32(body[16:20]),
		count:   binary.LittleEndian.Uint64(body[20:28]),
		bits:    new(bitset.BitSet),
	}
	if bf.numBits < minBloomBits || bf.k < 1 || bf.k > maxBloomK {
		return nil, ErrCorruptedBloomFilter
	}
	if err := bf.bits.UnmarshalBinary(body[headerSize:]); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptedBloomFilter, err)
	}
	if uint64(bf.bits.Len()) < bf.numBits {
		return nil, ErrCorruptedBloomFilter
	}
	return bf, nil
}
