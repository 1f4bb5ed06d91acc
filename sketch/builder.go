package sketch

import (
	"encoding/binary"
	"slices"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Builder accumulates hashes into a Sketch.
// A Builder is not safe for concurrent use.
type Builder struct {
	params Params
	hashes []uint64 // sorted ascending, unique
}

// NewBuilder creates a Builder for the given parameters.
// If both Num and MaxHash are set, MaxHash is ignored.
func NewBuilder(params Params) *Builder {
	if params.Seed == 0 {
		params.Seed = DefaultSeed
	}
	if params.Num > 0 {
		params.MaxHash = 0
	}
	return &Builder{params: params}
}

// Add offers a hash to the sketch.
func (b *Builder) Add(h uint64) {
	if b.params.MaxHash > 0 && h > b.params.MaxHash {
		return
	}
	num := int(b.params.Num)
	if num > 0 && len(b.hashes) >= num && h >= b.hashes[len(b.hashes)-1] {
		return
	}

	i, found := slices.BinarySearch(b.hashes, h)
	if found {
		return
	}
	b.hashes = slices.Insert(b.hashes, i, h)
	if num > 0 && len(b.hashes) > num {
		b.hashes = b.hashes[:num]
	}
}

// AddSequence hashes every canonical k-mer of seq and adds it.
// Sequences shorter than KSize are ignored. K-mers containing characters
// other than A, C, G, T are skipped.
func (b *Builder) AddSequence(seq string) {
	k := int(b.params.KSize)
	if k == 0 || len(seq) < k {
		return
	}
	seq = strings.ToUpper(seq)
	for i := 0; i+k <= len(seq); i++ {
		kmer := seq[i : i+k]
		if !isDNA(kmer) {
			continue
		}
		b.Add(HashKmer(canonical(kmer), b.params.Seed))
	}
}

// Build returns an immutable Sketch of the hashes added so far.
func (b *Builder) Build() *Sketch {
	return &Sketch{params: b.params, hashes: slices.Clone(b.hashes)}
}

// HashKmer hashes a k-mer with the given seed.
func HashKmer(kmer string, seed uint64) uint64 {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], seed)

	d := xxhash.New()
	_, _ = d.Write(buf[:])
	_, _ = d.WriteString(kmer)
	return d.Sum64()
}

func isDNA(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'A', 'C', 'G', 'T':
		default:
			return false
		}
	}
	return true
}

// canonical returns the lexicographically smaller of kmer and its reverse complement.
func canonical(kmer string) string {
	rc := make([]byte, len(kmer))
	for i := 0; i < len(kmer); i++ {
		var c byte
		switch kmer[len(kmer)-1-i] {
		case 'A':
			c = 'T'
		case 'C':
			c = 'G'
		case 'G':
			c = 'C'
		case 'T':
			c = 'A'
		}
		rc[i] = c
	}
	if r := string(rc); r < kmer {
		return r
	}
	return kmer
}
