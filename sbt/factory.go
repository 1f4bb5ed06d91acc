package sbt

// Factory creates the Bloom filters held by internal nodes.
type Factory struct {
	// KSize is recorded in the filter. Sketch hashes are inserted directly,
	// so 1 is the usual value.
	KSize uint32
	// Size is the number of bits per filter.
	Size uint64
	// NumHashes is the number of probe positions per inserted hash.
	NumHashes uint32
}

// NewBloomFilter returns an empty filter with the factory's parameters.
func (f Factory) NewBloomFilter() *BloomFilter {
	return NewBloomFilter(f.KSize, f.Size, f.NumHashes)
}
