package sbt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBloomFilter_AddContains(t *testing.T) {
	bf := testFactory().NewBloomFilter()

	for h := uint64(0); h < 200; h++ {
		bf.Add(h * 104729)
	}
	for h := uint64(0); h < 200; h++ {
		assert.True(t, bf.Contains(h*104729), "no false negatives")
	}
	assert.Equal(t, uint64(200), bf.Count())
	assert.Positive(t, bf.Occupancy())
	assert.Equal(t, uint32(1), bf.KSize())
	assert.Equal(t, uint32(4), bf.NumHashes())
}

func TestBloomFilter_Clamps(t *testing.T) {
	bf := NewBloomFilter(1, 0, 0)
	assert.Equal(t, uint64(minBloomBits), bf.NumBits())
	assert.Equal(t, uint32(1), bf.NumHashes())

	bf = NewBloomFilter(1, 1024, 100)
	assert.Equal(t, uint32(maxBloomK), bf.NumHashes())
}

func TestBloomFilter_UpdateMatches(t *testing.T) {
	bf := testFactory().NewBloomFilter()
	bf.Update(newSketch(t, "a", seq(1, 50)...))

	assert.Equal(t, 49, bf.Matches(newSketch(t, "a", seq(1, 50)...)))
	assert.GreaterOrEqual(t, bf.Matches(newSketch(t, "half", seq(25, 75)...)), 25)
	assert.Zero(t, bf.Matches(newSketch(t, "empty")))
}

func TestBloomFilter_Union(t *testing.T) {
	a := testFactory().NewBloomFilter()
	b := testFactory().NewBloomFilter()
	a.Add(1)
	b.Add(2)

	require.NoError(t, a.Union(b))
	assert.True(t, a.Contains(1))
	assert.True(t, a.Contains(2))
	assert.Equal(t, uint64(2), a.Count())

	err := a.Union(NewBloomFilter(1, 128, 4))
	assert.ErrorIs(t, err, ErrIncompatibleFilter)
}

func TestBloomFilter_RoundTrip(t *testing.T) {
	bf := testFactory().NewBloomFilter()
	for _, h := range seq(1, 100) {
		bf.Add(h)
	}

	var buf bytes.Buffer
	n, err := bf.WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), n)

	got, err := ReadBloomFilter(&buf)
	require.NoError(t, err)
	assert.Equal(t, bf.NumBits(), got.NumBits())
	assert.Equal(t, bf.NumHashes(), got.NumHashes())
	assert.Equal(t, bf.Count(), got.Count())
	assert.Equal(t, bf.Occupancy(), got.Occupancy())
	for _, h := range seq(1, 100) {
		assert.True(t, got.Contains(h))
	}
}

func TestReadBloomFilter_Corrupted(t *testing.T) {
	data, err := testFactory().NewBloomFilter().MarshalBinary()
	require.NoError(t, err)

	flipped := bytes.Clone(data)
	flipped[headerSize+10] ^= 0xff
	_, err = ReadBloomFilter(bytes.NewReader(flipped))
	assert.ErrorIs(t, err, ErrCorruptedBloomFilter)

	badMagic := bytes.Clone(data)
	badMagic[0] = 'X'
	_, err = ReadBloomFilter(bytes.NewReader(badMagic))
	assert.ErrorIs(t, err, ErrCorruptedBloomFilter)

	_, err = ReadBloomFilter(bytes.NewReader(data[:10]))
	assert.ErrorIs(t, err, ErrCorruptedBloomFilter)
}
