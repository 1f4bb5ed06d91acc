package sketch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_SortsAndDeduplicates(t *testing.T) {
	s, err := New(Params{KSize: 21, MaxHash: 1000}, []uint64{5, 3, 5, 1})
	require.NoError(t, err)

	assert.Equal(t, []uint64{1, 3, 5}, s.Hashes())
	assert.Equal(t, 3, s.Cardinality())
	assert.Equal(t, DefaultSeed, s.Seed())
	assert.True(t, s.Contains(3))
	assert.False(t, s.Contains(4))
}

func TestNew_InvalidParams(t *testing.T) {
	_, err := New(Params{Num: 10, MaxHash: 10}, nil)
	require.ErrorIs(t, err, ErrInvalidParams)

	_, err = New(Params{Num: 2}, []uint64{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidParams)

	_, err = New(Params{MaxHash: 2}, []uint64{1, 3})
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestSimilarity_Scaled(t *testing.T) {
	a, err := New(Params{KSize: 1}, []uint64{1, 2, 3, 4})
	require.NoError(t, err)
	b, err := New(Params{KSize: 1}, []uint64{3, 4, 5, 6})
	require.NoError(t, err)

	sim, err := a.Similarity(b)
	require.NoError(t, err)
	assert.InDelta(t, 2.0/6.0, sim, 1e-9)

	self, err := a.Similarity(a)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, self, 1e-9)
}

func TestSimilarity_BottomK(t *testing.T) {
	// The bottom-4 of the union is {1,2,3,4}; only 3 and 4 are shared.
	a, err := New(Params{KSize: 1, Num: 4}, []uint64{1, 3, 4, 10})
	require.NoError(t, err)
	b, err := New(Params{KSize: 1, Num: 4}, []uint64{2, 3, 4, 11})
	require.NoError(t, err)

	sim, err := a.Similarity(b)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, sim, 1e-9)
}

func TestSimilarity_Empty(t *testing.T) {
	a, err := New(Params{KSize: 1}, nil)
	require.NoError(t, err)

	sim, err := a.Similarity(a)
	require.NoError(t, err)
	assert.Zero(t, sim)
}

func TestSimilarity_Incompatible(t *testing.T) {
	a, err := New(Params{KSize: 21}, []uint64{1})
	require.NoError(t, err)
	b, err := New(Params{KSize: 31}, []uint64{1})
	require.NoError(t, err)

	_, err = a.Similarity(b)
	require.ErrorIs(t, err, ErrIncompatible)
	assert.False(t, a.Equal(b))
}

func TestBuilder_BottomK(t *testing.T) {
	b := NewBuilder(Params{KSize: 1, Num: 3})
	for _, h := range []uint64{9, 7, 5, 3, 1, 7} {
		b.Add(h)
	}
	s := b.Build()

	assert.Equal(t, []uint64{1, 3, 5}, s.Hashes())
}

func TestBuilder_Scaled(t *testing.T) {
	b := NewBuilder(Params{KSize: 1, MaxHash: 100})
	for _, h := range []uint64{50, 150, 100, 101} {
		b.Add(h)
	}

	assert.Equal(t, []uint64{50, 100}, b.Build().Hashes())
}

func TestBuilder_AddSequence_Canonical(t *testing.T) {
	fwd := NewBuilder(Params{KSize: 5, Num: 100})
	fwd.AddSequence("ACGTTGCAAC")

	rev := NewBuilder(Params{KSize: 5, Num: 100})
	rev.AddSequence("GTTGCAACGT")

	assert.True(t, fwd.Build().Equal(rev.Build()), "reverse complement must produce the same sketch")
}

func TestBuilder_AddSequence_SkipsInvalid(t *testing.T) {
	b := NewBuilder(Params{KSize: 3, Num: 100})
	b.AddSequence("ACNGT")
	assert.Zero(t, b.Build().Cardinality())

	b.AddSequence("AC")
	assert.Zero(t, b.Build().Cardinality())
}

func TestMaxHashForScaled(t *testing.T) {
	assert.Zero(t, MaxHashForScaled(1))
	assert.Greater(t, MaxHashForScaled(2), MaxHashForScaled(1000))
}
