package sketchtree

import (
	"context"
	"errors"
	"testing"

	"github.com/hupe1980/sketchtree/blobstore"
	"github.com/hupe1980/sketchtree/codec"
	"github.com/hupe1980/sketchtree/sbt"
	"github.com/hupe1980/sketchtree/sketch"
	"github.com/hupe1980/sketchtree/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSketch(t *testing.T, name string, hashes ...uint64) *sketch.Sketch {
	t.Helper()
	s, err := sketch.New(sketch.Params{Name: name, KSize: 31}, hashes)
	require.NoError(t, err)
	return s
}

func storeSketch(t *testing.T, store blobstore.Store, key string, sketches ...*sketch.Sketch) {
	t.Helper()
	data, err := codec.Encode(sketches, 1)
	require.NoError(t, err)
	_, err = store.Save(context.Background(), key, data)
	require.NoError(t, err)
}

func loadTestLeaf(t *testing.T, store blobstore.Store, key string) *Leaf {
	t.Helper()
	l, err := LoadLeaf(sbt.LeafInfo{Name: "a", Key: key, Metadata: map[string]any{"filename": "a.sig"}}, store)
	require.NoError(t, err)
	return l.(*Leaf)
}

func TestLeaf_GetCaches(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	orig := newSketch(t, "a", 1, 2, 3)
	storeSketch(t, store, "a.sig", orig)

	leaf := loadTestLeaf(t, store, "a.sig")
	assert.False(t, leaf.Loaded())

	first, err := leaf.Get(ctx)
	require.NoError(t, err)
	assert.True(t, orig.Equal(first))

	second, err := leaf.Get(ctx)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int64(1), store.Loads())
}

func TestLeaf_SetOverridesCache(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	storeSketch(t, store, "a.sig", newSketch(t, "a", 1, 2, 3))

	leaf := loadTestLeaf(t, store, "a.sig")
	_, err := leaf.Get(ctx)
	require.NoError(t, err)

	replacement := newSketch(t, "b", 7, 8)
	leaf.Set(replacement)

	got, err := leaf.Get(ctx)
	require.NoError(t, err)
	assert.Same(t, replacement, got)
	assert.Equal(t, int64(1), store.Loads())
}

func TestLeaf_SaveOverOwnKey(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	orig := newSketch(t, "a", 10, 20, 30)
	storeSketch(t, store, "a.sig", orig)

	leaf := loadTestLeaf(t, store, "a.sig")
	require.False(t, leaf.Loaded())

	key, err := leaf.Save(ctx, "a.sig")
	require.NoError(t, err)
	assert.Equal(t, "a.sig", key)
	assert.Equal(t, int64(1), store.Loads(), "payload must be read before it is overwritten")

	got, err := loadTestLeaf(t, store, "a.sig").Get(ctx)
	require.NoError(t, err)
	assert.True(t, orig.Equal(got))
}

func TestLeaf_SaveRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	orig := testutil.NewRNG(7).Sketch("genome", 21, 300)

	leaf := NewLeaf("genome", orig, store)
	key, err := leaf.Save(ctx, "leaves/genome")
	require.NoError(t, err)
	assert.Equal(t, key, leaf.Key())

	got, err := loadTestLeaf(t, store, key).Get(ctx)
	require.NoError(t, err)
	assert.True(t, orig.Equal(got))
	assert.Equal(t, orig.Hashes(), got.Hashes())
	assert.Equal(t, "genome", got.Name())
}

func TestLeaf_SaveUsesStoreKey(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewContentAddressedStore(blobstore.NewMemoryStore())

	leaf := NewLeaf("a", newSketch(t, "a", 1, 2), store)
	key, err := leaf.Save(ctx, "dir/a.sig")
	require.NoError(t, err)

	assert.NotEqual(t, "dir/a.sig", key)
	assert.Equal(t, key, leaf.Key())

	got, err := loadTestLeaf(t, store, key).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, got.Hashes())
}

func TestLeaf_GetErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("NoData", func(t *testing.T) {
		_, err := NewLeaf("a", nil, nil).Get(ctx)
		require.ErrorIs(t, err, ErrNoData)
	})

	t.Run("NoStorage", func(t *testing.T) {
		_, err := loadTestLeaf(t, nil, "a.sig").Get(ctx)
		require.ErrorIs(t, err, ErrNoStorage)
	})

	t.Run("Missing", func(t *testing.T) {
		_, err := loadTestLeaf(t, blobstore.NewMemoryStore(), "a.sig").Get(ctx)
		require.ErrorIs(t, err, blobstore.ErrNotFound)

		var se *blobstore.StorageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, "a.sig", se.Key)

		var le *LeafError
		require.ErrorAs(t, err, &le)
		assert.Equal(t, "a", le.Leaf)
	})

	t.Run("Malformed", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		_, err := store.Save(ctx, "a.sig", []byte("{not a sketch"))
		require.NoError(t, err)

		_, err = loadTestLeaf(t, store, "a.sig").Get(ctx)
		require.ErrorIs(t, err, codec.ErrDecode)
	})

	t.Run("TwoRecords", func(t *testing.T) {
		store := blobstore.NewMemoryStore()
		storeSketch(t, store, "a.sig", newSketch(t, "a", 1), newSketch(t, "b", 2))

		leaf := loadTestLeaf(t, store, "a.sig")
		_, err := leaf.Get(ctx)
		require.ErrorIs(t, err, codec.ErrDecode)
		assert.False(t, leaf.Loaded())
	})

	t.Run("SaveWithoutData", func(t *testing.T) {
		_, err := NewLeaf("a", nil, blobstore.NewMemoryStore()).Save(ctx, "a.sig")
		require.ErrorIs(t, err, ErrNoData)
	})

	t.Run("SaveWithoutStorage", func(t *testing.T) {
		_, err := NewLeaf("a", newSketch(t, "a", 1), nil).Save(ctx, "a.sig")
		require.ErrorIs(t, err, ErrNoStorage)
	})
}

func TestLeaf_UpdateMinNBelow(t *testing.T) {
	ctx := context.Background()
	parent := sbt.NewNode(sbt.Factory{KSize: 1, Size: 1024, NumHashes: 4}, "internal.0")

	_, ok := parent.MinNBelow()
	require.False(t, ok)

	steps := []struct {
		hashes []uint64
		want   int
	}{
		{[]uint64{1, 2, 3, 4, 5}, 5},
		{[]uint64{6, 7, 8}, 3},
		{nil, 1},
		{[]uint64{9, 10, 11, 12}, 1},
	}
	for _, step := range steps {
		leaf := NewLeaf("l", newSketch(t, "l", step.hashes...), nil)
		require.NoError(t, leaf.Update(ctx, parent))

		got, ok := parent.MinNBelow()
		require.True(t, ok)
		assert.Equal(t, step.want, got)
	}

	bf, err := parent.Filter(ctx)
	require.NoError(t, err)
	for h := uint64(1); h <= 12; h++ {
		assert.True(t, bf.Contains(h), "hash %d", h)
	}
}

func TestLeaf_UpdateLoadError(t *testing.T) {
	parent := sbt.NewNode(sbt.Factory{KSize: 1, Size: 1024, NumHashes: 4}, "internal.0")
	leaf := loadTestLeaf(t, blobstore.NewMemoryStore(), "gone.sig")

	err := leaf.Update(context.Background(), parent)
	require.ErrorIs(t, err, blobstore.ErrNotFound)

	_, ok := parent.MinNBelow()
	assert.False(t, ok)
}

func TestLeaf_Unload(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	leaf := NewLeaf("a", newSketch(t, "a", 1, 2), store)
	leaf.Unload()
	assert.True(t, leaf.Loaded(), "unsaved leaves keep their sketch")

	_, err := leaf.Save(ctx, "a.sig")
	require.NoError(t, err)
	leaf.Unload()
	assert.False(t, leaf.Loaded())

	got, err := leaf.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, got.Hashes())
}

func TestLeaf_String(t *testing.T) {
	leaf := loadTestLeaf(t, nil, "a.sig")
	assert.Equal(t, "**Leaf:a -> map[filename:a.sig]", leaf.String())

	leaf.SetMetadata("origin", "x")
	assert.Equal(t, "**Leaf:a -> map[filename:a.sig origin:x]", leaf.String())
}

func TestLeaf_Metrics(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()
	metrics := &BasicMetricsCollector{}

	leaf := NewLeaf("a", newSketch(t, "a", 1, 2, 3), store, WithMetricsCollector(metrics))
	_, err := leaf.Save(ctx, "a.sig")
	require.NoError(t, err)

	loaded := loadLeaf(sbt.LeafInfo{Name: "a", Key: "a.sig"}, store, applyOptions([]Option{WithMetricsCollector(metrics)}))
	_, err = loaded.Get(ctx)
	require.NoError(t, err)

	missing := loadLeaf(sbt.LeafInfo{Name: "b", Key: "b.sig"}, store, applyOptions([]Option{WithMetricsCollector(metrics)}))
	_, err = missing.Get(ctx)
	require.True(t, errors.Is(err, blobstore.ErrNotFound))

	stats := metrics.GetStats()
	assert.Equal(t, int64(1), stats.SaveCount)
	assert.Positive(t, stats.SaveBytes)
	assert.Equal(t, int64(2), stats.LoadCount)
	assert.Equal(t, int64(1), stats.LoadErrors)
	assert.Equal(t, stats.SaveBytes, stats.LoadBytes)
}
