package index

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenmart/prodsearch/internal/core"
	"github.com/lumenmart/prodsearch/internal/logger"
)

func TestMain(m *testing.M) {
	logger.Init(false)
	os.Exit(m.Run())
}

func entry(productID string, kind core.ViewKind, vector []float32, meta core.EntryMeta) core.IndexEntry {
	return core.IndexEntry{ProductID: productID, Kind: kind, Vector: vector, Meta: meta}
}

func TestMemoryStoreUpsertIdempotent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3)

	entries := []core.IndexEntry{
		entry("p1", core.ViewAttribute, []float32{1, 0, 0}, core.EntryMeta{Title: "A"}),
		entry("p1", core.ViewDescription, []float32{0, 1, 0}, core.EntryMeta{Title: "A"}),
	}
	require.NoError(t, store.Upsert(ctx, entries))
	require.NoError(t, store.Upsert(ctx, entries))

	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Entries)
}

func TestMemoryStoreUpsertOverwritesByKey(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3)

	require.NoError(t, store.Upsert(ctx, []core.IndexEntry{
		entry("p1", core.ViewAttribute, []float32{1, 0, 0}, core.EntryMeta{Title: "Old"}),
	}))
	require.NoError(t, store.Upsert(ctx, []core.IndexEntry{
		entry("p1", core.ViewAttribute, []float32{0, 1, 0}, core.EntryMeta{Title: "New"}),
	}))

	hits, err := store.Query(ctx, []float32{0, 1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "New", hits[0].Meta.Title)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-6)
}

func TestMemoryStoreDimensionMismatch(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3)

	err := store.Upsert(ctx, []core.IndexEntry{
		entry("p1", core.ViewAttribute, []float32{1, 0}, core.EntryMeta{}),
	})
	require.Error(t, err)

	_, err = store.Query(ctx, []float32{1, 0}, 5, nil)
	require.Error(t, err)
}

func TestMemoryStoreQueryRanksAndLimits(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)

	require.NoError(t, store.Upsert(ctx, []core.IndexEntry{
		entry("far", core.ViewAttribute, []float32{0, 1}, core.EntryMeta{}),
		entry("near", core.ViewAttribute, []float32{1, 0}, core.EntryMeta{}),
		entry("mid", core.ViewAttribute, []float32{0.7071, 0.7071}, core.EntryMeta{}),
	}))

	hits, err := store.Query(ctx, []float32{1, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "near", hits[0].ProductID)
	assert.Equal(t, "mid", hits[1].ProductID)
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestMemoryStoreQueryFilters(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)

	require.NoError(t, store.Upsert(ctx, []core.IndexEntry{
		entry("cheap", core.ViewAttribute, []float32{1, 0}, core.EntryMeta{Category: "Electronics", Price: 10, Rating: 4.5}),
		entry("pricey", core.ViewAttribute, []float32{1, 0}, core.EntryMeta{Category: "Electronics", Price: 500, Rating: 3}),
		entry("apparel", core.ViewAttribute, []float32{1, 0}, core.EntryMeta{Category: "Apparel", Price: 50, Rating: 5}),
	}))

	maxPrice := 100.0
	hits, err := store.Query(ctx, []float32{1, 0}, 10, &core.Filters{Category: "Electronics", MaxPrice: &maxPrice})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "cheap", hits[0].ProductID)

	// inclusive bounds
	minPrice := 500.0
	hits, err = store.Query(ctx, []float32{1, 0}, 10, &core.Filters{MinPrice: &minPrice})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "pricey", hits[0].ProductID)

	minRating := 4.5
	hits, err = store.Query(ctx, []float32{1, 0}, 10, &core.Filters{MinRating: &minRating})
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)

	require.NoError(t, store.Upsert(ctx, []core.IndexEntry{
		entry("p1", core.ViewAttribute, []float32{1, 0}, core.EntryMeta{}),
		entry("p1", core.ViewDescription, []float32{1, 0}, core.EntryMeta{}),
		entry("p1", core.ViewKeyword, []float32{1, 0}, core.EntryMeta{}),
		entry("p2", core.ViewAttribute, []float32{1, 0}, core.EntryMeta{}),
	}))

	// delete one kind
	require.NoError(t, store.Delete(ctx, "p1", core.ViewKeyword))
	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Entries)

	// delete all remaining kinds for the product
	require.NoError(t, store.Delete(ctx, "p1"))
	stats, err = store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Entries)

	hits, err := store.Query(ctx, []float32{1, 0}, 10, nil)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "p2", hits[0].ProductID)
}

func TestMemoryStoreClear(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	require.NoError(t, store.Upsert(ctx, []core.IndexEntry{
		entry("p1", core.ViewAttribute, []float32{1, 0}, core.EntryMeta{}),
	}))
	require.NoError(t, store.Clear(ctx))
	stats, err := store.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.Entries)
}
