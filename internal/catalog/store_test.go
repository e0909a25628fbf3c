package catalog

import (
	"os"
	"path/filepath"
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

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "products.json")
	data := `{
		"products": [
			{"id": "b01", "title": "Wireless Mouse", "category": "Electronics", "price": 19.99},
			{"id": "b02", "title": "Garden Hose", "category": "Garden"},
			{"id": "b03", "title": "USB Cable", "category": "Electronics"}
		]
	}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	store, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, store.Len())

	p, ok := store.Get("b01")
	require.True(t, ok)
	assert.Equal(t, "Wireless Mouse", p.Title)
	require.NotNil(t, p.Price)
	assert.InDelta(t, 19.99, *p.Price, 1e-9)

	_, ok = store.Get("missing")
	assert.False(t, ok)

	assert.Equal(t, []string{"Electronics", "Garden"}, store.Categories())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	require.Error(t, err)
}

func TestLoadMalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestNewDeduplicatesByID(t *testing.T) {
	store := New([]core.Product{
		{ID: "p1", Title: "Old Title"},
		{ID: "", Title: "No ID"},
		{ID: "p1", Title: "New Title"},
		{ID: "p2", Title: "Other"},
	})
	assert.Equal(t, 2, store.Len())

	p, ok := store.Get("p1")
	require.True(t, ok)
	assert.Equal(t, "New Title", p.Title)

	// first insertion position is kept for the replaced record
	all := store.All()
	assert.Equal(t, "p1", all[0].ID)
	assert.Equal(t, "p2", all[1].ID)
}
