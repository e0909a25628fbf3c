package views

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumenmart/prodsearch/internal/core"
)

func TestBuild(t *testing.T) {
	tests := []struct {
		name      string
		product   core.Product
		wantKinds []core.ViewKind
		wantErr   bool
	}{
		{
			name: "full product yields all three views",
			product: core.Product{
				ID:          "p1",
				Title:       "Wireless Bluetooth Headphones",
				Description: "Comfortable over-ear headphones",
				Category:    "Electronics",
				Features:    []string{"40mm drivers", "20 hour battery"},
				Keywords:    []string{"headphones", "bluetooth"},
			},
			wantKinds: []core.ViewKind{core.ViewAttribute, core.ViewDescription, core.ViewKeyword},
		},
		{
			name: "features stand in for missing keywords",
			product: core.Product{
				ID:       "p2",
				Title:    "Standing Desk",
				Features: []string{"height adjustable"},
			},
			wantKinds: []core.ViewKind{core.ViewAttribute, core.ViewKeyword},
		},
		{
			name: "title only yields attribute view",
			product: core.Product{
				ID:    "p3",
				Title: "Desk Lamp",
			},
			wantKinds: []core.ViewKind{core.ViewAttribute},
		},
		{
			name: "description only yields description view",
			product: core.Product{
				ID:          "p4",
				Description: "A lamp for desks",
			},
			wantKinds: []core.ViewKind{core.ViewDescription},
		},
		{
			name:    "missing title and description is malformed",
			product: core.Product{ID: "p5", Category: "Electronics", Features: []string{"red"}},
			wantErr: true,
		},
		{
			name:    "whitespace-only fields are malformed",
			product: core.Product{ID: "p6", Title: "   ", Description: "\n\t"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Build(tt.product)
			if tt.wantErr {
				require.ErrorIs(t, err, core.ErrMalformedProduct)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tt.wantKinds))
			for _, kind := range tt.wantKinds {
				text, ok := got[kind]
				require.True(t, ok, "missing view kind %s", kind)
				assert.NotEmpty(t, strings.TrimSpace(text), "view %s has empty text", kind)
			}
		})
	}
}

func TestBuildDeterministic(t *testing.T) {
	p := core.Product{
		ID:          "p1",
		Title:       "Cast  Iron\nSkillet",
		Description: "Pre-seasoned 12 inch skillet",
		Category:    "Home and Kitchen",
		Features:    []string{" oven safe ", ""},
	}
	first, err := Build(p)
	require.NoError(t, err)
	second, err := Build(p)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// whitespace is collapsed before embedding
	assert.Equal(t, "Cast Iron Skillet oven safe Home and Kitchen", first[core.ViewAttribute])
}

func TestBuildAllOrdering(t *testing.T) {
	p := core.Product{
		ID:          "p1",
		Title:       "Yoga Mat",
		Description: "Non-slip exercise mat",
		Keywords:    []string{"yoga", "fitness"},
	}
	built, err := BuildAll(p)
	require.NoError(t, err)
	require.Len(t, built, 3)

	// stable kind order, every view owned by the product
	assert.Equal(t, core.ViewAttribute, built[0].Kind)
	assert.Equal(t, core.ViewDescription, built[1].Kind)
	assert.Equal(t, core.ViewKeyword, built[2].Kind)
	for _, v := range built {
		assert.Equal(t, "p1", v.ProductID)
		assert.NotEmpty(t, v.Text)
	}
	assert.Equal(t, "yoga, fitness", built[2].Text)
}

func TestBuildTruncatesLongViews(t *testing.T) {
	p := core.Product{
		ID:          "p1",
		Title:       "Encyclopedia",
		Description: strings.Repeat("very long description ", 500),
	}
	got, err := Build(p)
	require.NoError(t, err)
	assert.LessOrEqual(t, len([]rune(got[core.ViewDescription])), maxViewChars)
}
