package index

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/lumenmart/prodsearch/internal/core"
)

func floatPtr(v float64) *float64 { return &v }

func TestBuildFilterExpr(t *testing.T) {
	tests := []struct {
		name    string
		filters *core.Filters
		want    string
	}{
		{
			name:    "nil filters",
			filters: nil,
			want:    "",
		},
		{
			name:    "empty filters",
			filters: &core.Filters{},
			want:    "",
		},
		{
			name:    "category only",
			filters: &core.Filters{Category: "Electronics"},
			want:    `category == "Electronics"`,
		},
		{
			name:    "price range",
			filters: &core.Filters{MinPrice: floatPtr(10), MaxPrice: floatPtr(49.99)},
			want:    "price >= 10 and price <= 49.99",
		},
		{
			name:    "rating floor",
			filters: &core.Filters{MinRating: floatPtr(4)},
			want:    "rating >= 4",
		},
		{
			name: "all fields",
			filters: &core.Filters{
				Category: "Home and Kitchen",
				MinPrice: floatPtr(5),
				MaxPrice: floatPtr(25),
				MinRating: floatPtr(3.5),
			},
			want: `category == "Home and Kitchen" and price >= 5 and price <= 25 and rating >= 3.5`,
		},
		{
			name:    "quotes escaped",
			filters: &core.Filters{Category: `12" Vinyl`},
			want:    `category == "12\" Vinyl"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildFilterExpr(tt.filters))
		})
	}
}

func TestQuoteKinds(t *testing.T) {
	got := quoteKinds([]core.ViewKind{core.ViewAttribute, core.ViewKeyword})
	assert.Equal(t, `"attribute", "keyword"`, got)
}
