package embed

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(256)
	ctx := context.Background()

	first, err := e.Embed(ctx, []string{"wireless bluetooth headphones"})
	require.NoError(t, err)
	second, err := e.Embed(ctx, []string{"wireless bluetooth headphones"})
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, first[0], 256)
	assert.Equal(t, 256, e.Dimension())
}

func TestHashEmbedderNormalized(t *testing.T) {
	e := NewHashEmbedder(128)
	vectors, err := e.Embed(context.Background(), []string{"steel water bottle", "a"})
	require.NoError(t, err)
	for _, v := range vectors {
		var sum float64
		for _, x := range v {
			sum += float64(x) * float64(x)
		}
		assert.InDelta(t, 1.0, math.Sqrt(sum), 1e-5)
	}
}

func TestHashEmbedderSimilarityTracksOverlap(t *testing.T) {
	e := NewHashEmbedder(256)
	vectors, err := e.Embed(context.Background(), []string{
		"bluetooth headphones",
		"wireless bluetooth headphones",
		"gardening shovel",
	})
	require.NoError(t, err)

	same := dot(vectors[0], vectors[1])
	unrelated := dot(vectors[0], vectors[2])
	assert.Greater(t, same, float32(0.5))
	assert.Less(t, unrelated, float32(0.1))
}

func TestHashEmbedderCancelledContext(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Embed(ctx, []string{"anything"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "ab", truncate("abcdef", 2))
	assert.Equal(t, "abcdef", truncate("abcdef", 0))
	// rune-safe
	assert.Equal(t, "hé", truncate("héllo", 2))
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
