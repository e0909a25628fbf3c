package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lumenmart/prodsearch/internal/core"
)

// MemoryStore is an in-process VectorStore using brute-force cosine
// similarity over L2-normalized vectors. It backs tests and index-free
// runs, and is safe for concurrent readers while upserts are in flight.
type MemoryStore struct {
	mu      sync.RWMutex
	dim     int
	entries map[string]core.IndexEntry
}

// NewMemoryStore creates an empty in-memory store for the given dimension.
func NewMemoryStore(dim int) *MemoryStore {
	if dim <= 0 {
		dim = core.DefaultEmbeddingDim
	}
	return &MemoryStore{
		dim:     dim,
		entries: make(map[string]core.IndexEntry),
	}
}

// Upsert writes a batch of entries, overwriting by (product_id, view_kind).
func (s *MemoryStore) Upsert(ctx context.Context, entries []core.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, e := range entries {
		if len(e.Vector) != s.dim {
			return fmt.Errorf("entry %s has vector dimension %d, expected %d", e.Key(), len(e.Vector), s.dim)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range entries {
		s.entries[e.Key()] = e
	}
	return nil
}

// Query returns up to topK nearest entries by cosine similarity.
func (s *MemoryStore) Query(ctx context.Context, vector []float32, topK int, filters *core.Filters) ([]core.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if topK <= 0 {
		topK = 10
	}
	if len(vector) != s.dim {
		return nil, fmt.Errorf("query vector dimension %d, expected %d", len(vector), s.dim)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]core.SearchHit, 0, len(s.entries))
	for _, e := range s.entries {
		if !filters.Match(e.Meta) {
			continue
		}
		hits = append(hits, core.SearchHit{
			ProductID: e.ProductID,
			Kind:      e.Kind,
			Score:     dot(e.Vector, vector),
			Meta:      e.Meta,
		})
	}

	// deterministic order: score desc, then key asc
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		if hits[i].ProductID != hits[j].ProductID {
			return hits[i].ProductID < hits[j].ProductID
		}
		return hits[i].Kind < hits[j].Kind
	})

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// Delete removes the given view kinds for a product, or every view when no
// kinds are passed.
func (s *MemoryStore) Delete(ctx context.Context, productID string, kinds ...core.ViewKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(kinds) == 0 {
		kinds = core.AllViewKinds
	}
	for _, kind := range kinds {
		delete(s.entries, productID+"#"+string(kind))
	}
	return nil
}

// Stats reports the number of stored entries.
func (s *MemoryStore) Stats(ctx context.Context) (core.IndexStats, error) {
	if err := ctx.Err(); err != nil {
		return core.IndexStats{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return core.IndexStats{Entries: int64(len(s.entries))}, nil
}

// Clear removes all entries.
func (s *MemoryStore) Clear(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = make(map[string]core.IndexEntry)
	return nil
}

// Dimension returns the dimensionality of stored vectors.
func (s *MemoryStore) Dimension() int {
	return s.dim
}

// dot computes the inner product; cosine similarity for normalized inputs.
func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
