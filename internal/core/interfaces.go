package core

import "context"

// Embedder converts texts into fixed-dimension vectors. Implementations
// must be deterministic for a fixed model version, return one vector per
// input text, and L2-normalize their output so inner products are cosines.
type Embedder interface {
	// Embed generates vectors for a batch of texts, preserving order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the fixed output dimension.
	Dimension() int
}

// VectorStore is the nearest-neighbor store over index entries, scoped to a
// single catalog namespace. Implementations must support concurrent reads
// while upserts are in flight; a query may miss a just-upserted entry but
// never observes a partially written one.
type VectorStore interface {
	// Upsert writes a batch of entries, overwriting by (product_id, view_kind).
	Upsert(ctx context.Context, entries []IndexEntry) error

	// Query returns up to topK nearest entries by cosine similarity,
	// optionally restricted by metadata filters.
	Query(ctx context.Context, vector []float32, topK int, filters *Filters) ([]SearchHit, error)

	// Delete removes the given view kinds for a product, or every view
	// when no kinds are passed.
	Delete(ctx context.Context, productID string, kinds ...ViewKind) error

	// Stats reports the number of stored entries.
	Stats(ctx context.Context) (IndexStats, error)

	// Clear removes all entries from the store.
	Clear(ctx context.Context) error
}
