package core

import "errors"

// Typed error kinds surfaced to callers so upstream logic can distinguish
// "nothing relevant" (empty results, nil error) from "search is down".
var (
	// ErrEmbeddingUnavailable means the embedding provider failed or timed
	// out after bounded retries.
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// ErrIndexUnavailable means the vector index failed or timed out after
	// bounded retries.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrMalformedProduct means a product yielded zero views (missing both
	// title and description) and cannot be indexed.
	ErrMalformedProduct = errors.New("product has no indexable views")
)
