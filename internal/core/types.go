package core

import "time"

// DefaultEmbeddingDim is the default dimension for embedding vectors
// (384 matches the all-MiniLM-L6-v2 family used for product search).
const DefaultEmbeddingDim = 384

// ViewKind identifies one of the textual representations derived from a
// product for embedding purposes. Each kind appears at most once per product.
type ViewKind string

const (
	ViewAttribute   ViewKind = "attribute"
	ViewDescription ViewKind = "description"
	ViewKeyword     ViewKind = "keyword"
)

// AllViewKinds lists every view kind a product may produce.
var AllViewKinds = []ViewKind{ViewAttribute, ViewDescription, ViewKeyword}

// Product is an immutable catalog record. The engine never mutates products;
// they are replaced wholesale by re-ingestion.
type Product struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Category      string   `json:"category"`
	Subcategories []string `json:"subcategories,omitempty"`
	Store         string   `json:"store,omitempty"`
	Price         *float64 `json:"price,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	RatingCount   int64    `json:"rating_count,omitempty"`
	Features      []string `json:"features,omitempty"`
	Keywords      []string `json:"keywords,omitempty"`
	ImageURL      string   `json:"image_url,omitempty"`
	ProductURL    string   `json:"product_url,omitempty"`
}

// View is one derived textual representation of a product, the unit handed
// to the embedding provider.
type View struct {
	ProductID string   `json:"product_id"`
	Kind      ViewKind `json:"view_kind"`
	Text      string   `json:"text"`
}

// EntryMeta is the denormalized product metadata stored alongside each
// vector so a result can be built without a second catalog lookup.
// Unset price and rating are stored as zero, matching the snapshot format.
type EntryMeta struct {
	Title       string  `json:"title"`
	Category    string  `json:"category"`
	Store       string  `json:"store,omitempty"`
	Price       float64 `json:"price"`
	Rating      float64 `json:"rating"`
	RatingCount int64   `json:"rating_count"`
	ImageURL    string  `json:"image_url,omitempty"`
	ProductURL  string  `json:"product_url,omitempty"`
}

// IndexEntry is the persisted unit in the vector index, keyed by
// (product_id, view_kind). Upsert by key is idempotent.
type IndexEntry struct {
	ProductID string    `json:"product_id"`
	Kind      ViewKind  `json:"view_kind"`
	Vector    []float32 `json:"vector"`
	Meta      EntryMeta `json:"meta"`
}

// Key returns the composite primary key for the entry.
func (e IndexEntry) Key() string {
	return e.ProductID + "#" + string(e.Kind)
}

// SearchHit is one matched index entry with its cosine similarity score.
// Hits are ephemeral; the orchestrator collapses them per product.
type SearchHit struct {
	ProductID string    `json:"product_id"`
	Kind      ViewKind  `json:"view_kind"`
	Score     float32   `json:"score"`
	Meta      EntryMeta `json:"meta"`
}

// SearchResult is the externally visible unit: one per product, carrying
// the best score across its views and which view produced it.
type SearchResult struct {
	ProductID   string   `json:"id"`
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Store       string   `json:"store,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	RatingCount int64    `json:"rating_count"`
	ImageURL    string   `json:"image_url,omitempty"`
	ProductURL  string   `json:"product_url,omitempty"`
	Score       float32  `json:"similarity_score"`
	MatchedView ViewKind `json:"matched_view"`
}

// Filters restricts a query by denormalized metadata. Nil pointer fields
// mean "no bound"; all bounds are inclusive.
type Filters struct {
	Category  string   `json:"category,omitempty"`
	MinPrice  *float64 `json:"min_price,omitempty"`
	MaxPrice  *float64 `json:"max_price,omitempty"`
	MinRating *float64 `json:"min_rating,omitempty"`
}

// Match reports whether the entry metadata satisfies the filters.
func (f *Filters) Match(m EntryMeta) bool {
	if f == nil {
		return true
	}
	if f.Category != "" && m.Category != f.Category {
		return false
	}
	if f.MinPrice != nil && m.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && m.Price > *f.MaxPrice {
		return false
	}
	if f.MinRating != nil && m.Rating < *f.MinRating {
		return false
	}
	return true
}

// FailedBatch records one upsert batch that exhausted its retries.
type FailedBatch struct {
	Batch      int      `json:"batch"`
	ProductIDs []string `json:"product_ids"`
	Reason     string   `json:"reason"`
}

// IndexReport summarizes one indexing run for the caller.
type IndexReport struct {
	RunID         string        `json:"run_id"`
	Indexed       int           `json:"indexed"`
	Skipped       int           `json:"skipped"`
	Failed        int           `json:"failed"`
	SkippedIDs    []string      `json:"skipped_ids,omitempty"`
	FailedBatches []FailedBatch `json:"failed_batches,omitempty"`
	Duration      time.Duration `json:"duration"`
}

// IndexStats describes the current state of the vector index.
type IndexStats struct {
	Entries int64 `json:"entries"`
}
