package index

import (
	"context"
	"fmt"

	"github.com/milvus-io/milvus/client/v2/column"
	"github.com/milvus-io/milvus/client/v2/entity"
	milvusindex "github.com/milvus-io/milvus/client/v2/index"
	"github.com/milvus-io/milvus/client/v2/milvusclient"

	"github.com/lumenmart/prodsearch/internal/core"
	"github.com/lumenmart/prodsearch/internal/logger"
)

// Field names for the product collection
const (
	FieldID          = "id"
	FieldProductID   = "product_id"
	FieldViewKind    = "view_kind"
	FieldTitle       = "title"
	FieldCategory    = "category"
	FieldStore       = "store"
	FieldPrice       = "price"
	FieldRating      = "rating"
	FieldRatingCount = "rating_count"
	FieldImageURL    = "image_url"
	FieldProductURL  = "product_url"
	FieldVector      = "vector"
)

// DefaultCollection is the default collection name for product views.
const DefaultCollection = "product_views"

// metaTitleMaxLen bounds the denormalized title stored in the index,
// mirroring metadata size limits of managed vector backends.
const metaTitleMaxLen = 200

var outputFields = []string{
	FieldProductID, FieldViewKind, FieldTitle, FieldCategory, FieldStore,
	FieldPrice, FieldRating, FieldRatingCount, FieldImageURL, FieldProductURL,
}

// MilvusConfig configures the Milvus-backed vector store.
type MilvusConfig struct {
	Address    string
	Collection string
	Dimension  int
}

// MilvusStore is a VectorStore backed by a Milvus collection. One row per
// (product_id, view_kind), keyed by a composite VarChar primary key, with
// an HNSW index over L2-normalized vectors using the IP metric so scores
// are cosine similarities.
type MilvusStore struct {
	client     *milvusclient.Client
	collection string
	dim        int
}

// NewMilvusStore connects to Milvus and returns a store for the configured
// collection. Call EnsureCollection before the first upsert or query.
func NewMilvusStore(ctx context.Context, cfg MilvusConfig) (*MilvusStore, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = core.DefaultEmbeddingDim
	}

	logger.Info("Connecting to Milvus at %s with dimension %d", cfg.Address, cfg.Dimension)

	c, err := milvusclient.New(ctx, &milvusclient.ClientConfig{
		Address: cfg.Address,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Milvus: %w", err)
	}

	return &MilvusStore{
		client:     c,
		collection: cfg.Collection,
		dim:        cfg.Dimension,
	}, nil
}

// EnsureCollection ensures the product view collection exists with the
// correct schema, index, and is loaded into memory.
func (s *MilvusStore) EnsureCollection(ctx context.Context) error {
	hasOpt := milvusclient.NewHasCollectionOption(s.collection)
	exists, err := s.client.HasCollection(ctx, hasOpt)
	if err != nil {
		return fmt.Errorf("failed to check if collection exists: %w", err)
	}

	if !exists {
		schema := &entity.Schema{
			CollectionName: s.collection,
			Description:    "Per-view product embeddings for semantic search",
			Fields: []*entity.Field{
				{
					Name:       FieldID,
					DataType:   entity.FieldTypeVarChar,
					PrimaryKey: true,
					AutoID:     false,
					TypeParams: map[string]string{"max_length": "300"},
				},
				{
					Name:       FieldProductID,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "255"},
				},
				{
					Name:       FieldViewKind,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "32"},
				},
				{
					Name:       FieldTitle,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "512"},
				},
				{
					Name:       FieldCategory,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "255"},
				},
				{
					Name:       FieldStore,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "255"},
				},
				{
					Name:     FieldPrice,
					DataType: entity.FieldTypeDouble,
				},
				{
					Name:     FieldRating,
					DataType: entity.FieldTypeDouble,
				},
				{
					Name:     FieldRatingCount,
					DataType: entity.FieldTypeInt64,
				},
				{
					Name:       FieldImageURL,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "2048"},
				},
				{
					Name:       FieldProductURL,
					DataType:   entity.FieldTypeVarChar,
					TypeParams: map[string]string{"max_length": "2048"},
				},
				{
					Name:       FieldVector,
					DataType:   entity.FieldTypeFloatVector,
					TypeParams: map[string]string{"dim": fmt.Sprintf("%d", s.dim)},
				},
			},
		}

		createOpt := milvusclient.NewCreateCollectionOption(s.collection, schema)
		createOpt.WithShardNum(2)
		if err := s.client.CreateCollection(ctx, createOpt); err != nil {
			return fmt.Errorf("failed to create collection: %w", err)
		}

		// IP over normalized vectors = cosine similarity
		idx := milvusindex.NewHNSWIndex(entity.IP, 16, 200)
		indexOpt := milvusclient.NewCreateIndexOption(s.collection, FieldVector, idx)
		if _, err := s.client.CreateIndex(ctx, indexOpt); err != nil {
			return fmt.Errorf("failed to create index on vector field: %w", err)
		}

		logger.Info("Created collection with HNSW index: %s", s.collection)
	}

	loadOpt := milvusclient.NewLoadCollectionOption(s.collection)
	if _, err := s.client.LoadCollection(ctx, loadOpt); err != nil {
		return fmt.Errorf("failed to load collection %s into memory: %w", s.collection, err)
	}

	return nil
}

// Upsert writes a batch of entries, overwriting rows that share the same
// (product_id, view_kind) key. Callers bound the batch size.
func (s *MilvusStore) Upsert(ctx context.Context, entries []core.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	n := len(entries)
	ids := make([]string, n)
	productIDs := make([]string, n)
	viewKinds := make([]string, n)
	titles := make([]string, n)
	categories := make([]string, n)
	stores := make([]string, n)
	prices := make([]float64, n)
	ratings := make([]float64, n)
	ratingCounts := make([]int64, n)
	imageURLs := make([]string, n)
	productURLs := make([]string, n)
	vectors := make([][]float32, n)

	for i, e := range entries {
		if len(e.Vector) != s.dim {
			return fmt.Errorf("entry %s has vector dimension %d, expected %d", e.Key(), len(e.Vector), s.dim)
		}
		ids[i] = e.Key()
		productIDs[i] = e.ProductID
		viewKinds[i] = string(e.Kind)
		titles[i] = clip(e.Meta.Title, metaTitleMaxLen)
		categories[i] = e.Meta.Category
		stores[i] = e.Meta.Store
		prices[i] = e.Meta.Price
		ratings[i] = e.Meta.Rating
		ratingCounts[i] = e.Meta.RatingCount
		imageURLs[i] = e.Meta.ImageURL
		productURLs[i] = e.Meta.ProductURL
		vectors[i] = e.Vector
	}

	columns := []column.Column{
		column.NewColumnVarChar(FieldID, ids),
		column.NewColumnVarChar(FieldProductID, productIDs),
		column.NewColumnVarChar(FieldViewKind, viewKinds),
		column.NewColumnVarChar(FieldTitle, titles),
		column.NewColumnVarChar(FieldCategory, categories),
		column.NewColumnVarChar(FieldStore, stores),
		column.NewColumnDouble(FieldPrice, prices),
		column.NewColumnDouble(FieldRating, ratings),
		column.NewColumnInt64(FieldRatingCount, ratingCounts),
		column.NewColumnVarChar(FieldImageURL, imageURLs),
		column.NewColumnVarChar(FieldProductURL, productURLs),
		column.NewColumnFloatVector(FieldVector, s.dim, vectors),
	}

	upsertOpt := milvusclient.NewColumnBasedInsertOption(s.collection, columns...)
	if _, err := s.client.Upsert(ctx, upsertOpt); err != nil {
		return fmt.Errorf("failed to upsert %d entries: %w", n, err)
	}

	logger.Debug("Upserted %d entries into %s", n, s.collection)
	return nil
}

// Query returns up to topK nearest entries by cosine similarity.
func (s *MilvusStore) Query(ctx context.Context, vector []float32, topK int, filters *core.Filters) ([]core.SearchHit, error) {
	if topK <= 0 {
		topK = 10
	}
	if len(vector) != s.dim {
		return nil, fmt.Errorf("query vector dimension %d, expected %d", len(vector), s.dim)
	}

	searchOpt := milvusclient.NewSearchOption(s.collection, topK, []entity.Vector{entity.FloatVector(vector)}).
		WithANNSField(FieldVector).
		WithOutputFields(outputFields...).
		WithAnnParam(milvusindex.NewHNSWAnnParam(100))

	if expr := BuildFilterExpr(filters); expr != "" {
		searchOpt = searchOpt.WithFilter(expr)
	}

	results, err := s.client.Search(ctx, searchOpt)
	if err != nil {
		return nil, fmt.Errorf("failed to execute search: %w", err)
	}

	if len(results) == 0 || results[0].ResultCount == 0 {
		return []core.SearchHit{}, nil
	}

	rs := results[0]
	hits := make([]core.SearchHit, 0, rs.ResultCount)
	for i := 0; i < rs.ResultCount; i++ {
		hit, err := hitAt(rs, i)
		if err != nil {
			logger.Warn("Skipping malformed search row %d: %v", i, err)
			continue
		}
		hits = append(hits, hit)
	}

	return hits, nil
}

// hitAt extracts one SearchHit from a Milvus result set row.
func hitAt(rs milvusclient.ResultSet, i int) (core.SearchHit, error) {
	var hit core.SearchHit
	var err error

	if hit.ProductID, err = stringAt(rs, FieldProductID, i); err != nil {
		return hit, err
	}
	kind, err := stringAt(rs, FieldViewKind, i)
	if err != nil {
		return hit, err
	}
	hit.Kind = core.ViewKind(kind)

	hit.Meta.Title, _ = stringAt(rs, FieldTitle, i)
	hit.Meta.Category, _ = stringAt(rs, FieldCategory, i)
	hit.Meta.Store, _ = stringAt(rs, FieldStore, i)
	hit.Meta.Price, _ = doubleAt(rs, FieldPrice, i)
	hit.Meta.Rating, _ = doubleAt(rs, FieldRating, i)
	hit.Meta.RatingCount, _ = int64At(rs, FieldRatingCount, i)
	hit.Meta.ImageURL, _ = stringAt(rs, FieldImageURL, i)
	hit.Meta.ProductURL, _ = stringAt(rs, FieldProductURL, i)

	if i < len(rs.Scores) {
		hit.Score = rs.Scores[i]
	}
	return hit, nil
}

func stringAt(rs milvusclient.ResultSet, field string, i int) (string, error) {
	col := rs.GetColumn(field)
	if col == nil {
		return "", fmt.Errorf("column %s not found in result", field)
	}
	return col.GetAsString(i)
}

func doubleAt(rs milvusclient.ResultSet, field string, i int) (float64, error) {
	col := rs.GetColumn(field)
	if col == nil {
		return 0, fmt.Errorf("column %s not found in result", field)
	}
	return col.GetAsDouble(i)
}

func int64At(rs milvusclient.ResultSet, field string, i int) (int64, error) {
	col := rs.GetColumn(field)
	if col == nil {
		return 0, fmt.Errorf("column %s not found in result", field)
	}
	return col.GetAsInt64(i)
}

// Delete removes the given view kinds for a product, or every view when no
// kinds are passed. Used when catalog entries are retired or their view
// set shrinks on re-indexing.
func (s *MilvusStore) Delete(ctx context.Context, productID string, kinds ...core.ViewKind) error {
	expr := fmt.Sprintf("%s == \"%s\"", FieldProductID, escape(productID))
	if len(kinds) > 0 {
		expr += fmt.Sprintf(" and %s in [%s]", FieldViewKind, quoteKinds(kinds))
	}

	deleteOpt := milvusclient.NewDeleteOption(s.collection).WithExpr(expr)
	if _, err := s.client.Delete(ctx, deleteOpt); err != nil {
		return fmt.Errorf("failed to delete entries for product %s: %w", productID, err)
	}
	return nil
}

// Stats reports the number of stored entries.
func (s *MilvusStore) Stats(ctx context.Context) (core.IndexStats, error) {
	queryOpt := milvusclient.NewQueryOption(s.collection).
		WithOutputFields("count(*)")

	results, err := s.client.Query(ctx, queryOpt)
	if err != nil {
		return core.IndexStats{}, fmt.Errorf("failed to query collection stats: %w", err)
	}

	col := results.GetColumn("count(*)")
	if col == nil || col.Len() == 0 {
		return core.IndexStats{}, nil
	}
	count, err := col.GetAsInt64(0)
	if err != nil {
		return core.IndexStats{}, fmt.Errorf("failed to read entry count: %w", err)
	}
	return core.IndexStats{Entries: count}, nil
}

// Clear drops and recreates the collection.
func (s *MilvusStore) Clear(ctx context.Context) error {
	logger.Info("Clearing collection: %s", s.collection)
	dropOpt := milvusclient.NewDropCollectionOption(s.collection)
	if err := s.client.DropCollection(ctx, dropOpt); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", s.collection, err)
	}
	return s.EnsureCollection(ctx)
}

// Close closes the connection to Milvus.
func (s *MilvusStore) Close(ctx context.Context) error {
	return s.client.Close(ctx)
}

// Dimension returns the dimensionality of stored vectors.
func (s *MilvusStore) Dimension() int {
	return s.dim
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
