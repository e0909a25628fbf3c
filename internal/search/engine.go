package search

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/lumenmart/prodsearch/internal/core"
	"github.com/lumenmart/prodsearch/internal/logger"
)

// Config holds the tunables of the search orchestrator. It is passed
// explicitly into New so thresholds can vary per engine instance.
type Config struct {
	// TopN is the default result count when the caller passes none.
	TopN int
	// Oversample multiplies the requested count for the index query, to
	// absorb multiple views per product collapsing into one result.
	Oversample int
	// MinSimilarity is the inclusive relevance threshold. The 0.25 default
	// is calibrated empirically for this catalog, not a universal constant.
	MinSimilarity float32
	// QueryTimeout bounds the whole query path (embedding + index query).
	QueryTimeout time.Duration
	// MaxRetries bounds index query attempts.
	MaxRetries int
}

func (c Config) withDefaults() Config {
	if c.TopN <= 0 {
		c.TopN = 3
	}
	if c.Oversample <= 0 {
		c.Oversample = 3
	}
	if c.MinSimilarity == 0 {
		c.MinSimilarity = 0.25
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 15 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	return c
}

// Engine is the search orchestrator: it embeds the query, runs an
// oversampled nearest-neighbor query, collapses hits per product keeping
// the best view score, applies the threshold, and ranks the survivors.
// Purely a read path; safe for concurrent use.
type Engine struct {
	store    core.VectorStore
	embedder core.Embedder
	cfg      Config
}

// New creates a search engine over the given store and embedder.
func New(store core.VectorStore, embedder core.Embedder, cfg Config) *Engine {
	return &Engine{
		store:    store,
		embedder: embedder,
		cfg:      cfg.withDefaults(),
	}
}

// Search returns up to topN products relevant to the query, ranked by
// best-of-views cosine similarity. An empty result with a nil error means
// no candidate cleared the threshold; failures come back as typed errors
// (core.ErrEmbeddingUnavailable, core.ErrIndexUnavailable).
func (e *Engine) Search(ctx context.Context, query string, filters *core.Filters, topN int) ([]core.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("empty query")
	}
	if topN <= 0 {
		topN = e.cfg.TopN
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.QueryTimeout)
	defer cancel()

	vectors, err := e.embedder.Embed(ctx, []string{query})
	if err != nil || len(vectors) == 0 {
		if err == nil {
			err = errors.New("empty embedding result")
		}
		return nil, fmt.Errorf("%w: %v", core.ErrEmbeddingUnavailable, err)
	}

	hits, err := e.queryWithRetry(ctx, vectors[0], topN*e.cfg.Oversample, filters)
	if err != nil {
		return nil, err
	}
	logger.Debug("Index query for %q returned %d hits", query, len(hits))

	results := e.rank(hits)
	if len(results) > topN {
		results = results[:topN]
	}
	logger.Info("Search %q: %d results (min_similarity=%.2f)", query, len(results), e.cfg.MinSimilarity)
	return results, nil
}

func (e *Engine) queryWithRetry(ctx context.Context, vector []float32, topK int, filters *core.Filters) ([]core.SearchHit, error) {
	var lastErr error
	for attempt := 0; attempt < e.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Debug("Retrying index query, attempt %d/%d", attempt+1, e.cfg.MaxRetries)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", core.ErrIndexUnavailable, ctx.Err())
			case <-time.After(retryDelay(attempt - 1)):
			}
		}

		hits, err := e.store.Query(ctx, vector, topK, filters)
		if err == nil {
			return hits, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("%w: index query failed after %d attempts: %v", core.ErrIndexUnavailable, e.cfg.MaxRetries, lastErr)
}

// rank collapses hits per product keeping the maximum score across views,
// drops candidates below the inclusive threshold, and sorts the remainder
// by score descending, product id ascending for ties.
func (e *Engine) rank(hits []core.SearchHit) []core.SearchResult {
	best := make(map[string]core.SearchHit, len(hits))
	for _, hit := range hits {
		cur, ok := best[hit.ProductID]
		if !ok || hit.Score > cur.Score {
			best[hit.ProductID] = hit
		}
	}

	results := make([]core.SearchResult, 0, len(best))
	for _, hit := range best {
		if hit.Score < e.cfg.MinSimilarity {
			continue
		}
		results = append(results, resultFromHit(hit))
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ProductID < results[j].ProductID
	})
	return results
}

// resultFromHit builds the externally visible record from a best hit.
// Zero price/rating in the denormalized metadata mean "not available" and
// come back as nil, matching the catalog snapshot semantics.
func resultFromHit(hit core.SearchHit) core.SearchResult {
	r := core.SearchResult{
		ProductID:   hit.ProductID,
		Title:       hit.Meta.Title,
		Category:    hit.Meta.Category,
		Store:       hit.Meta.Store,
		RatingCount: hit.Meta.RatingCount,
		ImageURL:    hit.Meta.ImageURL,
		ProductURL:  hit.Meta.ProductURL,
		Score:       hit.Score,
		MatchedView: hit.Kind,
	}
	if hit.Meta.Price > 0 {
		price := hit.Meta.Price
		r.Price = &price
	}
	if hit.Meta.Rating > 0 {
		rating := hit.Meta.Rating
		r.Rating = &rating
	}
	return r
}

// retryDelay returns an exponential backoff delay capped at 5s.
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
