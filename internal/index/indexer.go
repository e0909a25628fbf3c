package index

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/lumenmart/prodsearch/internal/core"
	"github.com/lumenmart/prodsearch/internal/logger"
	"github.com/lumenmart/prodsearch/internal/views"
)

// IndexerConfig configures a catalog indexing run.
type IndexerConfig struct {
	// BatchSize bounds how many views go into one embed+upsert batch.
	BatchSize int
	// Concurrency bounds how many batches are written at the same time.
	// Safe because upserts are idempotent by key and each key is written
	// at most once per run.
	Concurrency int
	// MaxRetries bounds upsert attempts per batch.
	MaxRetries int
}

func (c IndexerConfig) withDefaults() IndexerConfig {
	if c.BatchSize <= 0 {
		c.BatchSize = 100
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	return c
}

// Indexer turns catalog products into per-view index entries: it builds
// views, embeds them in bounded batches, and upserts them with per-batch
// retry. A failed batch is reported and skipped; the run continues.
type Indexer struct {
	store    core.VectorStore
	embedder core.Embedder
	cfg      IndexerConfig
}

// NewIndexer creates an indexer over the given store and embedder.
func NewIndexer(store core.VectorStore, embedder core.Embedder, cfg IndexerConfig) *Indexer {
	return &Indexer{
		store:    store,
		embedder: embedder,
		cfg:      cfg.withDefaults(),
	}
}

// productViews holds the built views for one product, plus the view kinds
// the product no longer produces (their stale entries must be deleted).
type productViews struct {
	product core.Product
	views   []core.View
	stale   []core.ViewKind
}

// batch groups whole products so a batch failure maps to product ids.
type batch struct {
	seq   int
	items []productViews
	size  int
}

// Run indexes the full catalog snapshot. Malformed products are skipped
// and reported; failed batches are retried independently and reported
// without aborting the run.
func (ix *Indexer) Run(ctx context.Context, products []core.Product) (*core.IndexReport, error) {
	start := time.Now()
	report := &core.IndexReport{RunID: uuid.NewString()}

	logger.Info("Indexing run %s over %d products (batch=%d, concurrency=%d)",
		report.RunID, len(products), ix.cfg.BatchSize, ix.cfg.Concurrency)

	var batches []batch
	current := batch{seq: 0}
	for _, p := range products {
		built, err := views.BuildAll(p)
		if err != nil {
			if errors.Is(err, core.ErrMalformedProduct) {
				logger.Warn("Skipping product %s: %v", p.ID, err)
				report.Skipped++
				report.SkippedIDs = append(report.SkippedIDs, p.ID)
				continue
			}
			return nil, fmt.Errorf("failed to build views for product %s: %w", p.ID, err)
		}

		current.items = append(current.items, productViews{
			product: p,
			views:   built,
			stale:   staleKinds(built),
		})
		current.size += len(built)
		if current.size >= ix.cfg.BatchSize {
			batches = append(batches, current)
			current = batch{seq: current.seq + 1}
		}
	}
	if len(current.items) > 0 {
		batches = append(batches, current)
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.cfg.Concurrency)

	for _, b := range batches {
		g.Go(func() error {
			err := ix.processBatch(gctx, b)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				logger.Error("Batch %d failed permanently: %v", b.seq, err)
				report.Failed += len(b.items)
				report.FailedBatches = append(report.FailedBatches, core.FailedBatch{
					Batch:      b.seq,
					ProductIDs: productIDs(b.items),
					Reason:     err.Error(),
				})
				return nil
			}
			report.Indexed += len(b.items)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("indexing run %s aborted: %w", report.RunID, err)
	}

	report.Duration = time.Since(start)
	logger.Info("Indexing run %s done: indexed=%d skipped=%d failed=%d in %s",
		report.RunID, report.Indexed, report.Skipped, report.Failed, report.Duration)
	return report, nil
}

// Reindex rebuilds one product: stale view kinds are deleted explicitly,
// then the fresh views are upserted.
func (ix *Indexer) Reindex(ctx context.Context, p core.Product) error {
	built, err := views.BuildAll(p)
	if err != nil {
		return fmt.Errorf("product %s: %w", p.ID, err)
	}
	return ix.processBatch(ctx, batch{
		items: []productViews{{product: p, views: built, stale: staleKinds(built)}},
	})
}

// processBatch embeds a batch's views sequentially, then deletes stale
// kinds and upserts the fresh entries, retrying the writes with backoff.
func (ix *Indexer) processBatch(ctx context.Context, b batch) error {
	texts := make([]string, 0, b.size)
	for _, item := range b.items {
		for _, v := range item.views {
			texts = append(texts, v.Text)
		}
	}

	vectors, err := ix.embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrEmbeddingUnavailable, err)
	}
	if len(vectors) != len(texts) {
		return fmt.Errorf("embedder returned %d vectors for %d texts", len(vectors), len(texts))
	}

	entries := make([]core.IndexEntry, 0, len(texts))
	i := 0
	for _, item := range b.items {
		meta := metaFromProduct(item.product)
		for _, v := range item.views {
			entries = append(entries, core.IndexEntry{
				ProductID: v.ProductID,
				Kind:      v.Kind,
				Vector:    vectors[i],
				Meta:      meta,
			})
			i++
		}
	}

	return ix.writeWithRetry(ctx, b, entries)
}

func (ix *Indexer) writeWithRetry(ctx context.Context, b batch, entries []core.IndexEntry) error {
	var lastErr error
	for attempt := 0; attempt < ix.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Debug("Retrying batch %d write, attempt %d/%d", b.seq, attempt+1, ix.cfg.MaxRetries)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryDelay(attempt - 1)):
			}
		}

		if lastErr = ix.writeOnce(ctx, b, entries); lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	return fmt.Errorf("%w: batch write failed after %d attempts: %v", core.ErrIndexUnavailable, ix.cfg.MaxRetries, lastErr)
}

func (ix *Indexer) writeOnce(ctx context.Context, b batch, entries []core.IndexEntry) error {
	for _, item := range b.items {
		if len(item.stale) == 0 {
			continue
		}
		if err := ix.store.Delete(ctx, item.product.ID, item.stale...); err != nil {
			return fmt.Errorf("delete stale views for %s: %w", item.product.ID, err)
		}
	}
	return ix.store.Upsert(ctx, entries)
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

// staleKinds returns the view kinds the build did not produce.
func staleKinds(built []core.View) []core.ViewKind {
	present := make(map[core.ViewKind]bool, len(built))
	for _, v := range built {
		present[v.Kind] = true
	}
	var stale []core.ViewKind
	for _, kind := range core.AllViewKinds {
		if !present[kind] {
			stale = append(stale, kind)
		}
	}
	return stale
}

func productIDs(items []productViews) []string {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.product.ID
	}
	return ids
}

// metaFromProduct denormalizes the product fields stored with each entry.
// Unset price and rating become zero, matching the snapshot format.
func metaFromProduct(p core.Product) core.EntryMeta {
	meta := core.EntryMeta{
		Title:       p.Title,
		Category:    p.Category,
		Store:       p.Store,
		RatingCount: p.RatingCount,
		ImageURL:    p.ImageURL,
		ProductURL:  p.ProductURL,
	}
	if p.Price != nil {
		meta.Price = *p.Price
	}
	if p.Rating != nil {
		meta.Rating = *p.Rating
	}
	return meta
}
