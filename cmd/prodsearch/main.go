package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/lumenmart/prodsearch/internal/catalog"
	"github.com/lumenmart/prodsearch/internal/core"
	"github.com/lumenmart/prodsearch/internal/embed"
	"github.com/lumenmart/prodsearch/internal/index"
	"github.com/lumenmart/prodsearch/internal/logger"
	"github.com/lumenmart/prodsearch/internal/search"
)

// Config represents the application configuration.
type Config struct {
	EmbedderBackend string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	EmbeddingModel  string
	EmbeddingDim    int
	VectorBackend   string
	MilvusAddr      string
	Collection      string
	MinSimilarity   float64
	CatalogFile     string
}

// loadConfig loads configuration from environment variables.
func loadConfig() *Config {
	return &Config{
		EmbedderBackend: getEnvWithDefault("EMBEDDER_BACKEND", "openai"),
		OpenAIAPIKey:    os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   os.Getenv("OPENAI_BASE_URL"),
		EmbeddingModel:  getEnvWithDefault("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDim:    getEnvIntWithDefault("EMBEDDING_DIM", core.DefaultEmbeddingDim),
		VectorBackend:   getEnvWithDefault("VECTOR_BACKEND", "milvus"),
		MilvusAddr:      getEnvWithDefault("MILVUS_ADDR", "localhost:19530"),
		Collection:      getEnvWithDefault("COLLECTION", index.DefaultCollection),
		MinSimilarity:   getEnvFloatWithDefault("MIN_SIMILARITY", 0.25),
		CatalogFile:     getEnvWithDefault("CATALOG_FILE", "data/processed_products.json"),
	}
}

// getEnvWithDefault gets an environment variable or returns a default value.
func getEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		logger.Warn("Invalid %s value %q, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		logger.Warn("Invalid %s value %q, using %g", key, value, defaultValue)
		return defaultValue
	}
	return f
}

func main() {
	// Parse command line flags
	debug := flag.Bool("debug", false, "Enable debug logging")
	doIndex := flag.Bool("index", false, "Index the catalog snapshot")
	fresh := flag.Bool("fresh", false, "Clear the index before indexing")
	query := flag.String("query", "", "Search query text")
	catalogFile := flag.String("catalog", "", "Path to the catalog snapshot JSON file")
	topN := flag.Int("top", 3, "Number of results to return")
	category := flag.String("category", "", "Restrict results to an exact category")
	minPrice := flag.Float64("min-price", -1, "Minimum price (inclusive)")
	maxPrice := flag.Float64("max-price", -1, "Maximum price (inclusive)")
	minRating := flag.Float64("min-rating", -1, "Minimum rating (inclusive)")
	flag.Parse()

	// Initialize logger
	logger.Init(*debug)

	logger.Info("Starting product search engine...")

	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		logger.Info("Warning: No .env file found or error loading it")
	}

	// Load configuration
	config := loadConfig()
	if *catalogFile != "" {
		config.CatalogFile = *catalogFile
	}

	if !*doIndex && *query == "" {
		logger.Error("Nothing to do: pass -index and/or -query")
		flag.Usage()
		os.Exit(1)
	}

	ctx := context.Background()

	embedder, err := buildEmbedder(config)
	if err != nil {
		logger.Error("Failed to initialize embedder: %v", err)
		os.Exit(1)
	}

	store, cleanup, err := buildStore(ctx, config)
	if err != nil {
		logger.Error("Failed to initialize vector store: %v", err)
		os.Exit(1)
	}
	defer cleanup()

	if *fresh {
		if err := store.Clear(ctx); err != nil {
			logger.Error("Failed to clear index: %v", err)
			os.Exit(1)
		}
	}

	if *doIndex {
		if err := runIndexing(ctx, config, store, embedder); err != nil {
			logger.Error("Indexing failed: %v", err)
			os.Exit(1)
		}
	}

	if *query != "" {
		filters := buildFilters(*category, *minPrice, *maxPrice, *minRating)
		if err := runQuery(ctx, config, store, embedder, *query, filters, *topN); err != nil {
			logger.Error("Search failed: %v", err)
			os.Exit(1)
		}
	}
}

func buildEmbedder(config *Config) (core.Embedder, error) {
	switch config.EmbedderBackend {
	case "hash":
		logger.Info("Using local hashing embedder (dim=%d)", config.EmbeddingDim)
		return embed.NewHashEmbedder(config.EmbeddingDim), nil
	case "openai":
		if config.OpenAIAPIKey == "" {
			return nil, errors.New("OPENAI_API_KEY environment variable is required")
		}
		return embed.NewOpenAIEmbedder(embed.OpenAIConfig{
			BaseURL:   config.OpenAIBaseURL,
			APIKey:    config.OpenAIAPIKey,
			Model:     config.EmbeddingModel,
			Dimension: config.EmbeddingDim,
		})
	default:
		return nil, fmt.Errorf("unknown embedder backend: %s", config.EmbedderBackend)
	}
}

func buildStore(ctx context.Context, config *Config) (core.VectorStore, func(), error) {
	switch config.VectorBackend {
	case "memory":
		logger.Info("Using in-memory vector store (dim=%d)", config.EmbeddingDim)
		return index.NewMemoryStore(config.EmbeddingDim), func() {}, nil
	case "milvus":
		store, err := index.NewMilvusStore(ctx, index.MilvusConfig{
			Address:    config.MilvusAddr,
			Collection: config.Collection,
			Dimension:  config.EmbeddingDim,
		})
		if err != nil {
			return nil, nil, err
		}
		if err := store.EnsureCollection(ctx); err != nil {
			return nil, nil, err
		}
		cleanup := func() {
			if err := store.Close(ctx); err != nil {
				logger.Warn("Error closing Milvus connection: %v", err)
			}
		}
		return store, cleanup, nil
	default:
		return nil, nil, fmt.Errorf("unknown vector backend: %s", config.VectorBackend)
	}
}

func runIndexing(ctx context.Context, config *Config, store core.VectorStore, embedder core.Embedder) error {
	cat, err := catalog.Load(config.CatalogFile)
	if err != nil {
		return err
	}

	indexer := index.NewIndexer(store, embedder, index.IndexerConfig{})
	report, err := indexer.Run(ctx, cat.All())
	if err != nil {
		return err
	}

	fmt.Printf("Indexing run %s: indexed=%d skipped=%d failed=%d (%s)\n",
		report.RunID, report.Indexed, report.Skipped, report.Failed, report.Duration)
	for _, fb := range report.FailedBatches {
		fmt.Printf("  failed batch %d (%d products): %s\n", fb.Batch, len(fb.ProductIDs), fb.Reason)
	}
	return nil
}

func runQuery(ctx context.Context, config *Config, store core.VectorStore, embedder core.Embedder, query string, filters *core.Filters, topN int) error {
	engine := search.New(store, embedder, search.Config{
		MinSimilarity: float32(config.MinSimilarity),
		QueryTimeout:  30 * time.Second,
	})

	results, err := engine.Search(ctx, query, filters, topN)
	if err != nil {
		return err
	}

	fmt.Println(search.FormatResultsAsJSON(query, results))
	return nil
}

func buildFilters(category string, minPrice, maxPrice, minRating float64) *core.Filters {
	filters := &core.Filters{Category: category}
	if minPrice >= 0 {
		filters.MinPrice = &minPrice
	}
	if maxPrice >= 0 {
		filters.MaxPrice = &maxPrice
	}
	if minRating >= 0 {
		filters.MinRating = &minRating
	}
	if filters.Category == "" && filters.MinPrice == nil && filters.MaxPrice == nil && filters.MinRating == nil {
		return nil
	}
	return filters
}
