package embed

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/lumenmart/prodsearch/internal/logger"
)

// OpenAIConfig configures the OpenAI-compatible embeddings backend.
type OpenAIConfig struct {
	BaseURL       string
	APIKey        string
	Model         string
	Dimension     int
	Timeout       time.Duration
	MaxRetries    int
	MaxInputChars int
}

// OpenAIEmbedder generates embeddings through any OpenAI-compatible
// embeddings API. It truncates inputs to the provider budget, retries
// transient failures with exponential backoff, and L2-normalizes output
// vectors so inner products are cosine similarities.
type OpenAIEmbedder struct {
	client        *openai.Client
	model         string
	dimension     int
	timeout       time.Duration
	maxRetries    int
	maxInputChars int
}

// NewOpenAIEmbedder creates a new embedder from the given configuration.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("embedding API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = 384
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxInputChars <= 0 {
		cfg.MaxInputChars = 8192
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	return &OpenAIEmbedder{
		client:        openai.NewClientWithConfig(clientConfig),
		model:         cfg.Model,
		dimension:     cfg.Dimension,
		timeout:       cfg.Timeout,
		maxRetries:    cfg.MaxRetries,
		maxInputChars: cfg.MaxInputChars,
	}, nil
}

// Embed generates one vector per input text, preserving order.
func (e *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.New("no texts provided for embedding")
	}

	inputs := make([]string, len(texts))
	for i, t := range texts {
		inputs[i] = truncate(t, e.maxInputChars)
	}

	var lastErr error
	for attempt := 0; attempt < e.maxRetries; attempt++ {
		if attempt > 0 {
			logger.Debug("Retrying embedding request, attempt %d/%d", attempt+1, e.maxRetries)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay(attempt - 1)):
			}
		}

		vectors, err := e.embedOnce(ctx, inputs)
		if err == nil {
			return vectors, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	return nil, fmt.Errorf("embedding failed after %d attempts: %w", e.maxRetries, lastErr)
}

func (e *OpenAIEmbedder) embedOnce(ctx context.Context, inputs []string) ([][]float32, error) {
	reqCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req := openai.EmbeddingRequest{
		Input:      inputs,
		Model:      openai.EmbeddingModel(e.model),
		Dimensions: e.dimension,
	}

	resp, err := e.client.CreateEmbeddings(reqCtx, req)
	if err != nil {
		return nil, fmt.Errorf("create embeddings failed: %w", err)
	}
	if len(resp.Data) != len(inputs) {
		return nil, fmt.Errorf("embedding response has %d vectors for %d inputs", len(resp.Data), len(inputs))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		if len(data.Embedding) != e.dimension {
			return nil, fmt.Errorf("embedding dimension %d does not match configured %d", len(data.Embedding), e.dimension)
		}
		vectors[i] = Normalize(data.Embedding)
	}
	return vectors, nil
}

// Dimension returns the fixed output dimension.
func (e *OpenAIEmbedder) Dimension() int {
	return e.dimension
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

// truncate cuts the text to at most max runes.
func truncate(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
