package llm

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/tmc/langchaingo/llms/openai"
)

// EmbedderConfig represents the configuration for the embedding client.
// Model is fixed per deployment: vectors from different models live in
// different spaces and must never be compared.
type EmbedderConfig struct {
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// EmbeddingError is the typed failure returned when the provider call fails.
// It is non-fatal everywhere: ingestion skips the chunk, querying falls back
// to ungrounded generation.
type EmbeddingError struct {
	Cause error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed: %v", e.Cause)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Cause
}

// Embedder is a thin client around the provider's embedding endpoint.
type Embedder struct {
	config EmbedderConfig
	client *openai.LLM
}

func NewEmbedderWithConfig(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "text-embedding-3-small"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.MaxRetries < 0 {
		config.MaxRetries = 0
	}

	client, err := openai.New(
		openai.WithToken(config.APIKey),
		openai.WithEmbeddingModel(config.Model),
		openai.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedding client: %w", err)
	}

	return &Embedder{
		config: config,
		client: client,
	}, nil
}

// ModelID returns the embedding model identifier recorded with every chunk.
func (e *Embedder) ModelID() string {
	return e.config.Model
}

// retryBudget is the total time allowed across the initial attempt and all
// configured retries.
func (e *Embedder) retryBudget() time.Duration {
	return e.config.Timeout * time.Duration(e.config.MaxRetries+1)
}

// Embed maps text to a vector. Transient provider failures are retried with
// exponential backoff up to MaxRetries times; a final failure comes back as
// an *EmbeddingError.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	// Each attempt is bounded by the HTTP client timeout; the outer deadline
	// must leave room for every retry, not just the first attempt.
	ctx, cancel := context.WithTimeout(ctx, e.retryBudget())
	defer cancel()

	var vector []float32

	operation := func() error {
		embeddings, err := e.client.CreateEmbedding(ctx, []string{text})
		if err != nil {
			return err
		}
		if len(embeddings) == 0 || len(embeddings[0]) == 0 {
			return fmt.Errorf("provider returned no embedding")
		}
		vector = embeddings[0]
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewExponentialBackOff(), uint64(e.config.MaxRetries)),
		ctx,
	)

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, &EmbeddingError{Cause: err}
	}

	return vector, nil
}
