package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_embedder.go -package=mocks semdex/internal/llm Embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Embedder converts texts to fixed-length dense vectors, order-preserving,
// one vector per input text.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EmbeddingsConfig configures an EmbeddingsClient.
type EmbeddingsConfig struct {
	BaseURL    string
	APIKey     string
	Model      string
	VectorSize int // Expected vector size; every returned vector is validated against it
}

// EmbeddingsClient is a client for an OpenAI-compatible embeddings API.
type EmbeddingsClient struct {
	baseURL    string
	apiKey     string
	model      string
	vectorSize int
	client     *http.Client
}

// NewEmbeddingsClient creates a new embeddings client from the given configuration.
// Returns ErrNotConfigured when the API key is absent, so the caller can disable
// the indexing and search features instead of failing at call time.
func NewEmbeddingsClient(cfg EmbeddingsConfig) (*EmbeddingsClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: embedding API key missing", ErrNotConfigured)
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: embedding base URL missing", ErrNotConfigured)
	}
	if cfg.VectorSize <= 0 {
		return nil, fmt.Errorf("%w: embedding vector size missing", ErrNotConfigured)
	}
	return &EmbeddingsClient{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		vectorSize: cfg.VectorSize,
		client:     http.DefaultClient,
	}, nil
}

// VectorSize returns the dimensionality every embedding is validated against.
func (c *EmbeddingsClient) VectorSize() int {
	return c.vectorSize
}

// embeddingsRequest is the request payload for the embeddings API.
type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

// embeddingData is a single embedding in the response.
type embeddingData struct {
	Index     int       `json:"index"`
	Embedding []float64 `json:"embedding"`
}

// embeddingsResponse is the response from the embeddings API.
type embeddingsResponse struct {
	Data []embeddingData `json:"data"`
}

// Embed generates embeddings for the given texts.
// Returns one float32 vector per input text, in input order, all validated
// against the configured vector size.
func (c *EmbeddingsClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrInvalidInput)
	}

	url := fmt.Sprintf("%s/v1/embeddings", c.baseURL)

	body, err := json.Marshal(embeddingsRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.apiKey))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProvider, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, statusError(resp.StatusCode, raw)
	}

	var parsed embeddingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrProvider, err)
	}

	if len(parsed.Data) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrProvider, len(texts), len(parsed.Data))
	}

	result := make([][]float32, len(parsed.Data))
	for i, data := range parsed.Data {
		if len(data.Embedding) != c.vectorSize {
			return nil, fmt.Errorf("%w: embedding %d has size %d, expected %d",
				ErrProvider, i, len(data.Embedding), c.vectorSize)
		}
		vec := make([]float32, len(data.Embedding))
		for j, v := range data.Embedding {
			vec[j] = float32(v)
		}
		result[i] = vec
	}

	return result, nil
}
