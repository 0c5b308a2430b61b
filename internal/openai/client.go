// Package openai talks to the OpenAI API: embeddings for evidence chunks and
// retrieval questions, and schema-checked completions for the agents.
package openai

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultEmbeddingModel = openai.AdaEmbeddingV2
	// EmbeddingDimensions matches the vector(1536) column on evidence_chunks.
	EmbeddingDimensions = 1536
	// maxEmbedRunes keeps a single input under the model's token window.
	// Agent outputs and scraped pages are cut, not rejected.
	maxEmbedRunes = 24000
)

var (
	ErrEmptyText       = errors.New("text cannot be empty")
	ErrWrongDimensions = fmt.Errorf("embedding has wrong dimensions, expected %d", EmbeddingDimensions)
	ErrNoEmbedding     = errors.New("no embedding data returned")
)

// EmbeddingsAPI is the subset of the go-openai client used for embeddings.
type EmbeddingsAPI interface {
	CreateEmbeddings(ctx context.Context, req openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

// Client embeds evidence text. It satisfies the embedder interfaces of the
// retrieval builder and the result store.
type Client struct {
	api   EmbeddingsAPI
	model openai.EmbeddingModel
}

type Config struct {
	APIKey         string
	BaseURL        string
	EmbeddingModel openai.EmbeddingModel
}

// NewClient creates an embedding client against api.openai.com.
func NewClient(apiKey string) *Client {
	return NewClientWithConfig(Config{APIKey: apiKey})
}

func NewClientWithConfig(cfg Config) *Client {
	return NewClientWithAPI(newAPIClient(cfg.APIKey, cfg.BaseURL), cfg.EmbeddingModel)
}

// NewClientWithAPI uses an existing go-openai client, or a fake in tests.
func NewClientWithAPI(api EmbeddingsAPI, model openai.EmbeddingModel) *Client {
	if model == "" {
		model = DefaultEmbeddingModel
	}
	return &Client{api: api, model: model}
}

func newAPIClient(apiKey, baseURL string) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return openai.NewClientWithConfig(cfg)
}

// GenerateEmbedding embeds a single chunk or question.
func (c *Client) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	vectors, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in one request. The result is index-aligned with texts.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyText
	}
	inputs := make([]string, len(texts))
	for i, text := range texts {
		if text == "" {
			return nil, ErrEmptyText
		}
		inputs[i] = truncateRunes(text, maxEmbedRunes)
	}

	resp, err := c.api.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: inputs,
		Model: c.model,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embedding: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("%w: got %d of %d", ErrNoEmbedding, len(resp.Data), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, fmt.Errorf("%w: index %d out of range", ErrNoEmbedding, d.Index)
		}
		if len(d.Embedding) != EmbeddingDimensions {
			return nil, ErrWrongDimensions
		}
		vectors[d.Index] = d.Embedding
	}
	return vectors, nil
}

func truncateRunes(s string, n int) string {
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
