package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cloo-solutions/tenderflow/internal/domain"
)

type countingChunks struct {
	appended []*domain.EvidenceChunk
}

func (c *countingChunks) Append(_ context.Context, chunk *domain.EvidenceChunk) (int, error) {
	c.appended = append(c.appended, chunk)
	return len(c.appended) - 1, nil
}

type fixedEmbedder struct{}

func (fixedEmbedder) GenerateEmbedding(context.Context, string) ([]float32, error) {
	return []float32{0.5}, nil
}

func TestNewResultStore_EmbeddingsDisabled(t *testing.T) {
	chunks := &countingChunks{}
	store := newResultStore(chunks, Deps{Embedder: fixedEmbedder{}})

	res := store.Append(context.Background(), "doc-1", domain.AgentTech, "stack: Go", nil)

	assert.True(t, res.Success)
	assert.True(t, res.Skipped)
	assert.Empty(t, chunks.appended)
}

func TestNewResultStore_EmbeddingsEnabled(t *testing.T) {
	chunks := &countingChunks{}
	store := newResultStore(chunks, Deps{Embedder: fixedEmbedder{}, EmbeddingsEnabled: true})

	res := store.Append(context.Background(), "doc-1", domain.AgentTech, "stack: Go", nil)

	assert.True(t, res.Success)
	assert.False(t, res.Skipped)
	if assert.Len(t, chunks.appended, 1) {
		assert.Equal(t, []float32{0.5}, chunks.appended[0].Embedding)
	}
}

func TestNewResultStore_WithoutEmbedder(t *testing.T) {
	chunks := &countingChunks{}
	store := newResultStore(chunks, Deps{EmbeddingsEnabled: true})

	res := store.Append(context.Background(), "doc-1", domain.AgentTech, "stack: Go", nil)

	assert.True(t, res.Success)
	if assert.Len(t, chunks.appended, 1) {
		assert.Nil(t, chunks.appended[0].Embedding)
	}
}
