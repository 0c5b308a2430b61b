package openai

import (
	"context"
	"errors"
	"strings"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEmbeddingsAPI struct {
	requests []openai.EmbeddingRequest
	resp     func(req openai.EmbeddingRequest) openai.EmbeddingResponse
	err      error
}

func (f *fakeEmbeddingsAPI) CreateEmbeddings(_ context.Context, conv openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error) {
	req := conv.Convert()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return openai.EmbeddingResponse{}, f.err
	}
	return f.resp(req), nil
}

func vector(seed float32, dims int) []float32 {
	v := make([]float32, dims)
	for i := range v {
		v[i] = seed
	}
	return v
}

// echoVectors returns one vector per input, seeded with its position.
func echoVectors(dims int) func(openai.EmbeddingRequest) openai.EmbeddingResponse {
	return func(req openai.EmbeddingRequest) openai.EmbeddingResponse {
		inputs := req.Input.([]string)
		var resp openai.EmbeddingResponse
		// reversed to check results are placed by Index
		for i := len(inputs) - 1; i >= 0; i-- {
			resp.Data = append(resp.Data, openai.Embedding{Index: i, Embedding: vector(float32(i), dims)})
		}
		return resp
	}
}

func TestClient_GenerateEmbedding(t *testing.T) {
	api := &fakeEmbeddingsAPI{resp: echoVectors(EmbeddingDimensions)}
	client := NewClientWithAPI(api, "")

	embedding, err := client.GenerateEmbedding(context.Background(), "Hosting must be EU only.")

	require.NoError(t, err)
	assert.Len(t, embedding, EmbeddingDimensions)
	require.Len(t, api.requests, 1)
	assert.Equal(t, DefaultEmbeddingModel, api.requests[0].Model)
	assert.Equal(t, []string{"Hosting must be EU only."}, api.requests[0].Input)
}

func TestClient_EmbedBatch_OrdersByIndex(t *testing.T) {
	api := &fakeEmbeddingsAPI{resp: echoVectors(EmbeddingDimensions)}
	client := NewClientWithAPI(api, openai.SmallEmbedding3)

	vectors, err := client.EmbedBatch(context.Background(), []string{"a", "b", "c"})

	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for i, v := range vectors {
		assert.Equal(t, float32(i), v[0])
	}
	assert.Equal(t, openai.SmallEmbedding3, api.requests[0].Model)
}

func TestClient_EmbedBatch_EmptyInput(t *testing.T) {
	client := NewClientWithAPI(&fakeEmbeddingsAPI{}, "")

	_, err := client.EmbedBatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = client.EmbedBatch(context.Background(), []string{"ok", ""})
	assert.ErrorIs(t, err, ErrEmptyText)

	_, err = client.GenerateEmbedding(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestClient_EmbedBatch_TruncatesLongInput(t *testing.T) {
	api := &fakeEmbeddingsAPI{resp: echoVectors(EmbeddingDimensions)}
	client := NewClientWithAPI(api, "")

	long := strings.Repeat("é", maxEmbedRunes+50)
	_, err := client.GenerateEmbedding(context.Background(), long)

	require.NoError(t, err)
	sent := api.requests[0].Input.([]string)[0]
	assert.Equal(t, maxEmbedRunes, len([]rune(sent)))
}

func TestClient_EmbedBatch_APIError(t *testing.T) {
	api := &fakeEmbeddingsAPI{err: errors.New("API rate limit exceeded")}
	client := NewClientWithAPI(api, "")

	embedding, err := client.GenerateEmbedding(context.Background(), "text")

	assert.Nil(t, embedding)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to create embedding")
	assert.Contains(t, err.Error(), "rate limit")
}

func TestClient_EmbedBatch_WrongDimensions(t *testing.T) {
	api := &fakeEmbeddingsAPI{resp: echoVectors(512)}
	client := NewClientWithAPI(api, "")

	_, err := client.GenerateEmbedding(context.Background(), "text")

	assert.ErrorIs(t, err, ErrWrongDimensions)
}

func TestClient_EmbedBatch_MissingData(t *testing.T) {
	api := &fakeEmbeddingsAPI{resp: func(openai.EmbeddingRequest) openai.EmbeddingResponse {
		return openai.EmbeddingResponse{Data: []openai.Embedding{{Index: 0, Embedding: vector(1, EmbeddingDimensions)}}}
	}}
	client := NewClientWithAPI(api, "")

	_, err := client.EmbedBatch(context.Background(), []string{"a", "b"})

	assert.ErrorIs(t, err, ErrNoEmbedding)
}

func TestNewClient(t *testing.T) {
	client := NewClient("test-api-key")

	require.NotNil(t, client)
	assert.NotNil(t, client.api)
	assert.Equal(t, DefaultEmbeddingModel, client.model)
}
