package resultstore

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// sequenceAppender assigns indices the way the evidence_chunk_sequences upsert does.
type sequenceAppender struct {
	mu     sync.Mutex
	next   map[string]int
	chunks []*domain.EvidenceChunk
	err    error
}

func newSequenceAppender() *sequenceAppender {
	return &sequenceAppender{next: map[string]int{}}
}

func (a *sequenceAppender) Append(_ context.Context, c *domain.EvidenceChunk) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return 0, a.err
	}
	key := c.DocumentID + "/" + string(c.AgentName)
	idx := a.next[key]
	a.next[key] = idx + 1
	c.ChunkIndex = idx
	a.chunks = append(a.chunks, c)
	return idx, nil
}

type stubEmbedder struct {
	err   error
	calls int
}

func (e *stubEmbedder) GenerateEmbedding(_ context.Context, _ string) ([]float32, error) {
	e.calls++
	if e.err != nil {
		return nil, e.err
	}
	return []float32{0.1, 0.2}, nil
}

func TestStore_Append_SequentialIndices(t *testing.T) {
	chunks := newSequenceAppender()
	s := New(chunks, nil, true)
	ctx := context.Background()

	for i := 0; i < 4; i++ {
		res := s.Append(ctx, "doc-1", domain.AgentTech, "finding", nil)
		require.True(t, res.Success)
		assert.Equal(t, i, res.ChunkIndex)
	}

	res := s.Append(ctx, "doc-1", domain.AgentLegal, "clause", nil)
	assert.Equal(t, 0, res.ChunkIndex)
}

func TestStore_Append_DisabledIsNoop(t *testing.T) {
	chunks := newSequenceAppender()
	s := New(chunks, nil, false)

	res := s.Append(context.Background(), "doc-1", domain.AgentTech, "finding", nil)

	assert.True(t, res.Success)
	assert.True(t, res.Skipped)
	assert.Empty(t, res.Error)
	assert.Empty(t, chunks.chunks)
}

func TestStore_Append_EmbeddingFailureStillStores(t *testing.T) {
	chunks := newSequenceAppender()
	embedder := &stubEmbedder{err: errors.New("quota exceeded")}
	s := New(chunks, embedder, true)

	res := s.Append(context.Background(), "doc-1", domain.AgentRisk, "risk", nil)

	assert.True(t, res.Success)
	require.Len(t, chunks.chunks, 1)
	assert.Nil(t, chunks.chunks[0].Embedding)
	assert.Equal(t, 1, embedder.calls)
}

func TestStore_Append_WritesEmbeddingAndMetadata(t *testing.T) {
	chunks := newSequenceAppender()
	s := New(chunks, &stubEmbedder{}, true)

	payload := domain.SummaryPayload{Summary: domain.DecisionSummary{Recommendation: "bid", Confidence: 80}}
	res := s.Append(context.Background(), "doc-1", domain.AgentSummary, "summary text", payload)

	require.True(t, res.Success)
	require.Len(t, chunks.chunks, 1)
	c := chunks.chunks[0]
	assert.Equal(t, domain.ChunkTypeSummary, c.ChunkType)
	assert.Equal(t, []float32{0.1, 0.2}, c.Embedding)

	decoded, err := domain.DecodePayload(domain.AgentSummary, c.Metadata)
	require.NoError(t, err)
	assert.Equal(t, payload, decoded)
}

func TestStore_Append_StorageFailure(t *testing.T) {
	chunks := newSequenceAppender()
	chunks.err = errors.New("connection refused")
	s := New(chunks, nil, true)

	res := s.Append(context.Background(), "doc-1", domain.AgentTech, "finding", nil)

	assert.False(t, res.Success)
	assert.Equal(t, "connection refused", res.Error)
}

func TestStore_Append_EmptyContent(t *testing.T) {
	s := New(newSequenceAppender(), nil, true)

	res := s.Append(context.Background(), "doc-1", domain.AgentTech, "  ", nil)

	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestChunkTypeFor(t *testing.T) {
	assert.Equal(t, domain.ChunkTypeSource, ChunkTypeFor(domain.AgentIngest))
	assert.Equal(t, domain.ChunkTypeAnalysis, ChunkTypeFor(domain.AgentCommercial))
	assert.Equal(t, domain.ChunkTypeAudit, ChunkTypeFor(domain.AgentQuickScan))
	assert.Equal(t, domain.ChunkTypeEstimate, ChunkTypeFor(domain.AgentTimeline))
}

type stubBatchEmbedder struct {
	stubEmbedder
	batches [][]string
	err     error
}

func (e *stubBatchEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	e.batches = append(e.batches, texts)
	if e.err != nil {
		return nil, e.err
	}
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{float32(i)}
	}
	return vectors, nil
}

func TestStore_AppendAll_UsesOneBatch(t *testing.T) {
	chunks := newSequenceAppender()
	embedder := &stubBatchEmbedder{}
	s := New(chunks, embedder, true)

	results := s.AppendAll(context.Background(), "doc-1", domain.AgentIngest, []Entry{
		{Content: "part one", Metadata: map[string]int{"part": 0}},
		{Content: "part two", Metadata: map[string]int{"part": 1}},
	})

	require.Len(t, results, 2)
	assert.Equal(t, 0, results[0].ChunkIndex)
	assert.Equal(t, 1, results[1].ChunkIndex)
	assert.Equal(t, [][]string{{"part one", "part two"}}, embedder.batches)
	assert.Zero(t, embedder.calls)
	require.Len(t, chunks.chunks, 2)
	assert.Equal(t, []float32{1}, chunks.chunks[1].Embedding)
	assert.Equal(t, domain.ChunkTypeSource, chunks.chunks[0].ChunkType)
	assert.JSONEq(t, `{"part":1}`, string(chunks.chunks[1].Metadata))
}

func TestStore_AppendAll_BatchFailureStoresWithoutVectors(t *testing.T) {
	chunks := newSequenceAppender()
	s := New(chunks, &stubBatchEmbedder{err: errors.New("quota exceeded")}, true)

	results := s.AppendAll(context.Background(), "doc-1", domain.AgentIngest, []Entry{{Content: "a"}, {Content: "b"}})

	require.Len(t, results, 2)
	assert.True(t, results[1].Success)
	for _, c := range chunks.chunks {
		assert.Nil(t, c.Embedding)
	}
}

func TestStore_AppendAll_FallsBackToSingleEmbeddings(t *testing.T) {
	chunks := newSequenceAppender()
	embedder := &stubEmbedder{}
	s := New(chunks, embedder, true)

	results := s.AppendAll(context.Background(), "doc-1", domain.AgentIngest, []Entry{{Content: "a"}, {Content: "b"}})

	require.Len(t, results, 2)
	assert.Equal(t, 2, embedder.calls)
}

func TestStore_AppendAll_StopsAtFirstFailure(t *testing.T) {
	chunks := newSequenceAppender()
	chunks.err = errors.New("connection refused")
	s := New(chunks, nil, true)

	results := s.AppendAll(context.Background(), "doc-1", domain.AgentIngest, []Entry{{Content: "a"}, {Content: "b"}})

	require.Len(t, results, 1)
	assert.False(t, results[0].Success)
	assert.Equal(t, "connection refused", results[0].Error)
}

func TestStore_AppendAll_RejectsEmptyEntry(t *testing.T) {
	chunks := newSequenceAppender()
	s := New(chunks, nil, true)

	results := s.AppendAll(context.Background(), "doc-1", domain.AgentIngest, []Entry{{Content: "a"}, {Content: " "}})

	require.Len(t, results, 1)
	assert.Contains(t, results[0].Error, "entry 1")
	assert.Empty(t, chunks.chunks)
}

func TestStore_AppendAll_Disabled(t *testing.T) {
	s := New(newSequenceAppender(), nil, false)

	results := s.AppendAll(context.Background(), "doc-1", domain.AgentIngest, []Entry{{Content: "a"}, {Content: "b"}})

	require.Len(t, results, 2)
	assert.True(t, results[0].Skipped)
}
