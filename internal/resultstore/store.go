// Package resultstore appends agent outputs to the evidence chunk table.
package resultstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/cloo-solutions/tenderflow/internal/domain"
)

type ChunkAppender interface {
	Append(ctx context.Context, c *domain.EvidenceChunk) (int, error)
}

type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// AppendResult reports the outcome of a single append. Skipped is set when
// the store is disabled and nothing was written.
type AppendResult struct {
	Success    bool
	Error      string
	ChunkIndex int
	Skipped    bool
}

type Store struct {
	chunks   ChunkAppender
	embedder Embedder
	enabled  bool
}

// New builds a store. A nil embedder stores chunks without vectors.
func New(chunks ChunkAppender, embedder Embedder, enabled bool) *Store {
	return &Store{chunks: chunks, embedder: embedder, enabled: enabled}
}

// Append writes content under the next chunk index of (documentID, agent).
// metadata is marshalled to JSON when non-nil.
func (s *Store) Append(ctx context.Context, documentID string, agent domain.AgentName, content string, metadata any) AppendResult {
	if !s.enabled {
		return AppendResult{Success: true, ChunkIndex: -1, Skipped: true}
	}
	chunk, err := newChunk(documentID, agent, content, metadata)
	if err != nil {
		return AppendResult{Error: err.Error(), ChunkIndex: -1}
	}
	if s.embedder != nil {
		embedding, err := s.embedder.GenerateEmbedding(ctx, content)
		if err != nil {
			log.Printf("resultstore: embedding failed for %s/%s, storing without vector: %v", documentID, agent, err)
		} else {
			chunk.Embedding = embedding
		}
	}
	return s.write(ctx, chunk)
}

// Entry is one item of an AppendAll call.
type Entry struct {
	Content  string
	Metadata any
}

// AppendAll writes entries in order under (documentID, agent). When the embedder
// implements BatchEmbedder all vectors come from a single request. Writing stops
// at the first failure, so the result may be shorter than entries.
func (s *Store) AppendAll(ctx context.Context, documentID string, agent domain.AgentName, entries []Entry) []AppendResult {
	if !s.enabled {
		results := make([]AppendResult, len(entries))
		for i := range results {
			results[i] = AppendResult{Success: true, ChunkIndex: -1, Skipped: true}
		}
		return results
	}

	chunks := make([]*domain.EvidenceChunk, len(entries))
	for i, e := range entries {
		chunk, err := newChunk(documentID, agent, e.Content, e.Metadata)
		if err != nil {
			return []AppendResult{{Error: fmt.Sprintf("entry %d: %v", i, err), ChunkIndex: -1}}
		}
		chunks[i] = chunk
	}
	s.embedAll(ctx, documentID, agent, chunks)

	results := make([]AppendResult, 0, len(chunks))
	for _, chunk := range chunks {
		res := s.write(ctx, chunk)
		results = append(results, res)
		if !res.Success {
			break
		}
	}
	return results
}

// BatchEmbedder embeds several texts in one call, index-aligned with texts.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

func (s *Store) embedAll(ctx context.Context, documentID string, agent domain.AgentName, chunks []*domain.EvidenceChunk) {
	if s.embedder == nil || len(chunks) == 0 {
		return
	}
	batch, ok := s.embedder.(BatchEmbedder)
	if !ok {
		for _, chunk := range chunks {
			if embedding, err := s.embedder.GenerateEmbedding(ctx, chunk.Content); err == nil {
				chunk.Embedding = embedding
			} else {
				log.Printf("resultstore: embedding failed for %s/%s, storing without vector: %v", documentID, agent, err)
			}
		}
		return
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}
	vectors, err := batch.EmbedBatch(ctx, texts)
	if err != nil {
		log.Printf("resultstore: batch embedding failed for %s/%s, storing %d chunks without vectors: %v", documentID, agent, len(chunks), err)
		return
	}
	for i, chunk := range chunks {
		chunk.Embedding = vectors[i]
	}
}

func newChunk(documentID string, agent domain.AgentName, content string, metadata any) (*domain.EvidenceChunk, error) {
	if strings.TrimSpace(content) == "" {
		return nil, errors.New("content is empty")
	}
	var raw json.RawMessage
	if metadata != nil {
		b, err := json.Marshal(metadata)
		if err != nil {
			return nil, fmt.Errorf("marshal metadata: %w", err)
		}
		raw = b
	}
	return &domain.EvidenceChunk{
		DocumentID: documentID,
		AgentName:  agent,
		ChunkType:  ChunkTypeFor(agent),
		Content:    content,
		Metadata:   raw,
	}, nil
}

func (s *Store) write(ctx context.Context, chunk *domain.EvidenceChunk) AppendResult {
	index, err := s.chunks.Append(ctx, chunk)
	if err != nil {
		return AppendResult{Error: err.Error(), ChunkIndex: -1}
	}
	return AppendResult{Success: true, ChunkIndex: index}
}

// ChunkTypeFor maps a producing agent to the kind of chunk it writes.
func ChunkTypeFor(agent domain.AgentName) domain.ChunkType {
	switch agent {
	case domain.AgentIngest:
		return domain.ChunkTypeSource
	case domain.AgentSummary:
		return domain.ChunkTypeSummary
	case domain.AgentQuickScan:
		return domain.ChunkTypeAudit
	case domain.AgentTimeline:
		return domain.ChunkTypeEstimate
	default:
		return domain.ChunkTypeAnalysis
	}
}
