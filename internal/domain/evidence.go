package domain

import (
	"encoding/json"
	"time"
)

// ChunkType classifies the content stored in an evidence chunk.
type ChunkType string

const (
	ChunkTypeSource   ChunkType = "source"
	ChunkTypeAnalysis ChunkType = "analysis"
	ChunkTypeSummary  ChunkType = "summary"
	ChunkTypeAudit    ChunkType = "audit"
	ChunkTypeEstimate ChunkType = "estimate"
)

// EvidenceChunk is one immutable unit of stored text attributable to an agent.
type EvidenceChunk struct {
	ID         int64
	DocumentID string
	AgentName  AgentName
	ChunkType  ChunkType
	ChunkIndex int
	Content    string
	Embedding  []float32
	Metadata   json.RawMessage
	CreatedAt  time.Time
}

// RetrievalResult is a single hit from a semantic query over evidence chunks.
type RetrievalResult struct {
	Content    string
	Similarity float64
	AgentName  AgentName
	ChunkType  ChunkType
	Metadata   json.RawMessage
}
