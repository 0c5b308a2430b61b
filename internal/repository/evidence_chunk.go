package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// EvidenceChunkRepository handles the append-only evidence chunk table.
type EvidenceChunkRepository struct {
	db dbtx
}

func NewEvidenceChunkRepository(pool *pgxpool.Pool) *EvidenceChunkRepository {
	return &EvidenceChunkRepository{db: pool}
}

// Append inserts a chunk and returns the index it was assigned.
//
// The index comes from evidence_chunk_sequences in the same statement: the
// upsert takes a row lock on (document_id, agent_name), so concurrent writers
// under one agent name serialize on it and can never observe the same value.
// Reading MAX(chunk_index) and inserting in a second round trip is not safe.
func (r *EvidenceChunkRepository) Append(ctx context.Context, c *domain.EvidenceChunk) (int, error) {
	var embedding *pgvector.Vector
	if len(c.Embedding) > 0 {
		v := pgvector.NewVector(c.Embedding)
		embedding = &v
	}
	var metadata []byte
	if len(c.Metadata) > 0 {
		metadata = c.Metadata
	}

	var index int
	err := r.db.QueryRow(ctx,
		`WITH seq AS (
			 INSERT INTO evidence_chunk_sequences (document_id, agent_name, next_index)
			 VALUES ($1, $2, 1)
			 ON CONFLICT (document_id, agent_name)
			 DO UPDATE SET next_index = evidence_chunk_sequences.next_index + 1
			 RETURNING next_index - 1 AS chunk_index
		 )
		 INSERT INTO evidence_chunks (document_id, agent_name, chunk_type, chunk_index, content, embedding, metadata)
		 SELECT $1, $2, $3, seq.chunk_index, $4, $5, $6 FROM seq
		 RETURNING chunk_index`,
		c.DocumentID, string(c.AgentName), string(c.ChunkType), c.Content, embedding, metadata,
	).Scan(&index)
	if err != nil {
		return 0, err
	}
	return index, nil
}

// Search returns the chunks of a document closest to the query embedding.
// Similarity is 1 - cosine distance, clamped to [0, 1].
//
// The document's rows are materialized before ordering so the distance sort is
// exact over them. Ordering the table directly lets the planner pick the global
// HNSW index, which filters by document after the index scan and can return
// fewer than limit rows, or none, once other documents crowd the neighbourhood.
func (r *EvidenceChunkRepository) Search(ctx context.Context, documentID string, embedding []float32, limit int) ([]domain.RetrievalResult, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`WITH doc_chunks AS MATERIALIZED (
			 SELECT content, agent_name, chunk_type, metadata, embedding <=> $2 AS distance
			 FROM evidence_chunks
			 WHERE document_id = $1 AND embedding IS NOT NULL
		 )
		 SELECT content, GREATEST(0, LEAST(1, 1 - distance)) AS similarity, agent_name, chunk_type, metadata
		 FROM doc_chunks
		 ORDER BY distance
		 LIMIT $3`,
		documentID, pgvector.NewVector(embedding), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.RetrievalResult, 0, limit)
	for rows.Next() {
		var res domain.RetrievalResult
		var agent, chunkType string
		var metadata []byte
		if err := rows.Scan(&res.Content, &res.Similarity, &agent, &chunkType, &metadata); err != nil {
			return nil, err
		}
		res.AgentName = domain.AgentName(agent)
		res.ChunkType = domain.ChunkType(chunkType)
		res.Metadata = metadata
		results = append(results, res)
	}
	return results, rows.Err()
}

// ListByAgents returns every chunk written by the given agents, ordered by agent and index.
func (r *EvidenceChunkRepository) ListByAgents(ctx context.Context, documentID string, agents []domain.AgentName) ([]*domain.EvidenceChunk, error) {
	names := make([]string, 0, len(agents))
	for _, a := range agents {
		names = append(names, string(a))
	}

	query := `SELECT id, document_id, agent_name, chunk_type, chunk_index, content, metadata, created_at
		 FROM evidence_chunks WHERE document_id = $1`
	args := []any{documentID}
	if len(names) > 0 {
		query += ` AND agent_name = ANY($2)`
		args = append(args, names)
	}
	query += ` ORDER BY agent_name, chunk_index`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunkRows(rows)
}

// Latest returns the most recent chunk written by agent for a document.
func (r *EvidenceChunkRepository) Latest(ctx context.Context, documentID string, agent domain.AgentName) (*domain.EvidenceChunk, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, document_id, agent_name, chunk_type, chunk_index, content, metadata, created_at
		 FROM evidence_chunks
		 WHERE document_id = $1 AND agent_name = $2
		 ORDER BY chunk_index DESC
		 LIMIT 1`,
		documentID, string(agent),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	chunks, err := scanChunkRows(rows)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, ErrChunkNotFound
	}
	return chunks[0], nil
}

// ErrChunkNotFound is returned when an agent has not written any evidence yet.
var ErrChunkNotFound = errors.New("evidence chunk not found")

func scanChunkRows(rows pgx.Rows) ([]*domain.EvidenceChunk, error) {
	chunks := make([]*domain.EvidenceChunk, 0)
	for rows.Next() {
		var c domain.EvidenceChunk
		var agent, chunkType string
		var metadata []byte
		if err := rows.Scan(&c.ID, &c.DocumentID, &agent, &chunkType, &c.ChunkIndex, &c.Content, &metadata, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.AgentName = domain.AgentName(agent)
		c.ChunkType = domain.ChunkType(chunkType)
		c.Metadata = metadata
		chunks = append(chunks, &c)
	}
	return chunks, rows.Err()
}
