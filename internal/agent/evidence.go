package agent

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/retrieval"
)

const supplementaryResults = 5

type Retriever interface {
	QueryAll(ctx context.Context, documentID string, questions []string, maxResults int) ([]domain.RetrievalResult, error)
}

type ChunkLister interface {
	ListByAgents(ctx context.Context, documentID string, agents []domain.AgentName) ([]*domain.EvidenceChunk, error)
}

// RetrievalEvidence runs a fixed set of topical sub-queries.
type RetrievalEvidence struct {
	Retriever  Retriever
	Questions  []string
	MaxResults int
	Label      string
}

func (e RetrievalEvidence) Gather(ctx context.Context, documentID string) (string, error) {
	results, err := e.Retriever.QueryAll(ctx, documentID, e.Questions, e.MaxResults)
	if err != nil {
		return "", fmt.Errorf("retrieve evidence: %w", err)
	}
	return retrieval.FormatContext(results, e.Label), nil
}

// SynthesisEvidence collects the stored outputs of the allow-listed agents
// plus a small supplementary retrieval.
type SynthesisEvidence struct {
	Chunks    ChunkLister
	Retriever Retriever
	Allow     []domain.AgentName
	Questions []string
}

func (e SynthesisEvidence) Gather(ctx context.Context, documentID string) (string, error) {
	chunks, err := e.Chunks.ListByAgents(ctx, documentID, e.Allow)
	if err != nil {
		return "", fmt.Errorf("load agent outputs: %w", err)
	}

	byAgent := make(map[domain.AgentName][]string, len(e.Allow))
	for _, c := range chunks {
		byAgent[c.AgentName] = append(byAgent[c.AgentName], c.Content)
	}

	var sections, missing []string
	for _, name := range e.Allow {
		contents := byAgent[name]
		if len(contents) == 0 {
			missing = append(missing, string(name))
			continue
		}
		sections = append(sections, "## "+name.Title()+"\n\n"+strings.Join(contents, "\n\n"))
	}

	var supplementary string
	if e.Retriever != nil && len(e.Questions) > 0 {
		results, err := e.Retriever.QueryAll(ctx, documentID, e.Questions, supplementaryResults)
		if err != nil {
			log.Printf("agent %s: supplementary retrieval failed for document %s: %v", domain.AgentSummary, documentID, err)
		} else {
			if len(results) > supplementaryResults {
				results = results[:supplementaryResults]
			}
			supplementary = retrieval.FormatContext(results, "Supplementary Evidence")
		}
	}

	if len(sections) == 0 && supplementary == "" {
		return "", nil
	}

	parts := sections
	if len(missing) > 0 {
		parts = append(parts, "Missing expert input: "+strings.Join(missing, ", "))
	}
	if supplementary != "" {
		parts = append(parts, supplementary)
	}
	return strings.Join(parts, "\n\n"), nil
}
