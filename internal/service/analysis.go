package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/tenderflow/internal/agent"
	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/orchestrator"
	"github.com/cloo-solutions/tenderflow/internal/pipeline"
)

type ExpertRunner interface {
	RunExpertAgents(ctx context.Context, in agent.Input) orchestrator.Result
}

type AgentRunner interface {
	Run(ctx context.Context, documentID string, name domain.AgentName) (pipeline.Report, error)
}

type ChunkLister interface {
	ListByAgents(ctx context.Context, documentID string, agents []domain.AgentName) ([]*domain.EvidenceChunk, error)
}

// AnalysisService runs agents on demand and exposes the evidence they wrote.
type AnalysisService struct {
	docs    DocumentReader
	experts ExpertRunner
	agents  AgentRunner
	chunks  ChunkLister
}

func NewAnalysisService(docs DocumentReader, experts ExpertRunner, agents AgentRunner, chunks ChunkLister) *AnalysisService {
	return &AnalysisService{docs: docs, experts: experts, agents: agents, chunks: chunks}
}

// RunExpertAgents fans the expert panel out for an existing document.
func (s *AnalysisService) RunExpertAgents(ctx context.Context, documentID string) (orchestrator.Result, error) {
	if _, err := s.docs.GetByID(ctx, documentID); err != nil {
		return orchestrator.Result{}, err
	}
	return s.experts.RunExpertAgents(ctx, agent.Input{DocumentID: documentID}), nil
}

// RunAgent executes one registered agent and advances the workflow on success.
// Archived documents are closed to further runs.
func (s *AnalysisService) RunAgent(ctx context.Context, documentID string, name domain.AgentName) (pipeline.Report, error) {
	if !name.IsValid() {
		return pipeline.Report{}, fmt.Errorf("%w: %s", domain.ErrInvalidAgent, name)
	}
	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return pipeline.Report{}, err
	}
	if doc.Status == domain.StatusArchived {
		return pipeline.Report{}, domain.ErrInvalidTransition
	}
	return s.agents.Run(ctx, documentID, name)
}

// Evidence lists stored chunks, optionally narrowed to one agent.
func (s *AnalysisService) Evidence(ctx context.Context, documentID string, name domain.AgentName) ([]*domain.EvidenceChunk, error) {
	if _, err := s.docs.GetByID(ctx, documentID); err != nil {
		return nil, err
	}
	var agents []domain.AgentName
	if name != "" {
		if !name.IsValid() {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidAgent, name)
		}
		agents = []domain.AgentName{name}
	}
	chunks, err := s.chunks.ListByAgents(ctx, documentID, agents)
	if err != nil {
		return nil, fmt.Errorf("list evidence: %w", err)
	}
	return chunks, nil
}
