package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/tenderflow/internal/api"
	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/orchestrator"
	"github.com/cloo-solutions/tenderflow/internal/pipeline"
	"github.com/go-chi/chi/v5"
)

type AnalysisService interface {
	RunExpertAgents(ctx context.Context, documentID string) (orchestrator.Result, error)
	RunAgent(ctx context.Context, documentID string, name domain.AgentName) (pipeline.Report, error)
	Evidence(ctx context.Context, documentID string, name domain.AgentName) ([]*domain.EvidenceChunk, error)
}

type AnalysisHandler struct {
	svc AnalysisService
}

func NewAnalysisHandler(svc AnalysisService) *AnalysisHandler {
	return &AnalysisHandler{svc: svc}
}

type EvidenceResponse struct {
	Agent      string          `json:"agent"`
	ChunkType  string          `json:"chunk_type"`
	ChunkIndex int             `json:"chunk_index"`
	Content    string          `json:"content"`
	Metadata   json.RawMessage `json:"metadata,omitempty"`
	CreatedAt  string          `json:"created_at"`
}

// RunExperts blocks until the expert panel and the synthesis have settled.
func (h *AnalysisHandler) RunExperts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	res, err := h.svc.RunExpertAgents(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, res)
}

func (h *AnalysisHandler) RunAgent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	name := chi.URLParam(r, "agent")
	if id == "" || name == "" {
		api.Error(w, http.StatusBadRequest, "id and agent are required")
		return
	}

	rep, err := h.svc.RunAgent(r.Context(), id, domain.AgentName(name))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, rep)
}

func (h *AnalysisHandler) Evidence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	chunks, err := h.svc.Evidence(r.Context(), id, domain.AgentName(r.URL.Query().Get("agent")))
	if err != nil {
		api.HandleError(w, err)
		return
	}

	out := make([]EvidenceResponse, 0, len(chunks))
	for _, c := range chunks {
		out = append(out, EvidenceResponse{
			Agent:      string(c.AgentName),
			ChunkType:  string(c.ChunkType),
			ChunkIndex: c.ChunkIndex,
			Content:    c.Content,
			Metadata:   c.Metadata,
			CreatedAt:  c.CreatedAt.Format("2006-01-02T15:04:05Z"),
		})
	}
	api.Success(w, http.StatusOK, out)
}
