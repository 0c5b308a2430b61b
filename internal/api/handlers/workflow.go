package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/cloo-solutions/tenderflow/internal/api"
	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/workflow"
	"github.com/go-chi/chi/v5"
)

type WorkflowService interface {
	Status(ctx context.Context, documentID string) (workflow.StatusView, error)
	Trigger(ctx context.Context, documentID string) (workflow.TriggerResult, error)
	ConfirmReview(ctx context.Context, documentID string) (workflow.TriggerResult, error)
	OverrideDuplicate(ctx context.Context, documentID string) (workflow.TriggerResult, error)
	Decide(ctx context.Context, documentID string, decision domain.Decision) (workflow.TriggerResult, error)
}

type WorkflowHandler struct {
	svc WorkflowService
}

func NewWorkflowHandler(svc WorkflowService) *WorkflowHandler {
	return &WorkflowHandler{svc: svc}
}

type DecisionRequest struct {
	Decision string `json:"decision"`
}

func (h *WorkflowHandler) Status(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	view, err := h.svc.Status(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, view)
}

func (h *WorkflowHandler) Trigger(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.Trigger)
}

func (h *WorkflowHandler) Review(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.ConfirmReview)
}

func (h *WorkflowHandler) OverrideDuplicate(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.svc.OverrideDuplicate)
}

func (h *WorkflowHandler) Decide(w http.ResponseWriter, r *http.Request) {
	var req DecisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Decision == "" {
		api.Error(w, http.StatusBadRequest, "decision is required")
		return
	}

	h.transition(w, r, func(ctx context.Context, id string) (workflow.TriggerResult, error) {
		return h.svc.Decide(ctx, id, domain.Decision(req.Decision))
	})
}

func (h *WorkflowHandler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, string) (workflow.TriggerResult, error)) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	res, err := fn(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, res)
}
