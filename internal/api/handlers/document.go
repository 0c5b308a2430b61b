package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/cloo-solutions/tenderflow/internal/api"
	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/service"
	"github.com/cloo-solutions/tenderflow/internal/workflow"
	"github.com/go-chi/chi/v5"
)

type DocumentService interface {
	Create(ctx context.Context, input service.CreateDocumentInput) (*service.CreateDocumentOutput, error)
	Get(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, cursor string, limit int) (*service.ListDocumentsOutput, error)
}

type DocumentHandler struct {
	svc DocumentService
}

func NewDocumentHandler(svc DocumentService) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

type CreateDocumentRequest struct {
	Title        string           `json:"title"`
	CustomerName string           `json:"customer_name"`
	WebsiteURL   string           `json:"website_url"`
	Sources      []service.Source `json:"sources"`
	Start        bool             `json:"start"`
}

type DocumentResponse struct {
	ID                    string                        `json:"id"`
	Title                 string                        `json:"title"`
	CustomerName          string                        `json:"customer_name"`
	Status                string                        `json:"status"`
	StatusLabel           string                        `json:"status_label"`
	Decision              string                        `json:"decision"`
	WebsiteURL            string                        `json:"website_url,omitempty"`
	ExtractedRequirements *domain.ExtractedRequirements `json:"extracted_requirements,omitempty"`
	DuplicateCheck        *domain.DuplicateCheckResult  `json:"duplicate_check,omitempty"`
	Version               int                           `json:"version"`
	CreatedAt             string                        `json:"created_at"`
	UpdatedAt             string                        `json:"updated_at"`
}

type CreateDocumentResponse struct {
	Document     *DocumentResponse       `json:"document"`
	ChunksStored int                     `json:"chunks_stored"`
	Workflow     *workflow.TriggerResult `json:"workflow,omitempty"`
}

type ListDocumentsResponse struct {
	Items   []*DocumentResponse `json:"items"`
	Cursor  string              `json:"cursor,omitempty"`
	HasMore bool                `json:"has_more"`
}

func documentToResponse(d *domain.Document) *DocumentResponse {
	return &DocumentResponse{
		ID:                    d.ID,
		Title:                 d.Title,
		CustomerName:          d.CustomerName,
		Status:                string(d.Status),
		StatusLabel:           d.Status.Label(),
		Decision:              string(d.Decision),
		WebsiteURL:            d.WebsiteURL,
		ExtractedRequirements: d.ExtractedRequirements,
		DuplicateCheck:        d.DuplicateCheck,
		Version:               d.Version,
		CreatedAt:             d.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:             d.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

func (h *DocumentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if strings.TrimSpace(req.Title) == "" {
		api.Error(w, http.StatusBadRequest, "title is required")
		return
	}

	out, err := h.svc.Create(r.Context(), service.CreateDocumentInput{
		Title:        req.Title,
		CustomerName: req.CustomerName,
		WebsiteURL:   req.WebsiteURL,
		Sources:      req.Sources,
		Start:        req.Start,
	})
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusCreated, CreateDocumentResponse{
		Document:     documentToResponse(out.Document),
		ChunksStored: out.ChunksStored,
		Workflow:     out.Workflow,
	})
}

func (h *DocumentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		api.Error(w, http.StatusBadRequest, "id is required")
		return
	}

	doc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, documentToResponse(doc))
}

func (h *DocumentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			api.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	out, err := h.svc.List(r.Context(), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	items := make([]*DocumentResponse, 0, len(out.Items))
	for _, d := range out.Items {
		items = append(items, documentToResponse(d))
	}
	api.Success(w, http.StatusOK, ListDocumentsResponse{Items: items, Cursor: out.Cursor, HasMore: out.HasMore})
}
