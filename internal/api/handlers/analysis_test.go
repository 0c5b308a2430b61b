package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cloo-solutions/tenderflow/internal/agent"
	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/orchestrator"
	"github.com/cloo-solutions/tenderflow/internal/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockAnalysisService struct {
	mock.Mock
}

func (m *MockAnalysisService) RunExpertAgents(ctx context.Context, documentID string) (orchestrator.Result, error) {
	args := m.Called(ctx, documentID)
	return args.Get(0).(orchestrator.Result), args.Error(1)
}

func (m *MockAnalysisService) RunAgent(ctx context.Context, documentID string, name domain.AgentName) (pipeline.Report, error) {
	args := m.Called(ctx, documentID, name)
	return args.Get(0).(pipeline.Report), args.Error(1)
}

func (m *MockAnalysisService) Evidence(ctx context.Context, documentID string, name domain.AgentName) ([]*domain.EvidenceChunk, error) {
	args := m.Called(ctx, documentID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.EvidenceChunk), args.Error(1)
}

func TestAnalysisHandler_RunExperts(t *testing.T) {
	mockSvc := new(MockAnalysisService)
	mockSvc.On("RunExpertAgents", mock.Anything, "doc-123").Return(orchestrator.Result{
		Success: false,
		Results: map[domain.AgentName]orchestrator.UnitResult{
			domain.AgentTech:  {Success: true, Confidence: 80},
			domain.AgentLegal: {Error: "model output does not match schema"},
		},
		Errors: []string{"Legal: model output does not match schema"},
	}, nil)

	req := withURLParams(httptest.NewRequest(http.MethodPost, "/documents/doc-123/analysis", nil), "id", "doc-123")
	w := httptest.NewRecorder()
	NewAnalysisHandler(mockSvc).RunExperts(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, false, data["success"])
	results := data["results"].(map[string]interface{})
	assert.Equal(t, float64(80), results["Tech"].(map[string]interface{})["confidence"])
	assert.Equal(t, []interface{}{"Legal: model output does not match schema"}, data["errors"])
}

func TestAnalysisHandler_RunExperts_NotFound(t *testing.T) {
	mockSvc := new(MockAnalysisService)
	mockSvc.On("RunExpertAgents", mock.Anything, "doc-999").Return(orchestrator.Result{}, domain.ErrDocumentNotFound)

	req := withURLParams(httptest.NewRequest(http.MethodPost, "/", nil), "id", "doc-999")
	w := httptest.NewRecorder()
	NewAnalysisHandler(mockSvc).RunExperts(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAnalysisHandler_RunAgent(t *testing.T) {
	mockSvc := new(MockAnalysisService)
	mockSvc.On("RunAgent", mock.Anything, "doc-123", domain.AgentExtract).Return(pipeline.Report{
		Agent:   domain.AgentExtract,
		Outcome: agent.Outcome{Success: true, Confidence: 88},
	}, nil)

	req := withURLParams(httptest.NewRequest(http.MethodPost, "/", nil), "id", "doc-123", "agent", "Extract")
	w := httptest.NewRecorder()
	NewAnalysisHandler(mockSvc).RunAgent(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "Extract", data["agent"])
	assert.Equal(t, float64(88), data["outcome"].(map[string]interface{})["confidence"])
}

func TestAnalysisHandler_RunAgent_Invalid(t *testing.T) {
	mockSvc := new(MockAnalysisService)
	mockSvc.On("RunAgent", mock.Anything, "doc-123", domain.AgentName("Oracle")).Return(pipeline.Report{}, domain.ErrInvalidAgent)

	req := withURLParams(httptest.NewRequest(http.MethodPost, "/", nil), "id", "doc-123", "agent", "Oracle")
	w := httptest.NewRecorder()
	NewAnalysisHandler(mockSvc).RunAgent(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalysisHandler_Evidence(t *testing.T) {
	mockSvc := new(MockAnalysisService)
	mockSvc.On("Evidence", mock.Anything, "doc-123", domain.AgentRisk).Return([]*domain.EvidenceChunk{{
		DocumentID: "doc-123",
		AgentName:  domain.AgentRisk,
		ChunkType:  domain.ChunkTypeAnalysis,
		ChunkIndex: 2,
		Content:    "Risk assessment",
		Metadata:   json.RawMessage(`{"score":40}`),
		CreatedAt:  time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC),
	}}, nil)

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/documents/doc-123/evidence?agent=Risk", nil), "id", "doc-123")
	w := httptest.NewRecorder()
	NewAnalysisHandler(mockSvc).Evidence(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Data []EvidenceResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Risk", resp.Data[0].Agent)
	assert.Equal(t, 2, resp.Data[0].ChunkIndex)
	assert.JSONEq(t, `{"score":40}`, string(resp.Data[0].Metadata))
}

func TestAnalysisHandler_Evidence_Empty(t *testing.T) {
	mockSvc := new(MockAnalysisService)
	mockSvc.On("Evidence", mock.Anything, "doc-123", domain.AgentName("")).Return([]*domain.EvidenceChunk{}, nil)

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/", nil), "id", "doc-123")
	w := httptest.NewRecorder()
	NewAnalysisHandler(mockSvc).Evidence(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"data":[]}`, w.Body.String())
}
