package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func evidence(contents ...string) []domain.RetrievalResult {
	out := make([]domain.RetrievalResult, 0, len(contents))
	for i, c := range contents {
		out = append(out, domain.RetrievalResult{Content: c, Similarity: 0.9 - float64(i)*0.1, AgentName: domain.AgentIngest})
	}
	return out
}

const techJSON = `{
	"verdict": "feasible",
	"score": 78,
	"confidence": 82,
	"stack": ["Drupal", "Solr"],
	"integrations": ["SAP"],
	"hosting_requirements": ["99.9% SLA"],
	"findings": [{"title": "SSO", "detail": "Azure AD login required", "severity": "medium"}]
}`

func TestUnit_Run_Success(t *testing.T) {
	r := &fakeRetriever{results: evidence("The portal must integrate SAP.", "Hosting in the EU.")}
	gen := &fakeGenerator{response: techJSON}
	store := &fakeStore{}

	out := NewTechUnit(r, gen, store).Run(context.Background(), Input{DocumentID: "doc-1"})

	require.True(t, out.Success, out.Error)
	require.NotNil(t, out.Data)
	assert.Equal(t, 82, out.Confidence)
	assert.Equal(t, "feasible", out.Data.Verdict)
	assert.Empty(t, out.Error)
	assert.False(t, out.AnalyzedAt.IsZero())

	require.Equal(t, 1, gen.calls)
	req := gen.requests[0]
	assert.Equal(t, openai.SlotChat, req.ModelSlot)
	assert.Contains(t, req.UserPrompt, "## Technical Evidence")
	assert.Contains(t, req.UserPrompt, "[relevance: 90%]\nThe portal must integrate SAP.")

	require.Len(t, r.questions, 1)
	assert.Equal(t, techQuestions, r.questions[0])
	assert.Equal(t, expertMaxResults, r.limits[0])

	require.Len(t, store.appends, 1)
	a := store.appends[0]
	assert.Equal(t, domain.AgentTech, a.Agent)
	assert.Contains(t, a.Content, "Tech assessment: feasible (score 78, confidence 82)")
	assert.Contains(t, a.Content, "- [medium] SSO: Azure AD login required")
	payload, ok := a.Metadata.(domain.ExpertPayload)
	require.True(t, ok)
	assert.Equal(t, domain.AgentTech, payload.Agent)
}

func TestUnit_Run_NoEvidenceSkipsGeneration(t *testing.T) {
	r := &fakeRetriever{}
	gen := &fakeGenerator{response: techJSON}
	store := &fakeStore{}

	out := NewTechUnit(r, gen, store).Run(context.Background(), Input{DocumentID: "doc-1"})

	assert.False(t, out.Success)
	assert.Equal(t, 0, out.Confidence)
	assert.Equal(t, "no relevant evidence found", out.Error)
	assert.Nil(t, out.Data)
	assert.Equal(t, 0, gen.calls)
	assert.Empty(t, store.appends)
}

func TestUnit_Run_RetrievalError(t *testing.T) {
	r := &fakeRetriever{err: errors.New("pgvector unavailable")}
	gen := &fakeGenerator{response: techJSON}

	out := NewLegalUnit(r, gen, &fakeStore{}).Run(context.Background(), Input{DocumentID: "doc-1"})

	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "pgvector unavailable")
	assert.Equal(t, 0, gen.calls)
}

func TestUnit_Run_GenerationError(t *testing.T) {
	r := &fakeRetriever{results: evidence("Liability is capped at 100%.")}
	gen := &fakeGenerator{err: errors.New("model output does not match schema: missing verdict")}
	store := &fakeStore{}

	out := NewLegalUnit(r, gen, store).Run(context.Background(), Input{DocumentID: "doc-1"})

	assert.False(t, out.Success)
	assert.Equal(t, 0, out.Confidence)
	assert.Equal(t, "model output does not match schema: missing verdict", out.Error)
	assert.Empty(t, store.appends)
}

func TestUnit_Run_PanicBecomesFailure(t *testing.T) {
	r := &fakeRetriever{results: evidence("x")}
	gen := &fakeGenerator{panicWith: "nil map write"}

	var out domain.AgentOutput[RiskAssessment]
	assert.NotPanics(t, func() {
		out = NewRiskUnit(r, gen, &fakeStore{}).Run(context.Background(), Input{DocumentID: "doc-1"})
	})
	assert.False(t, out.Success)
	assert.Equal(t, "panic: nil map write", out.Error)
}

func TestUnit_Run_StoreFailureKeepsResult(t *testing.T) {
	r := &fakeRetriever{results: evidence("Budget 250k EUR.")}
	gen := &fakeGenerator{response: `{"verdict":"attractive","score":70,"confidence":65,"budget_fit":"ok","pricing_model":"fixed_price","estimated_value":"250k","award_criteria":[],"findings":[]}`}
	store := &fakeStore{fail: "connection reset"}

	out := NewCommercialUnit(r, gen, store).Run(context.Background(), Input{DocumentID: "doc-1"})

	assert.True(t, out.Success)
	assert.Equal(t, 65, out.Confidence)
}

func TestUnit_Run_ClampsConfidence(t *testing.T) {
	r := &fakeRetriever{results: evidence("x")}

	high := NewRiskUnit(r, &fakeGenerator{response: `{"verdict":"low","score":10,"confidence":140,"blockers":[],"mitigations":[],"findings":[]}`}, nil).
		Run(context.Background(), Input{DocumentID: "doc-1"})
	low := NewRiskUnit(r, &fakeGenerator{response: `{"verdict":"low","score":10,"confidence":-3,"blockers":[],"mitigations":[],"findings":[]}`}, nil).
		Run(context.Background(), Input{DocumentID: "doc-1"})

	assert.Equal(t, 100, high.Confidence)
	assert.Equal(t, 0, low.Confidence)
	// the structured value itself is never rewritten
	assert.Equal(t, 140, high.Data.Confidence)
}

func TestUnit_Execute(t *testing.T) {
	u := NewTechUnit(&fakeRetriever{}, &fakeGenerator{}, nil)

	o := u.Execute(context.Background(), Input{DocumentID: "doc-1"})

	assert.Equal(t, domain.AgentTech, u.Name())
	assert.Equal(t, Outcome{Success: false, Confidence: 0, Error: "no relevant evidence found"}, o)
}

func TestNewExpertUnits_Order(t *testing.T) {
	units := NewExpertUnits(&fakeRetriever{}, &fakeGenerator{}, nil)

	names := make([]domain.AgentName, 0, len(units))
	for _, u := range units {
		names = append(names, u.Name())
	}
	assert.Equal(t, domain.ExpertAgents(), names)
}

func TestClampConfidence(t *testing.T) {
	assert.Equal(t, 0, ClampConfidence(-1))
	assert.Equal(t, 55, ClampConfidence(55))
	assert.Equal(t, 100, ClampConfidence(101))
}

func TestRenderExpert_SkipsEmptySections(t *testing.T) {
	out := renderExpert(domain.AgentLegal, "acceptable", 80, 70, nil, section("Compliance", nil), line("Contract type", " "))

	assert.Equal(t, "Legal assessment: acceptable (score 80, confidence 70)", out)
	assert.False(t, strings.Contains(out, "Findings"))
}
