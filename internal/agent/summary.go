package agent

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/openai"
)

const summarySystemPrompt = `You are the head of sales deciding whether to bid on a tender.
You receive the written assessments of the technical, commercial, legal and risk experts.
Weigh them against each other, call out disagreements, and list every area where expert
input is missing. Recommend bid, no_bid or needs_clarification.`

var summaryQuestions = []string{
	"overall scope and objectives of the project",
	"submission deadline and evaluation process",
}

// SynthesisAllowList are the agents whose stored outputs feed the summary.
func SynthesisAllowList() []domain.AgentName {
	return domain.ExpertAgents()
}

// NewSummaryUnit builds the synthesis unit. It reads stored expert outputs
// instead of taking them as arguments, so it may only run after the experts settled.
func NewSummaryUnit(chunks ChunkLister, r Retriever, gen Generator, store ResultStore) *Unit[domain.DecisionSummary] {
	return NewUnit(Definition[domain.DecisionSummary]{
		Name:         domain.AgentSummary,
		ModelSlot:    openai.SlotReasoning,
		Temperature:  0.1,
		SystemPrompt: summarySystemPrompt,
		Task:         "Write the bid/no-bid decision summary for management.",
		Summarize:    renderSummary,
		Metadata: func(s *domain.DecisionSummary) any {
			return domain.SummaryPayload{Summary: *s}
		},
	}, SynthesisEvidence{
		Chunks:    chunks,
		Retriever: r,
		Allow:     SynthesisAllowList(),
		Questions: summaryQuestions,
	}, gen, store)
}

func renderSummary(s *domain.DecisionSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Recommendation: %s (overall score %d, confidence %d)\n", s.Recommendation, s.OverallScore, ClampConfidence(s.Confidence))
	if s.Headline != "" {
		b.WriteString(s.Headline + "\n")
	}
	b.WriteString(section("Strengths", s.KeyStrengths))
	b.WriteString(section("Risks", s.KeyRisks))
	b.WriteString(section("Open questions", s.OpenQuestions))
	b.WriteString(section("Next steps", s.NextSteps))
	b.WriteString(section("Missing evidence", s.MissingEvidence))
	return strings.TrimRight(b.String(), "\n")
}
