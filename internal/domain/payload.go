package domain

import (
	"encoding/json"
	"fmt"
)

// ChunkPayload is the typed form of an evidence chunk's metadata bag.
// Each producer has its own variant; DecodePayload picks it by agent name.
type ChunkPayload interface {
	Producer() AgentName
}

// Finding is a single observation reported by an expert agent.
type Finding struct {
	Title    string `json:"title" description:"Short name of the finding"`
	Detail   string `json:"detail" description:"One or two sentences explaining the finding"`
	Severity string `json:"severity" description:"low, medium or high"`
}

// ExpertPayload is written by the independent expert agents.
type ExpertPayload struct {
	Agent      AgentName `json:"agent"`
	Verdict    string    `json:"verdict"`
	Score      int       `json:"score"`
	Confidence int       `json:"confidence"`
	Findings   []Finding `json:"findings"`
}

func (p ExpertPayload) Producer() AgentName { return p.Agent }

// DecisionSummary is the synthesis unit's structured result.
type DecisionSummary struct {
	Recommendation  string   `json:"recommendation" description:"bid, no_bid or needs_clarification"`
	Headline        string   `json:"headline" description:"One sentence management summary"`
	KeyStrengths    []string `json:"key_strengths" description:"Strongest reasons to pursue the opportunity"`
	KeyRisks        []string `json:"key_risks" description:"Most important risks or blockers"`
	OpenQuestions   []string `json:"open_questions" description:"Questions to clarify with the customer"`
	NextSteps       []string `json:"next_steps" description:"Concrete next steps for the bid team"`
	OverallScore    int      `json:"overall_score" description:"Attractiveness of the opportunity 0-100"`
	Confidence      int      `json:"confidence" description:"Confidence 0-100 given the available evidence"`
	MissingEvidence []string `json:"missing_evidence" description:"Areas where expert input was missing"`
}

// ConfidenceScore implements the agent confidence contract.
func (s DecisionSummary) ConfidenceScore() int {
	return s.Confidence
}

// SummaryPayload carries the full synthesis result.
type SummaryPayload struct {
	Summary DecisionSummary `json:"summary"`
}

func (SummaryPayload) Producer() AgentName { return AgentSummary }

// AuditPayload carries the quick scan's website inventory.
type AuditPayload struct {
	Inventory AuditInventory `json:"inventory"`
}

func (AuditPayload) Producer() AgentName { return AgentQuickScan }

// EstimatePayload carries the timeline estimate figures.
type EstimatePayload struct {
	TotalHours     float64 `json:"total_hours"`
	BaseHours      float64 `json:"base_hours"`
	BufferHours    float64 `json:"buffer_hours"`
	WeeksRealistic float64 `json:"weeks_realistic"`
	RiskLevel      string  `json:"risk_level"`
	ReportKey      string  `json:"report_key,omitempty"`
}

func (EstimatePayload) Producer() AgentName { return AgentTimeline }

// RawPayload is returned for producers without a typed variant.
type RawPayload struct {
	Agent AgentName
	Data  json.RawMessage
}

func (p RawPayload) Producer() AgentName { return p.Agent }

// DecodePayload parses a chunk's metadata into the variant owned by agent.
func DecodePayload(agent AgentName, raw json.RawMessage) (ChunkPayload, error) {
	if len(raw) == 0 {
		return RawPayload{Agent: agent}, nil
	}

	var (
		target ChunkPayload
		err    error
	)
	switch agent {
	case AgentTech, AgentCommercial, AgentLegal, AgentRisk:
		var p ExpertPayload
		err = json.Unmarshal(raw, &p)
		if p.Agent == "" {
			p.Agent = agent
		}
		target = p
	case AgentSummary:
		var p SummaryPayload
		err = json.Unmarshal(raw, &p)
		target = p
	case AgentQuickScan:
		var p AuditPayload
		err = json.Unmarshal(raw, &p)
		target = p
	case AgentTimeline:
		var p EstimatePayload
		err = json.Unmarshal(raw, &p)
		target = p
	default:
		return RawPayload{Agent: agent, Data: raw}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", agent, err)
	}
	return target, nil
}
