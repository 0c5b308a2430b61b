package domain

import (
	"strings"
	"time"
	"unicode"
)

// AgentName identifies an analysis task and the evidence it writes.
type AgentName string

const (
	AgentTech       AgentName = "Tech"
	AgentCommercial AgentName = "Commercial"
	AgentLegal      AgentName = "Legal"
	AgentRisk       AgentName = "Risk"
	AgentSummary    AgentName = "Summary"

	AgentExtract        AgentName = "Extract"
	AgentDuplicateCheck AgentName = "DuplicateCheck"
	AgentQuickScan      AgentName = "QuickScan"
	AgentTimeline       AgentName = "Timeline"

	// AgentIngest owns the chunks written by the external ingestion pipeline.
	AgentIngest AgentName = "ingest"
)

// ExpertAgents are the independent units run concurrently before synthesis.
func ExpertAgents() []AgentName {
	return []AgentName{AgentTech, AgentCommercial, AgentLegal, AgentRisk}
}

// IsValid reports whether n is a known agent.
func (n AgentName) IsValid() bool {
	switch n {
	case AgentTech, AgentCommercial, AgentLegal, AgentRisk, AgentSummary,
		AgentExtract, AgentDuplicateCheck, AgentQuickScan, AgentTimeline, AgentIngest:
		return true
	}
	return false
}

// Title renders the agent name as a heading, e.g. "DuplicateCheck" -> "Duplicate Check".
func (n AgentName) Title() string {
	runes := []rune(string(n))
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, string(cur))
			cur = cur[:0]
		}
	}
	for i, r := range runes {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
			continue
		case i > 0 && unicode.IsUpper(r) && unicode.IsLower(runes[i-1]):
			flush()
		}
		cur = append(cur, r)
	}
	flush()
	for i, w := range words {
		rs := []rune(w)
		rs[0] = unicode.ToUpper(rs[0])
		words[i] = string(rs)
	}
	return strings.Join(words, " ")
}

// AgentOutput is the envelope every agent execution unit returns.
type AgentOutput[T any] struct {
	Success    bool
	Data       *T
	Confidence int
	Error      string
	AnalyzedAt time.Time
}

// Failed builds a zero-confidence failure envelope.
func Failed[T any](msg string, at time.Time) AgentOutput[T] {
	return AgentOutput[T]{
		Success:    false,
		Confidence: 0,
		Error:      msg,
		AnalyzedAt: at,
	}
}
