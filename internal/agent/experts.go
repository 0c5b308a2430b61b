package agent

import (
	"fmt"
	"strings"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/openai"
)

const (
	expertMaxResults  = 6
	expertTemperature = 0.2
)

type TechAssessment struct {
	Verdict             string           `json:"verdict" description:"feasible, feasible_with_risks or not_feasible"`
	Score               int              `json:"score" description:"Technical fit 0-100"`
	Confidence          int              `json:"confidence" description:"Confidence 0-100 given the evidence"`
	Stack               []string         `json:"stack" description:"Technologies required or implied by the tender"`
	Integrations        []string         `json:"integrations" description:"Third-party systems that must be integrated"`
	HostingRequirements []string         `json:"hosting_requirements" description:"Hosting, operations and SLA requirements"`
	Findings            []domain.Finding `json:"findings"`
}

func (a TechAssessment) ConfidenceScore() int { return a.Confidence }

type CommercialAssessment struct {
	Verdict        string           `json:"verdict" description:"attractive, neutral or unattractive"`
	Score          int              `json:"score" description:"Commercial attractiveness 0-100"`
	Confidence     int              `json:"confidence" description:"Confidence 0-100 given the evidence"`
	BudgetFit      string           `json:"budget_fit" description:"How the stated budget relates to the expected effort"`
	PricingModel   string           `json:"pricing_model" description:"fixed_price, time_and_material, framework or unknown"`
	EstimatedValue string           `json:"estimated_value" description:"Contract value as stated or inferred"`
	AwardCriteria  []string         `json:"award_criteria" description:"Award criteria and their weights"`
	Findings       []domain.Finding `json:"findings"`
}

func (a CommercialAssessment) ConfidenceScore() int { return a.Confidence }

type LegalAssessment struct {
	Verdict                string           `json:"verdict" description:"acceptable, negotiable or unacceptable"`
	Score                  int              `json:"score" description:"Contractual acceptability 0-100"`
	Confidence             int              `json:"confidence" description:"Confidence 0-100 given the evidence"`
	ContractType           string           `json:"contract_type" description:"Type of contract offered"`
	LiabilityConcerns      []string         `json:"liability_concerns" description:"Liability, penalty or warranty clauses of concern"`
	ComplianceRequirements []string         `json:"compliance_requirements" description:"Certifications, data protection and regulatory requirements"`
	Findings               []domain.Finding `json:"findings"`
}

func (a LegalAssessment) ConfidenceScore() int { return a.Confidence }

type RiskAssessment struct {
	Verdict     string           `json:"verdict" description:"low, medium or high overall risk"`
	Score       int              `json:"score" description:"Risk exposure 0-100, higher is riskier"`
	Confidence  int              `json:"confidence" description:"Confidence 0-100 given the evidence"`
	Blockers    []string         `json:"blockers" description:"Issues that would prevent a bid"`
	Mitigations []string         `json:"mitigations" description:"Actions that reduce the identified risks"`
	Findings    []domain.Finding `json:"findings"`
}

func (a RiskAssessment) ConfidenceScore() int { return a.Confidence }

const expertSystemPrompt = `You are a %s reviewing a public tender or RFP for a digital agency.
Base every statement on the evidence provided. When the evidence does not cover a topic,
say so in a finding instead of guessing, and lower your confidence accordingly.`

var (
	techQuestions = []string{
		"technical requirements and target architecture",
		"content management system, platforms and technology stack",
		"interfaces and integrations with existing systems",
		"hosting, operations, availability and service levels",
		"security, accessibility and performance requirements",
		"migration of existing content and data",
	}
	commercialQuestions = []string{
		"budget, contract value and payment terms",
		"pricing model and required price sheet",
		"award criteria and their weighting",
		"contract duration, options and extensions",
		"required references and company size",
	}
	legalQuestions = []string{
		"contract terms, liability and penalties",
		"warranty, acceptance and intellectual property rights",
		"data protection, GDPR and data processing agreement",
		"required certifications and compliance declarations",
		"exclusion criteria and formal submission requirements",
	}
	riskQuestions = []string{
		"submission deadline and project timeline",
		"unclear or contradictory requirements",
		"dependencies on third parties and existing vendors",
		"penalties, service credits and acceptance risks",
		"resourcing, staffing and on-site requirements",
		"scope that may exceed the stated budget",
	}
)

// NewTechUnit builds the technical feasibility expert.
func NewTechUnit(r Retriever, gen Generator, store ResultStore) *Unit[TechAssessment] {
	return NewUnit(Definition[TechAssessment]{
		Name:         domain.AgentTech,
		ModelSlot:    openai.SlotChat,
		Temperature:  expertTemperature,
		SystemPrompt: fmt.Sprintf(expertSystemPrompt, "senior solution architect"),
		Task:         "Assess the technical feasibility of this tender for our team.",
		Summarize: func(a *TechAssessment) string {
			return renderExpert(domain.AgentTech, a.Verdict, a.Score, a.Confidence, a.Findings,
				section("Stack", a.Stack), section("Integrations", a.Integrations), section("Hosting", a.HostingRequirements))
		},
		Metadata: func(a *TechAssessment) any {
			return domain.ExpertPayload{Agent: domain.AgentTech, Verdict: a.Verdict, Score: a.Score, Confidence: a.Confidence, Findings: a.Findings}
		},
	}, RetrievalEvidence{Retriever: r, Questions: techQuestions, MaxResults: expertMaxResults, Label: "Technical Evidence"}, gen, store)
}

// NewCommercialUnit builds the commercial attractiveness expert.
func NewCommercialUnit(r Retriever, gen Generator, store ResultStore) *Unit[CommercialAssessment] {
	return NewUnit(Definition[CommercialAssessment]{
		Name:         domain.AgentCommercial,
		ModelSlot:    openai.SlotChat,
		Temperature:  expertTemperature,
		SystemPrompt: fmt.Sprintf(expertSystemPrompt, "bid manager responsible for pricing"),
		Task:         "Assess the commercial attractiveness of this tender.",
		Summarize: func(a *CommercialAssessment) string {
			return renderExpert(domain.AgentCommercial, a.Verdict, a.Score, a.Confidence, a.Findings,
				line("Budget fit", a.BudgetFit), line("Pricing model", a.PricingModel),
				line("Estimated value", a.EstimatedValue), section("Award criteria", a.AwardCriteria))
		},
		Metadata: func(a *CommercialAssessment) any {
			return domain.ExpertPayload{Agent: domain.AgentCommercial, Verdict: a.Verdict, Score: a.Score, Confidence: a.Confidence, Findings: a.Findings}
		},
	}, RetrievalEvidence{Retriever: r, Questions: commercialQuestions, MaxResults: expertMaxResults, Label: "Commercial Evidence"}, gen, store)
}

// NewLegalUnit builds the contract and compliance expert.
func NewLegalUnit(r Retriever, gen Generator, store ResultStore) *Unit[LegalAssessment] {
	return NewUnit(Definition[LegalAssessment]{
		Name:         domain.AgentLegal,
		ModelSlot:    openai.SlotChat,
		Temperature:  expertTemperature,
		SystemPrompt: fmt.Sprintf(expertSystemPrompt, "legal counsel specialised in public procurement"),
		Task:         "Assess the contractual and compliance terms of this tender.",
		Summarize: func(a *LegalAssessment) string {
			return renderExpert(domain.AgentLegal, a.Verdict, a.Score, a.Confidence, a.Findings,
				line("Contract type", a.ContractType), section("Liability concerns", a.LiabilityConcerns),
				section("Compliance", a.ComplianceRequirements))
		},
		Metadata: func(a *LegalAssessment) any {
			return domain.ExpertPayload{Agent: domain.AgentLegal, Verdict: a.Verdict, Score: a.Score, Confidence: a.Confidence, Findings: a.Findings}
		},
	}, RetrievalEvidence{Retriever: r, Questions: legalQuestions, MaxResults: expertMaxResults, Label: "Legal Evidence"}, gen, store)
}

// NewRiskUnit builds the delivery risk expert.
func NewRiskUnit(r Retriever, gen Generator, store ResultStore) *Unit[RiskAssessment] {
	return NewUnit(Definition[RiskAssessment]{
		Name:         domain.AgentRisk,
		ModelSlot:    openai.SlotChat,
		Temperature:  expertTemperature,
		SystemPrompt: fmt.Sprintf(expertSystemPrompt, "delivery manager assessing project risk"),
		Task:         "Identify the delivery risks of this tender and how to mitigate them.",
		Summarize: func(a *RiskAssessment) string {
			return renderExpert(domain.AgentRisk, a.Verdict, a.Score, a.Confidence, a.Findings,
				section("Blockers", a.Blockers), section("Mitigations", a.Mitigations))
		},
		Metadata: func(a *RiskAssessment) any {
			return domain.ExpertPayload{Agent: domain.AgentRisk, Verdict: a.Verdict, Score: a.Score, Confidence: a.Confidence, Findings: a.Findings}
		},
	}, RetrievalEvidence{Retriever: r, Questions: riskQuestions, MaxResults: expertMaxResults, Label: "Risk Evidence"}, gen, store)
}

// NewExpertUnits returns the independent units in their canonical order.
func NewExpertUnits(r Retriever, gen Generator, store ResultStore) []Runner {
	return []Runner{
		NewTechUnit(r, gen, store),
		NewCommercialUnit(r, gen, store),
		NewLegalUnit(r, gen, store),
		NewRiskUnit(r, gen, store),
	}
}

func renderExpert(name domain.AgentName, verdict string, score, confidence int, findings []domain.Finding, extra ...string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s assessment: %s (score %d, confidence %d)\n", name.Title(), verdict, score, ClampConfidence(confidence))
	for _, e := range extra {
		b.WriteString(e)
	}
	if len(findings) > 0 {
		b.WriteString("Findings:\n")
		for _, f := range findings {
			fmt.Fprintf(&b, "- [%s] %s: %s\n", f.Severity, f.Title, f.Detail)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

func section(title string, items []string) string {
	if len(items) == 0 {
		return ""
	}
	return title + ": " + strings.Join(items, "; ") + "\n"
}

func line(title, value string) string {
	if strings.TrimSpace(value) == "" {
		return ""
	}
	return title + ": " + value + "\n"
}
