package domain

import (
	"fmt"
	"strings"
	"time"
)

// Status is a document's position in the evaluation workflow.
type Status string

const (
	StatusDraft              Status = "draft"
	StatusExtracting         Status = "extracting"
	StatusReviewing          Status = "reviewing"
	StatusDuplicateChecking  Status = "duplicate_checking"
	StatusQuickScanning      Status = "quick_scanning"
	StatusBitPending         Status = "bit_pending"
	StatusTimelineEstimating Status = "timeline_estimating"
	StatusDecisionMade       Status = "decision_made"
	StatusArchived           Status = "archived"
)

var statusLabels = map[Status]string{
	StatusDraft:              "Draft",
	StatusExtracting:         "Extracting requirements",
	StatusReviewing:          "Awaiting review",
	StatusDuplicateChecking:  "Checking for duplicates",
	StatusQuickScanning:      "Quick scan running",
	StatusBitPending:         "Awaiting bid/no-bid decision",
	StatusTimelineEstimating: "Estimating timeline",
	StatusDecisionMade:       "Decision made",
	StatusArchived:           "Archived",
}

// Statuses returns every known status in workflow order.
func Statuses() []Status {
	return []Status{
		StatusDraft,
		StatusExtracting,
		StatusReviewing,
		StatusDuplicateChecking,
		StatusQuickScanning,
		StatusBitPending,
		StatusTimelineEstimating,
		StatusDecisionMade,
		StatusArchived,
	}
}

// Label returns the human readable label for the status.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}
	return string(s)
}

// IsValid reports whether s is part of the fixed enumeration.
func (s Status) IsValid() bool {
	_, ok := statusLabels[s]
	return ok
}

// Decision is the bid/no-bid outcome recorded by a user.
type Decision string

const (
	DecisionPending Decision = "pending"
	DecisionBid     Decision = "bid"
	DecisionNoBid   Decision = "no_bid"
)

// IsValid reports whether d is a known decision.
func (d Decision) IsValid() bool {
	switch d {
	case DecisionPending, DecisionBid, DecisionNoBid:
		return true
	}
	return false
}

// ExtractedRequirements is the structured payload produced by the Extract agent.
type ExtractedRequirements struct {
	CustomerName string   `json:"customer_name" description:"Name of the issuing organisation"`
	ProjectTitle string   `json:"project_title" description:"Short title of the requested project"`
	Summary      string   `json:"summary" description:"Two to three sentence summary of the request"`
	WebsiteURL   string   `json:"website_url" description:"Primary website of the customer, empty if unknown"`
	WebsiteURLs  []string `json:"website_urls" description:"Additional websites mentioned in the document"`
	Deadline     string   `json:"deadline" description:"Submission deadline as written in the document"`
	Budget       string   `json:"budget" description:"Budget or contract value as written, empty if absent"`
	Requirements []string `json:"requirements" description:"Key functional and non-functional requirements"`
	Confidence   int      `json:"confidence" description:"Confidence 0-100 that the extraction is complete"`
}

// ConfidenceScore implements the agent confidence contract.
func (e ExtractedRequirements) ConfidenceScore() int {
	return e.Confidence
}

// PrimaryURL returns the first usable website URL in the payload.
func (e *ExtractedRequirements) PrimaryURL() string {
	if e == nil {
		return ""
	}
	if u := strings.TrimSpace(e.WebsiteURL); u != "" {
		return u
	}
	for _, u := range e.WebsiteURLs {
		if u = strings.TrimSpace(u); u != "" {
			return u
		}
	}
	return ""
}

// DuplicateMatch references another document that looks like the same opportunity.
type DuplicateMatch struct {
	DocumentID   string  `json:"document_id"`
	Title        string  `json:"title"`
	CustomerName string  `json:"customer_name"`
	Status       Status  `json:"status"`
	Score        float64 `json:"score"`
}

// DuplicateCheckResult is the stored outcome of the duplicate check.
type DuplicateCheckResult struct {
	HasDuplicates bool             `json:"has_duplicates"`
	UserOverride  bool             `json:"user_override"`
	Matches       []DuplicateMatch `json:"matches"`
	CheckedAt     time.Time        `json:"checked_at"`
}

// Document is an RFP or tender under evaluation.
type Document struct {
	ID                    string
	Title                 string
	CustomerName          string
	Status                Status
	Decision              Decision
	ExtractedRequirements *ExtractedRequirements
	WebsiteURL            string
	DuplicateCheck        *DuplicateCheckResult
	Version               int
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// NewDocument creates a document in draft status.
func NewDocument(id, title, customerName, websiteURL string, now time.Time) *Document {
	return &Document{
		ID:           id,
		Title:        title,
		CustomerName: customerName,
		Status:       StatusDraft,
		Decision:     DecisionPending,
		WebsiteURL:   websiteURL,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Clone returns a deep copy so callers can apply transient overrides.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := *d
	if d.ExtractedRequirements != nil {
		req := *d.ExtractedRequirements
		req.WebsiteURLs = append([]string(nil), d.ExtractedRequirements.WebsiteURLs...)
		req.Requirements = append([]string(nil), d.ExtractedRequirements.Requirements...)
		out.ExtractedRequirements = &req
	}
	if d.DuplicateCheck != nil {
		dup := *d.DuplicateCheck
		dup.Matches = append([]DuplicateMatch(nil), d.DuplicateCheck.Matches...)
		out.DuplicateCheck = &dup
	}
	return &out
}

// HasWebsiteURL reports whether a URL is known either directly or via extraction.
func (d *Document) HasWebsiteURL() bool {
	return d.ResolveWebsiteURL() != ""
}

// ResolveWebsiteURL returns the document URL, falling back to extracted requirements.
func (d *Document) ResolveWebsiteURL() string {
	if d == nil {
		return ""
	}
	if u := strings.TrimSpace(d.WebsiteURL); u != "" {
		return u
	}
	return d.ExtractedRequirements.PrimaryURL()
}

// ValidateDocument validates a Document instance
func ValidateDocument(d *Document) error {
	if d == nil {
		return fmt.Errorf("document cannot be nil")
	}

	if d.ID == "" {
		return fmt.Errorf("document ID is required")
	}

	if strings.TrimSpace(d.Title) == "" {
		return fmt.Errorf("document Title is required")
	}

	if !d.Status.IsValid() {
		return fmt.Errorf("document Status is invalid: %s", d.Status)
	}

	if !d.Decision.IsValid() {
		return fmt.Errorf("document Decision is invalid: %s", d.Decision)
	}

	if d.Version < 1 {
		return fmt.Errorf("document Version must be at least 1")
	}

	return nil
}
