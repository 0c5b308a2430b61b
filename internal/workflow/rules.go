package workflow

import "github.com/cloo-solutions/tenderflow/internal/domain"

// TriggerKind says whether a rule fires on its own or waits for a user.
type TriggerKind string

const (
	TriggerAuto   TriggerKind = "auto"
	TriggerManual TriggerKind = "manual"
)

const (
	reasonDuplicate     = "possible duplicate found; user override required"
	reasonURLRequired   = "website URL required for quick scan"
	reasonAwaitDecision = "awaiting bid/no-bid decision"
)

// Rule is one entry of the transition table.
type Rule interface {
	NextAgent() domain.AgentName
	NextStatus() domain.Status
	Trigger() TriggerKind
	Condition(doc *domain.Document) bool
	SkipReason(doc *domain.Document) string
}

// staticRule is the declarative Rule used by the built-in table.
type staticRule struct {
	agent   domain.AgentName
	status  domain.Status
	trigger TriggerKind
	// check returns whether the rule may fire and, if not, why.
	check func(doc *domain.Document) (bool, string)
}

func (r staticRule) NextAgent() domain.AgentName { return r.agent }
func (r staticRule) NextStatus() domain.Status    { return r.status }
func (r staticRule) Trigger() TriggerKind         { return r.trigger }

func (r staticRule) Condition(doc *domain.Document) bool {
	if r.check == nil {
		return true
	}
	ok, _ := r.check(doc)
	return ok
}

func (r staticRule) SkipReason(doc *domain.Document) string {
	if r.check == nil {
		return ""
	}
	_, reason := r.check(doc)
	return reason
}

// Rules is the transition table keyed by current status.
type Rules map[domain.Status]Rule

// DefaultRules returns the evaluation pipeline. Every status in domain.Statuses has an entry.
func DefaultRules() Rules {
	return Rules{
		domain.StatusDraft:              staticRule{agent: domain.AgentExtract, status: domain.StatusExtracting, trigger: TriggerAuto},
		domain.StatusExtracting:         staticRule{status: domain.StatusReviewing, trigger: TriggerAuto},
		domain.StatusReviewing:          staticRule{agent: domain.AgentDuplicateCheck, status: domain.StatusDuplicateChecking, trigger: TriggerManual},
		domain.StatusDuplicateChecking:  staticRule{agent: domain.AgentQuickScan, status: domain.StatusQuickScanning, trigger: TriggerAuto, check: duplicateCondition},
		domain.StatusQuickScanning:      staticRule{status: domain.StatusBitPending, trigger: TriggerAuto},
		domain.StatusBitPending:         staticRule{agent: domain.AgentTimeline, status: domain.StatusTimelineEstimating, trigger: TriggerManual, check: bidCondition},
		domain.StatusTimelineEstimating: staticRule{status: domain.StatusDecisionMade, trigger: TriggerAuto},
		domain.StatusDecisionMade:       staticRule{trigger: TriggerManual},
		domain.StatusArchived:           staticRule{trigger: TriggerManual},
	}
}

// completionStatus maps a finished agent to the status it leaves the document in.
var completionStatus = map[domain.AgentName]domain.Status{
	domain.AgentExtract:        domain.StatusReviewing,
	domain.AgentDuplicateCheck: domain.StatusDuplicateChecking,
	domain.AgentQuickScan:      domain.StatusBitPending,
	domain.AgentTimeline:       domain.StatusDecisionMade,
}

// runningStatus is the status a document holds while the agent runs. Completion
// is only applied from this status.
var runningStatus = map[domain.AgentName]domain.Status{
	domain.AgentExtract:        domain.StatusExtracting,
	domain.AgentDuplicateCheck: domain.StatusDuplicateChecking,
	domain.AgentQuickScan:      domain.StatusQuickScanning,
	domain.AgentTimeline:       domain.StatusTimelineEstimating,
}

// duplicateCondition blocks on an unresolved duplicate and otherwise needs a website URL.
// A document without a stored check result proceeds.
func duplicateCondition(doc *domain.Document) (bool, string) {
	if dc := doc.DuplicateCheck; dc != nil && dc.HasDuplicates && !dc.UserOverride {
		return false, reasonDuplicate
	}
	if !doc.HasWebsiteURL() {
		return false, reasonURLRequired
	}
	return true, ""
}

func bidCondition(doc *domain.Document) (bool, string) {
	if doc.Decision != domain.DecisionBid {
		return false, reasonAwaitDecision
	}
	return true, ""
}
