// Package workflow drives a document through the evaluation pipeline. It decides
// which agent runs next and records the status change; running the agent is up to the caller.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/metrics"
	"github.com/cloo-solutions/tenderflow/internal/telemetry"
)

const (
	reasonStatusOnly    = "status update only"
	reasonAwaitingUser  = "awaiting user action"
	reasonArchivedNoBid = "archived: no-bid"
)

type DocumentStore interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateStatus(ctx context.Context, id string, expectedVersion int, status domain.Status) (int, error)
	UpdateDecision(ctx context.Context, id string, expectedVersion int, decision domain.Decision, status *domain.Status) (int, error)
	UpdateDuplicateCheck(ctx context.Context, id string, expectedVersion int, result *domain.DuplicateCheckResult) (int, error)
}

// Overrides are applied to an in-memory copy of the document before a condition is evaluated.
type Overrides struct {
	DuplicateOverride bool
	Decision          domain.Decision
}

type TriggerResult struct {
	Triggered bool             `json:"triggered"`
	Agent     domain.AgentName `json:"agent,omitempty"`
	Reason    string           `json:"reason,omitempty"`
}

// StatusView is the read-only projection shown to users.
type StatusView struct {
	Status      domain.Status    `json:"status"`
	Label       string           `json:"label"`
	NextAgent   domain.AgentName `json:"next_agent,omitempty"`
	Trigger     TriggerKind      `json:"trigger,omitempty"`
	CanProceed  bool             `json:"can_proceed"`
	BlockReason string           `json:"block_reason,omitempty"`
	Decision    domain.Decision  `json:"decision"`
}

type Machine struct {
	docs    DocumentStore
	rules   Rules
	metrics *metrics.Metrics
}

func NewMachine(docs DocumentStore, m *metrics.Metrics) *Machine {
	return NewMachineWithRules(docs, DefaultRules(), m)
}

func NewMachineWithRules(docs DocumentStore, rules Rules, m *metrics.Metrics) *Machine {
	return &Machine{docs: docs, rules: rules, metrics: m}
}

func noRule(status domain.Status) string {
	return fmt.Sprintf("no rule for status %s", status)
}

// TriggerNext evaluates the rule for currentStatus against freshly read state.
// Only a missing document or a failed write is returned as an error.
func (m *Machine) TriggerNext(ctx context.Context, documentID string, currentStatus domain.Status, overrides *Overrides) (TriggerResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "workflow.trigger_next", telemetry.SpanAttributes{
		DocumentID: documentID,
		Status:     string(currentStatus),
		Operation:  "trigger_next",
	})
	defer span.End()

	rule, ok := m.rules[currentStatus]
	if !ok {
		log.Printf("workflow: no rule configured for status %q (document %s)", currentStatus, documentID)
		return TriggerResult{Reason: noRule(currentStatus)}, nil
	}

	doc, err := m.docs.GetByID(ctx, documentID)
	if err != nil {
		span.SetError(err)
		return TriggerResult{}, err
	}

	if rule.NextAgent() == "" {
		if next := rule.NextStatus(); next != "" {
			if err := m.writeStatus(ctx, doc, next); err != nil {
				span.SetError(err)
				return TriggerResult{}, err
			}
		}
		return TriggerResult{Reason: reasonStatusOnly}, nil
	}

	candidate := applyOverrides(doc, overrides)
	if !rule.Condition(candidate) {
		return TriggerResult{Reason: rule.SkipReason(candidate)}, nil
	}

	if err := m.writeStatus(ctx, doc, rule.NextStatus()); err != nil {
		span.SetError(err)
		return TriggerResult{}, err
	}
	return TriggerResult{Triggered: true, Agent: rule.NextAgent()}, nil
}

// OnAgentComplete moves the document to the agent's completion status and chains
// into the next automatic rule. Manual rules hold until a user acts. A result
// arriving after the document left the agent's running status is not applied.
func (m *Machine) OnAgentComplete(ctx context.Context, documentID string, agent domain.AgentName) (TriggerResult, error) {
	next, ok := completionStatus[agent]
	if !ok {
		log.Printf("workflow: agent %s has no completion status (document %s)", agent, documentID)
		return TriggerResult{Reason: fmt.Sprintf("no completion status for agent %s", agent)}, nil
	}

	doc, err := m.docs.GetByID(ctx, documentID)
	if err != nil {
		return TriggerResult{}, err
	}
	if running := runningStatus[agent]; doc.Status != running {
		log.Printf("workflow: ignoring %s completion for document %s in status %s", agent, documentID, doc.Status)
		return TriggerResult{Reason: staleCompletion(agent, doc.Status)}, nil
	}
	if err := m.writeStatus(ctx, doc, next); err != nil {
		return TriggerResult{}, err
	}

	rule, ok := m.rules[next]
	if !ok {
		log.Printf("workflow: no rule configured for status %q (document %s)", next, documentID)
		return TriggerResult{Reason: noRule(next)}, nil
	}
	if rule.Trigger() == TriggerManual {
		return TriggerResult{Reason: reasonAwaitingUser}, nil
	}
	return m.TriggerNext(ctx, documentID, next, nil)
}

func staleCompletion(agent domain.AgentName, status domain.Status) string {
	return fmt.Sprintf("%s result not applied: document is %s", agent, status)
}

// HandleDuplicateOverride records that the user accepted a possible duplicate and retries the transition.
func (m *Machine) HandleDuplicateOverride(ctx context.Context, documentID string) (TriggerResult, error) {
	doc, err := m.docs.GetByID(ctx, documentID)
	if err != nil {
		return TriggerResult{}, err
	}
	if doc.Status != domain.StatusDuplicateChecking {
		return TriggerResult{}, domain.ErrInvalidTransition
	}
	if doc.DuplicateCheck == nil {
		return TriggerResult{}, domain.ErrNoDuplicateCheck
	}

	err = m.withVersionRetry(ctx, doc, func(cur *domain.Document) error {
		if cur.Status != domain.StatusDuplicateChecking {
			return domain.ErrInvalidTransition
		}
		if cur.DuplicateCheck == nil {
			return domain.ErrNoDuplicateCheck
		}
		result := *cur.DuplicateCheck
		result.UserOverride = true
		_, err := m.docs.UpdateDuplicateCheck(ctx, cur.ID, cur.Version, &result)
		return err
	})
	if err != nil {
		return TriggerResult{}, err
	}

	return m.TriggerNext(ctx, documentID, domain.StatusDuplicateChecking, &Overrides{DuplicateOverride: true})
}

// HandleBidDecision records the decision. A bid is only accepted at bit_pending and
// continues the pipeline. A no-bid archives the document from any status but archived.
func (m *Machine) HandleBidDecision(ctx context.Context, documentID string, bid bool) (TriggerResult, error) {
	doc, err := m.docs.GetByID(ctx, documentID)
	if err != nil {
		return TriggerResult{}, err
	}
	if doc.Status == domain.StatusArchived {
		return TriggerResult{}, domain.ErrInvalidTransition
	}

	if !bid {
		archived := domain.StatusArchived
		from := doc.Status
		err = m.withVersionRetry(ctx, doc, func(cur *domain.Document) error {
			if cur.Status == domain.StatusArchived {
				return domain.ErrInvalidTransition
			}
			from = cur.Status
			_, err := m.docs.UpdateDecision(ctx, cur.ID, cur.Version, domain.DecisionNoBid, &archived)
			return err
		})
		if err != nil {
			return TriggerResult{}, err
		}
		m.metrics.ObserveTransition(from, archived)
		log.Printf("workflow: document %s archived after no-bid decision", documentID)
		return TriggerResult{Reason: reasonArchivedNoBid}, nil
	}

	if doc.Status != domain.StatusBitPending {
		return TriggerResult{}, domain.ErrInvalidTransition
	}
	err = m.withVersionRetry(ctx, doc, func(cur *domain.Document) error {
		if cur.Status != domain.StatusBitPending {
			return domain.ErrInvalidTransition
		}
		_, err := m.docs.UpdateDecision(ctx, cur.ID, cur.Version, domain.DecisionBid, nil)
		return err
	})
	if err != nil {
		return TriggerResult{}, err
	}
	return m.TriggerNext(ctx, documentID, domain.StatusBitPending, &Overrides{Decision: domain.DecisionBid})
}

// ConfirmReview is the user gate after extraction.
func (m *Machine) ConfirmReview(ctx context.Context, documentID string) (TriggerResult, error) {
	doc, err := m.docs.GetByID(ctx, documentID)
	if err != nil {
		return TriggerResult{}, err
	}
	if doc.Status != domain.StatusReviewing {
		return TriggerResult{}, domain.ErrInvalidTransition
	}
	return m.TriggerNext(ctx, documentID, doc.Status, nil)
}

// GetWorkflowStatus has no side effects.
func (m *Machine) GetWorkflowStatus(ctx context.Context, documentID string) (StatusView, error) {
	doc, err := m.docs.GetByID(ctx, documentID)
	if err != nil {
		return StatusView{}, err
	}

	view := StatusView{Status: doc.Status, Label: doc.Status.Label(), Decision: doc.Decision}
	rule, ok := m.rules[doc.Status]
	if !ok {
		view.BlockReason = noRule(doc.Status)
		return view, nil
	}
	view.NextAgent = rule.NextAgent()
	view.Trigger = rule.Trigger()
	if rule.NextAgent() == "" {
		view.CanProceed = rule.NextStatus() != ""
		return view, nil
	}
	view.CanProceed = rule.Condition(doc)
	if !view.CanProceed {
		view.BlockReason = rule.SkipReason(doc)
	}
	return view, nil
}

// writeStatus moves doc to status. A retry after a version conflict only writes
// if the document is still in the status it was read in.
func (m *Machine) writeStatus(ctx context.Context, doc *domain.Document, status domain.Status) error {
	wrote := false
	err := m.withVersionRetry(ctx, doc, func(cur *domain.Document) error {
		if cur.Status == status {
			return nil
		}
		if cur.Status != doc.Status {
			return domain.ErrVersionConflict
		}
		_, err := m.docs.UpdateStatus(ctx, cur.ID, cur.Version, status)
		wrote = err == nil
		return err
	})
	if err != nil {
		return fmt.Errorf("set status %s: %w", status, err)
	}
	if wrote {
		m.metrics.ObserveTransition(doc.Status, status)
	}
	return nil
}

// withVersionRetry runs write once and, on a version conflict, once more against a fresh read.
func (m *Machine) withVersionRetry(ctx context.Context, doc *domain.Document, write func(cur *domain.Document) error) error {
	cur := doc
	for attempt := 0; attempt < 2; attempt++ {
		err := write(cur)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return err
		}
		if attempt == 1 {
			break
		}
		cur, err = m.docs.GetByID(ctx, doc.ID)
		if err != nil {
			return err
		}
	}
	return domain.ErrVersionConflict
}

func applyOverrides(doc *domain.Document, o *Overrides) *domain.Document {
	out := doc.Clone()
	if o == nil {
		return out
	}
	if o.DuplicateOverride && out.DuplicateCheck != nil {
		out.DuplicateCheck.UserOverride = true
	}
	if o.Decision != "" {
		out.Decision = o.Decision
	}
	return out
}
