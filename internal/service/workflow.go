package service

import (
	"context"
	"fmt"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/telemetry"
	"github.com/cloo-solutions/tenderflow/internal/workflow"
)

// WorkflowEngine is the state machine surface the service drives
type WorkflowEngine interface {
	TriggerNext(ctx context.Context, documentID string, currentStatus domain.Status, overrides *workflow.Overrides) (workflow.TriggerResult, error)
	HandleDuplicateOverride(ctx context.Context, documentID string) (workflow.TriggerResult, error)
	HandleBidDecision(ctx context.Context, documentID string, bid bool) (workflow.TriggerResult, error)
	ConfirmReview(ctx context.Context, documentID string) (workflow.TriggerResult, error)
	GetWorkflowStatus(ctx context.Context, documentID string) (workflow.StatusView, error)
}

// Scheduler queues the agent a transition selected
type Scheduler interface {
	Schedule(ctx context.Context, documentID string, res workflow.TriggerResult) error
}

type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// WorkflowService applies user actions to the workflow and schedules whatever agent they unlock.
type WorkflowService struct {
	engine    WorkflowEngine
	docs      DocumentReader
	scheduler Scheduler
}

// NewWorkflowService creates a WorkflowService. scheduler may be nil.
func NewWorkflowService(engine WorkflowEngine, docs DocumentReader, scheduler Scheduler) *WorkflowService {
	return &WorkflowService{engine: engine, docs: docs, scheduler: scheduler}
}

func (s *WorkflowService) Status(ctx context.Context, documentID string) (workflow.StatusView, error) {
	return s.engine.GetWorkflowStatus(ctx, documentID)
}

// Trigger evaluates the rule for the document's current status.
func (s *WorkflowService) Trigger(ctx context.Context, documentID string) (workflow.TriggerResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "WorkflowService.Trigger", telemetry.SpanAttributes{
		DocumentID: documentID,
		Operation:  "trigger",
	})
	defer span.End()

	doc, err := s.docs.GetByID(ctx, documentID)
	if err != nil {
		return workflow.TriggerResult{}, err
	}
	return s.schedule(ctx, documentID)(s.engine.TriggerNext(ctx, documentID, doc.Status, nil))
}

func (s *WorkflowService) ConfirmReview(ctx context.Context, documentID string) (workflow.TriggerResult, error) {
	return s.schedule(ctx, documentID)(s.engine.ConfirmReview(ctx, documentID))
}

func (s *WorkflowService) OverrideDuplicate(ctx context.Context, documentID string) (workflow.TriggerResult, error) {
	return s.schedule(ctx, documentID)(s.engine.HandleDuplicateOverride(ctx, documentID))
}

// Decide records a bid or no-bid. Any other value is rejected.
func (s *WorkflowService) Decide(ctx context.Context, documentID string, decision domain.Decision) (workflow.TriggerResult, error) {
	switch decision {
	case domain.DecisionBid:
		return s.schedule(ctx, documentID)(s.engine.HandleBidDecision(ctx, documentID, true))
	case domain.DecisionNoBid:
		return s.schedule(ctx, documentID)(s.engine.HandleBidDecision(ctx, documentID, false))
	default:
		return workflow.TriggerResult{}, fmt.Errorf("%w: %q", domain.ErrInvalidDecision, decision)
	}
}

func (s *WorkflowService) schedule(ctx context.Context, documentID string) func(workflow.TriggerResult, error) (workflow.TriggerResult, error) {
	return func(res workflow.TriggerResult, err error) (workflow.TriggerResult, error) {
		if err != nil || s.scheduler == nil {
			return res, err
		}
		if err := s.scheduler.Schedule(ctx, documentID, res); err != nil {
			return res, err
		}
		return res, nil
	}
}
