// Package pipeline connects workflow decisions to agent execution.
package pipeline

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/tenderflow/internal/agent"
	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/workflow"
)

type Completer interface {
	OnAgentComplete(ctx context.Context, documentID string, agent domain.AgentName) (workflow.TriggerResult, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, documentID string, agent domain.AgentName) error
}

// Report is what one dispatched agent run produced.
type Report struct {
	Agent   domain.AgentName       `json:"agent"`
	Outcome agent.Outcome          `json:"outcome"`
	Next    workflow.TriggerResult `json:"next"`
}

type Dispatcher struct {
	units    map[domain.AgentName]agent.Runner
	workflow Completer
	queue    Enqueuer
}

// NewDispatcher registers units by name. queue may be nil, in which case follow-up
// agents are reported in Report.Next but not scheduled.
func NewDispatcher(units []agent.Runner, wf Completer, queue Enqueuer) *Dispatcher {
	byName := make(map[domain.AgentName]agent.Runner, len(units))
	for _, u := range units {
		byName[u.Name()] = u
	}
	return &Dispatcher{units: byName, workflow: wf, queue: queue}
}

// Has reports whether a unit is registered for name.
func (d *Dispatcher) Has(name domain.AgentName) bool {
	_, ok := d.units[name]
	return ok
}

// Run executes the unit behind name. Only on success is the workflow advanced;
// a failed unit leaves the document where it is so the step can be retried.
func (d *Dispatcher) Run(ctx context.Context, documentID string, name domain.AgentName) (Report, error) {
	unit, ok := d.units[name]
	if !ok {
		return Report{}, fmt.Errorf("%w: %s", domain.ErrInvalidAgent, name)
	}

	rep := Report{Agent: name, Outcome: unit.Execute(ctx, agent.Input{DocumentID: documentID})}
	if !rep.Outcome.Success {
		log.Printf("pipeline: agent %s failed for document %s: %s", name, documentID, rep.Outcome.Error)
		rep.Next = workflow.TriggerResult{Reason: "agent failed: " + rep.Outcome.Error}
		return rep, nil
	}

	next, err := d.workflow.OnAgentComplete(ctx, documentID, name)
	if err != nil {
		return rep, fmt.Errorf("advance workflow after %s: %w", name, err)
	}
	rep.Next = next

	if err := d.Schedule(ctx, documentID, next); err != nil {
		return rep, err
	}
	return rep, nil
}

// Schedule enqueues the agent a transition selected.
func (d *Dispatcher) Schedule(ctx context.Context, documentID string, res workflow.TriggerResult) error {
	if !res.Triggered || res.Agent == "" || d.queue == nil {
		return nil
	}
	if err := d.queue.Enqueue(ctx, documentID, res.Agent); err != nil {
		return fmt.Errorf("enqueue %s: %w", res.Agent, err)
	}
	return nil
}
