package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/cloo-solutions/tenderflow/internal/agent"
	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/orchestrator"
	"github.com/cloo-solutions/tenderflow/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockCompleter struct {
	mock.Mock
}

func (m *MockCompleter) OnAgentComplete(ctx context.Context, documentID string, name domain.AgentName) (workflow.TriggerResult, error) {
	args := m.Called(ctx, documentID, name)
	return args.Get(0).(workflow.TriggerResult), args.Error(1)
}

type MockEnqueuer struct {
	mock.Mock
}

func (m *MockEnqueuer) Enqueue(ctx context.Context, documentID string, name domain.AgentName) error {
	args := m.Called(ctx, documentID, name)
	return args.Error(0)
}

type stubRunner struct {
	name    domain.AgentName
	outcome agent.Outcome
	calls   int
}

func (s *stubRunner) Name() domain.AgentName { return s.name }

func (s *stubRunner) Execute(context.Context, agent.Input) agent.Outcome {
	s.calls++
	return s.outcome
}

func TestDispatcher_Run_AdvancesAndSchedules(t *testing.T) {
	wf := new(MockCompleter)
	queue := new(MockEnqueuer)
	dup := &stubRunner{name: domain.AgentDuplicateCheck, outcome: agent.Outcome{Success: true, Confidence: 100}}

	wf.On("OnAgentComplete", mock.Anything, "doc-1", domain.AgentDuplicateCheck).
		Return(workflow.TriggerResult{Triggered: true, Agent: domain.AgentQuickScan}, nil)
	queue.On("Enqueue", mock.Anything, "doc-1", domain.AgentQuickScan).Return(nil)

	rep, err := NewDispatcher([]agent.Runner{dup}, wf, queue).Run(context.Background(), "doc-1", domain.AgentDuplicateCheck)

	require.NoError(t, err)
	assert.Equal(t, 1, dup.calls)
	assert.True(t, rep.Outcome.Success)
	assert.Equal(t, domain.AgentQuickScan, rep.Next.Agent)
	wf.AssertExpectations(t)
	queue.AssertExpectations(t)
}

func TestDispatcher_Run_FailedUnitStaysPut(t *testing.T) {
	wf := new(MockCompleter)
	queue := new(MockEnqueuer)
	extract := &stubRunner{name: domain.AgentExtract, outcome: agent.Outcome{Error: "no relevant evidence found"}}

	rep, err := NewDispatcher([]agent.Runner{extract}, wf, queue).Run(context.Background(), "doc-1", domain.AgentExtract)

	require.NoError(t, err)
	assert.False(t, rep.Outcome.Success)
	assert.Equal(t, "agent failed: no relevant evidence found", rep.Next.Reason)
	wf.AssertNotCalled(t, "OnAgentComplete", mock.Anything, mock.Anything, mock.Anything)
	queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatcher_Run_HumanGateSchedulesNothing(t *testing.T) {
	wf := new(MockCompleter)
	queue := new(MockEnqueuer)
	extract := &stubRunner{name: domain.AgentExtract, outcome: agent.Outcome{Success: true, Confidence: 70}}

	wf.On("OnAgentComplete", mock.Anything, "doc-1", domain.AgentExtract).
		Return(workflow.TriggerResult{Reason: "awaiting user action"}, nil)

	rep, err := NewDispatcher([]agent.Runner{extract}, wf, queue).Run(context.Background(), "doc-1", domain.AgentExtract)

	require.NoError(t, err)
	assert.Equal(t, "awaiting user action", rep.Next.Reason)
	queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatcher_Run_WorkflowErrorSurfaces(t *testing.T) {
	wf := new(MockCompleter)
	timeline := &stubRunner{name: domain.AgentTimeline, outcome: agent.Outcome{Success: true}}
	wf.On("OnAgentComplete", mock.Anything, "doc-1", domain.AgentTimeline).
		Return(workflow.TriggerResult{}, domain.ErrVersionConflict)

	_, err := NewDispatcher([]agent.Runner{timeline}, wf, nil).Run(context.Background(), "doc-1", domain.AgentTimeline)

	assert.ErrorIs(t, err, domain.ErrVersionConflict)
}

func TestDispatcher_Run_UnknownAgent(t *testing.T) {
	d := NewDispatcher(nil, new(MockCompleter), nil)

	_, err := d.Run(context.Background(), "doc-1", domain.AgentTech)

	assert.ErrorIs(t, err, domain.ErrInvalidAgent)
	assert.False(t, d.Has(domain.AgentTech))
}

func TestDispatcher_Schedule_NilQueue(t *testing.T) {
	d := NewDispatcher(nil, new(MockCompleter), nil)

	err := d.Schedule(context.Background(), "doc-1", workflow.TriggerResult{Triggered: true, Agent: domain.AgentExtract})

	assert.NoError(t, err)
}

func TestDispatcher_Schedule_EnqueueError(t *testing.T) {
	queue := new(MockEnqueuer)
	queue.On("Enqueue", mock.Anything, "doc-1", domain.AgentExtract).Return(errors.New("db down"))

	err := NewDispatcher(nil, new(MockCompleter), queue).
		Schedule(context.Background(), "doc-1", workflow.TriggerResult{Triggered: true, Agent: domain.AgentExtract})

	assert.EqualError(t, err, "enqueue Extract: db down")
}

type stubExperts struct {
	result orchestrator.Result
	calls  int
}

func (s *stubExperts) RunExpertAgents(context.Context, agent.Input) orchestrator.Result {
	s.calls++
	return s.result
}

func TestQuickScan_SucceedsWhenSynthesisSucceeds(t *testing.T) {
	audit := &stubRunner{name: domain.AgentQuickScan, outcome: agent.Outcome{Error: "website URL required for quick scan"}}
	experts := &stubExperts{result: orchestrator.Result{
		Results: map[domain.AgentName]orchestrator.UnitResult{
			domain.AgentTech:    {Success: false, Error: "x"},
			domain.AgentSummary: {Success: true, Confidence: 61},
		},
		Errors: []string{"Tech: x"},
	}}

	o := NewQuickScan(audit, experts).Execute(context.Background(), agent.Input{DocumentID: "doc-1"})

	assert.Equal(t, agent.Outcome{Success: true, Confidence: 61}, o)
	assert.Equal(t, 1, audit.calls)
	assert.Equal(t, 1, experts.calls)
}

func TestQuickScan_FailsWhenSynthesisFails(t *testing.T) {
	experts := &stubExperts{result: orchestrator.Result{
		Results: map[domain.AgentName]orchestrator.UnitResult{domain.AgentSummary: {Error: "no relevant evidence found"}},
		Errors:  []string{"Tech: no relevant evidence found", "Summary: no relevant evidence found"},
	}}

	o := NewQuickScan(nil, experts).Execute(context.Background(), agent.Input{DocumentID: "doc-1"})

	assert.False(t, o.Success)
	assert.Equal(t, "Tech: no relevant evidence found; Summary: no relevant evidence found", o.Error)
}
