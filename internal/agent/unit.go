// Package agent implements the analysis units that turn document evidence
// into typed, confidence-scored results.
package agent

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"strings"
	"time"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/openai"
	"github.com/cloo-solutions/tenderflow/internal/resultstore"
	"github.com/cloo-solutions/tenderflow/internal/telemetry"
)

// Input identifies the document a unit works on.
type Input struct {
	DocumentID string
}

// Outcome is the type-erased view of a unit run used by the orchestrator and dispatcher.
type Outcome struct {
	Success    bool   `json:"success"`
	Confidence int    `json:"confidence"`
	Error      string `json:"error,omitempty"`
}

// Runner is implemented by every unit regardless of its output type.
type Runner interface {
	Name() domain.AgentName
	Execute(ctx context.Context, in Input) Outcome
}

// Confident is satisfied by every structured result carrying a 0-100 confidence.
type Confident interface {
	ConfidenceScore() int
}

type Generator interface {
	Generate(ctx context.Context, req openai.GenerateRequest, out any) error
}

type ResultStore interface {
	Append(ctx context.Context, documentID string, agent domain.AgentName, content string, metadata any) resultstore.AppendResult
}

// EvidenceSource assembles the prompt context for a unit. An empty string means no evidence.
type EvidenceSource interface {
	Gather(ctx context.Context, documentID string) (string, error)
}

// Definition describes one generated unit.
type Definition[T Confident] struct {
	Name         domain.AgentName
	ModelSlot    openai.ModelSlot
	Temperature  float32
	SystemPrompt string
	Task         string
	Summarize    func(*T) string
	Metadata     func(*T) any
	// After runs on a successful result before it is stored; an error fails the unit.
	After func(ctx context.Context, in Input, result *T) error
}

// Unit runs retrieval, generation and storage for one agent.
type Unit[T Confident] struct {
	def      Definition[T]
	evidence EvidenceSource
	gen      Generator
	store    ResultStore
	now      func() time.Time
}

func NewUnit[T Confident](def Definition[T], evidence EvidenceSource, gen Generator, store ResultStore) *Unit[T] {
	return &Unit[T]{
		def:      def,
		evidence: evidence,
		gen:      gen,
		store:    store,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (u *Unit[T]) Name() domain.AgentName {
	return u.def.Name
}

// Run never panics and never returns an error; failures come back in the envelope.
func (u *Unit[T]) Run(ctx context.Context, in Input) (out domain.AgentOutput[T]) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("agent %s: panic for document %s: %v\n%s", u.def.Name, in.DocumentID, r, debug.Stack())
			out = domain.Failed[T](fmt.Sprintf("panic: %v", r), u.now())
		}
	}()

	ctx, span := telemetry.StartSpan(ctx, "agent.run", telemetry.SpanAttributes{
		DocumentID: in.DocumentID,
		Agent:      string(u.def.Name),
		Operation:  "run",
	})
	defer span.End()

	evidence, err := u.evidence.Gather(ctx, in.DocumentID)
	if err != nil {
		span.SetError(err)
		return domain.Failed[T](err.Error(), u.now())
	}
	if strings.TrimSpace(evidence) == "" {
		span.SetOutcome(false, 0)
		return domain.Failed[T](domain.ErrNoEvidence.Message, u.now())
	}

	var result T
	err = u.gen.Generate(ctx, openai.GenerateRequest{
		ModelSlot:    u.def.ModelSlot,
		SystemPrompt: u.def.SystemPrompt,
		UserPrompt:   buildPrompt(u.def.Task, evidence),
		Temperature:  u.def.Temperature,
	}, &result)
	if err != nil {
		span.SetError(err)
		return domain.Failed[T](err.Error(), u.now())
	}

	if u.def.After != nil {
		if err := u.def.After(ctx, in, &result); err != nil {
			span.SetError(err)
			return domain.Failed[T](err.Error(), u.now())
		}
	}

	u.persist(ctx, in.DocumentID, &result)

	confidence := ClampConfidence(result.ConfidenceScore())
	span.SetOutcome(true, confidence)
	return domain.AgentOutput[T]{
		Success:    true,
		Data:       &result,
		Confidence: confidence,
		AnalyzedAt: u.now(),
	}
}

func (u *Unit[T]) Execute(ctx context.Context, in Input) Outcome {
	return outcomeOf(u.Run(ctx, in))
}

func (u *Unit[T]) persist(ctx context.Context, documentID string, result *T) {
	if u.store == nil {
		return
	}
	var content string
	if u.def.Summarize != nil {
		content = u.def.Summarize(result)
	}
	var metadata any
	if u.def.Metadata != nil {
		metadata = u.def.Metadata(result)
	}
	res := u.store.Append(ctx, documentID, u.def.Name, content, metadata)
	if !res.Success {
		logStoreFailure(u.def.Name, documentID, res.Error)
	}
}

func buildPrompt(task, evidence string) string {
	task = strings.TrimSpace(task)
	if task == "" {
		return evidence
	}
	return task + "\n\n" + evidence
}

// ClampConfidence bounds a reported confidence to 0..100.
func ClampConfidence(c int) int {
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	}
	return c
}

func outcomeOf[T any](out domain.AgentOutput[T]) Outcome {
	return Outcome{Success: out.Success, Confidence: out.Confidence, Error: out.Error}
}

// recoverInto turns a panic inside a deterministic unit into a failure envelope.
func recoverInto[T any](name domain.AgentName, documentID string, out *domain.AgentOutput[T], now func() time.Time) {
	if r := recover(); r != nil {
		log.Printf("agent %s: panic for document %s: %v\n%s", name, documentID, r, debug.Stack())
		*out = domain.Failed[T](fmt.Sprintf("panic: %v", r), now())
	}
}
