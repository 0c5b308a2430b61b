// Package orchestrator runs the independent expert units concurrently and
// the synthesis unit once after all of them have settled.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"time"

	"github.com/cloo-solutions/tenderflow/internal/agent"
	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/metrics"
	"github.com/cloo-solutions/tenderflow/internal/telemetry"
)

// UnitResult is the per-agent slot of an orchestration result.
type UnitResult struct {
	Success    bool   `json:"success"`
	Confidence int    `json:"confidence"`
	Error      string `json:"error,omitempty"`
}

// Result aggregates one orchestration run.
type Result struct {
	Success     bool                            `json:"success"`
	Results     map[domain.AgentName]UnitResult `json:"results"`
	Errors      []string                        `json:"errors"`
	CompletedAt time.Time                       `json:"completed_at"`
}

type Orchestrator struct {
	experts   []agent.Runner
	synthesis agent.Runner
	metrics   *metrics.Metrics
	now       func() time.Time
}

// New builds an orchestrator. synthesis may be nil, in which case only the experts run.
func New(experts []agent.Runner, synthesis agent.Runner, m *metrics.Metrics) *Orchestrator {
	return &Orchestrator{
		experts:   experts,
		synthesis: synthesis,
		metrics:   m,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// RunExpertAgents never fails as a whole; unit failures are reported in Errors.
// Siblings are not cancelled when one of them fails.
func (o *Orchestrator) RunExpertAgents(ctx context.Context, in agent.Input) Result {
	ctx, span := telemetry.StartSpan(ctx, "orchestrator.run", telemetry.SpanAttributes{
		DocumentID: in.DocumentID,
		Operation:  "run_expert_agents",
	})
	defer span.End()

	outcomes := make([]agent.Outcome, len(o.experts))

	var wg sync.WaitGroup
	for i, unit := range o.experts {
		wg.Add(1)
		go func(i int, unit agent.Runner) {
			defer wg.Done()
			outcomes[i] = o.execute(ctx, unit, in)
		}(i, unit)
	}
	wg.Wait()

	res := Result{Results: make(map[domain.AgentName]UnitResult, len(o.experts)+1), Errors: []string{}}
	for i, unit := range o.experts {
		res.record(unit.Name(), outcomes[i])
	}

	if o.synthesis != nil {
		res.record(o.synthesis.Name(), o.execute(ctx, o.synthesis, in))
	}

	res.Success = len(res.Errors) == 0
	res.CompletedAt = o.now()
	o.metrics.ObserveOrchestration(res.Success)

	if !res.Success {
		log.Printf("orchestrator: document %s finished with %d error(s): %v", in.DocumentID, len(res.Errors), res.Errors)
	}
	return res
}

func (r *Result) record(name domain.AgentName, o agent.Outcome) {
	r.Results[name] = UnitResult{Success: o.Success, Confidence: o.Confidence, Error: o.Error}
	if !o.Success {
		r.Errors = append(r.Errors, fmt.Sprintf("%s: %s", name, o.Error))
	}
}

// execute shields the barrier from a unit that panics outside its own recovery.
func (o *Orchestrator) execute(ctx context.Context, unit agent.Runner, in agent.Input) (out agent.Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.Printf("orchestrator: unit %s panicked for document %s: %v\n%s", unit.Name(), in.DocumentID, r, debug.Stack())
			out = agent.Outcome{Error: fmt.Sprintf("panic: %v", r)}
		}
		o.metrics.ObserveAgent(unit.Name(), out.Success, time.Since(start))
		if !out.Success {
			telemetry.AddBreadcrumb(ctx, "agent", fmt.Sprintf("%s failed: %s", unit.Name(), out.Error))
		}
	}()
	return unit.Execute(ctx, in)
}
