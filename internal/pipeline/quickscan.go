package pipeline

import (
	"context"
	"log"
	"strings"

	"github.com/cloo-solutions/tenderflow/internal/agent"
	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/orchestrator"
)

type ExpertRunner interface {
	RunExpertAgents(ctx context.Context, in agent.Input) orchestrator.Result
}

// QuickScan audits the customer website and then runs the expert panel.
// The scan succeeds when the synthesis produced a summary; a failed audit
// only removes the inventory from the evidence.
type QuickScan struct {
	audit   agent.Runner
	experts ExpertRunner
}

func NewQuickScan(audit agent.Runner, experts ExpertRunner) *QuickScan {
	return &QuickScan{audit: audit, experts: experts}
}

func (q *QuickScan) Name() domain.AgentName {
	return domain.AgentQuickScan
}

func (q *QuickScan) Execute(ctx context.Context, in agent.Input) agent.Outcome {
	if q.audit != nil {
		if o := q.audit.Execute(ctx, in); !o.Success {
			log.Printf("pipeline: website audit failed for document %s: %s", in.DocumentID, o.Error)
		}
	}

	res := q.experts.RunExpertAgents(ctx, in)
	summary, ok := res.Results[domain.AgentSummary]
	if !ok {
		return agent.Outcome{Error: "synthesis did not run"}
	}
	if !summary.Success {
		return agent.Outcome{Error: strings.Join(res.Errors, "; ")}
	}
	return agent.Outcome{Success: true, Confidence: summary.Confidence}
}
