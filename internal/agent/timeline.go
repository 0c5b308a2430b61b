package agent

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/estimate"
	"github.com/cloo-solutions/tenderflow/internal/storage"
)

const timelineConfidence = 60

// ErrNoAudit is reported when Timeline runs before a website audit was stored.
var ErrNoAudit = errors.New("no website audit found; run the quick scan first")

type ChunkReader interface {
	Latest(ctx context.Context, documentID string, agent domain.AgentName) (*domain.EvidenceChunk, error)
}

type ReportStore interface {
	PutReport(ctx context.Context, key string, body []byte) (string, error)
}

// Timeline turns the stored website inventory into an effort estimate.
type Timeline struct {
	docs    DocumentReader
	chunks  ChunkReader
	reports ReportStore
	store   ResultStore
	now     func() time.Time
}

// NewTimeline builds the estimate unit. reports may be nil when no object storage is configured.
func NewTimeline(docs DocumentReader, chunks ChunkReader, reports ReportStore, store ResultStore) *Timeline {
	return &Timeline{docs: docs, chunks: chunks, reports: reports, store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (t *Timeline) Name() domain.AgentName {
	return domain.AgentTimeline
}

func (t *Timeline) Execute(ctx context.Context, in Input) Outcome {
	return outcomeOf(t.Run(ctx, in))
}

func (t *Timeline) Run(ctx context.Context, in Input) (out domain.AgentOutput[estimate.Result]) {
	defer recoverInto(t.Name(), in.DocumentID, &out, t.now)

	doc, err := t.docs.GetByID(ctx, in.DocumentID)
	if err != nil {
		return domain.Failed[estimate.Result](err.Error(), t.now())
	}

	chunk, err := t.chunks.Latest(ctx, doc.ID, domain.AgentQuickScan)
	if err != nil {
		return domain.Failed[estimate.Result](fmt.Sprintf("%v: %v", ErrNoAudit, err), t.now())
	}
	payload, err := domain.DecodePayload(domain.AgentQuickScan, chunk.Metadata)
	if err != nil {
		return domain.Failed[estimate.Result](err.Error(), t.now())
	}
	audit, ok := payload.(domain.AuditPayload)
	if !ok {
		return domain.Failed[estimate.Result](ErrNoAudit.Error(), t.now())
	}

	estInput := estimate.Input{ProjectName: doc.Title, AuditInventory: audit.Inventory}
	result := estimate.Calculate(estInput)
	now := t.now()

	var reportKey string
	if t.reports != nil {
		report := estimate.Render(estInput, result, now)
		key, err := t.reports.PutReport(ctx, storage.ReportKey(doc.ID, now), []byte(report))
		if err != nil {
			log.Printf("agent %s: failed to upload report for document %s: %v", t.Name(), doc.ID, err)
		} else {
			reportKey = key
		}
	}

	if t.store != nil {
		realistic := result.Realistic()
		content := fmt.Sprintf("Effort estimate: %.0f hours (base %.0f, buffer %.0f, risk %s). About %.1f weeks at 30h/week, %.1f months.",
			result.TotalHours, result.BaseHours, result.BufferHours, result.RiskLevel, realistic.Weeks, realistic.Months)
		res := t.store.Append(ctx, doc.ID, t.Name(), content, domain.EstimatePayload{
			TotalHours:     result.TotalHours,
			BaseHours:      result.BaseHours,
			BufferHours:    result.BufferHours,
			WeeksRealistic: realistic.Weeks,
			RiskLevel:      result.RiskLevel,
			ReportKey:      reportKey,
		})
		if !res.Success {
			logStoreFailure(t.Name(), doc.ID, res.Error)
		}
	}

	return domain.AgentOutput[estimate.Result]{
		Success:    true,
		Data:       result,
		Confidence: timelineConfidence,
		AnalyzedAt: now,
	}
}
