package agent

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/tenderflow/internal/domain"
)

// websiteURLRequired is the failure reported when no URL is known.
const websiteURLRequired = "website URL required for quick scan"

type Auditor interface {
	Audit(ctx context.Context, url string) (*domain.AuditInventory, error)
}

type DocumentReader interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
}

// WebsiteAudit inventories the customer's current website and stores it as
// QuickScan evidence so the experts and the estimate can use it.
type WebsiteAudit struct {
	docs    DocumentReader
	auditor Auditor
	store   ResultStore
	now     func() time.Time
}

func NewWebsiteAudit(docs DocumentReader, auditor Auditor, store ResultStore) *WebsiteAudit {
	return &WebsiteAudit{docs: docs, auditor: auditor, store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (w *WebsiteAudit) Name() domain.AgentName {
	return domain.AgentQuickScan
}

func (w *WebsiteAudit) Execute(ctx context.Context, in Input) Outcome {
	return outcomeOf(w.Run(ctx, in))
}

func (w *WebsiteAudit) Run(ctx context.Context, in Input) (out domain.AgentOutput[domain.AuditInventory]) {
	defer recoverInto(w.Name(), in.DocumentID, &out, w.now)

	doc, err := w.docs.GetByID(ctx, in.DocumentID)
	if err != nil {
		return domain.Failed[domain.AuditInventory](err.Error(), w.now())
	}
	url := doc.ResolveWebsiteURL()
	if url == "" {
		return domain.Failed[domain.AuditInventory](websiteURLRequired, w.now())
	}
	if w.auditor == nil {
		return domain.Failed[domain.AuditInventory]("website auditor not configured", w.now())
	}

	inv, err := w.auditor.Audit(ctx, url)
	if err != nil {
		return domain.Failed[domain.AuditInventory](fmt.Sprintf("audit %s: %v", url, err), w.now())
	}

	if w.store != nil {
		res := w.store.Append(ctx, doc.ID, w.Name(), renderInventory(inv), domain.AuditPayload{Inventory: *inv})
		if !res.Success {
			logStoreFailure(w.Name(), doc.ID, res.Error)
		}
	}

	return domain.AgentOutput[domain.AuditInventory]{
		Success:    true,
		Data:       inv,
		Confidence: auditConfidence(inv),
		AnalyzedAt: w.now(),
	}
}

// auditConfidence grows with the amount of site structure the audit could see.
func auditConfidence(inv *domain.AuditInventory) int {
	c := 30 + 5*inv.EntityCount()
	if inv.PageCount > 1 {
		c += 10
	}
	return ClampConfidence(min(c, 90))
}

func renderInventory(inv *domain.AuditInventory) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Website audit of %s", inv.URL)
	if inv.Title != "" {
		fmt.Fprintf(&b, " (%s)", inv.Title)
	}
	b.WriteString("\n")
	if inv.Excerpt != "" {
		b.WriteString(inv.Excerpt + "\n")
	}
	groups := []struct {
		label    string
		entities []domain.SiteEntity
	}{
		{"Content types", inv.ContentTypes},
		{"Paragraph types", inv.Paragraphs},
		{"Taxonomies", inv.Taxonomies},
		{"Media types", inv.MediaTypes},
		{"Views", inv.Views},
		{"Forms", inv.Webforms},
		{"Blocks", inv.Blocks},
		{"Custom modules", inv.CustomModules},
		{"Theme components", inv.ThemeComponents},
	}
	for _, g := range groups {
		if len(g.entities) == 0 {
			continue
		}
		names := make([]string, 0, len(g.entities))
		for _, e := range g.entities {
			names = append(names, fmt.Sprintf("%s (%s)", e.Name, e.Complexity))
		}
		b.WriteString(section(g.label, names))
	}
	if inv.Migration != nil && inv.Migration.Nodes > 0 {
		fmt.Fprintf(&b, "Migration: about %d content items, %s\n", inv.Migration.Nodes, inv.Migration.Complexity)
	}
	if inv.RiskLevel != "" {
		fmt.Fprintf(&b, "Risk level: %s\n", inv.RiskLevel)
	}
	return strings.TrimRight(b.String(), "\n")
}

func logStoreFailure(agent domain.AgentName, documentID, msg string) {
	log.Printf("agent %s: failed to store result for document %s: %s", agent, documentID, msg)
}
