package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/cloo-solutions/tenderflow/internal/domain"
)

type DuplicateStore interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	FindByCustomer(ctx context.Context, customerName, excludeID string) ([]*domain.Document, error)
	UpdateDuplicateCheck(ctx context.Context, id string, expectedVersion int, result *domain.DuplicateCheckResult) (int, error)
}

// DuplicateCheck looks for other live documents of the same customer.
type DuplicateCheck struct {
	docs  DuplicateStore
	store ResultStore
	now   func() time.Time
}

func NewDuplicateCheck(docs DuplicateStore, store ResultStore) *DuplicateCheck {
	return &DuplicateCheck{docs: docs, store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (d *DuplicateCheck) Name() domain.AgentName {
	return domain.AgentDuplicateCheck
}

func (d *DuplicateCheck) Execute(ctx context.Context, in Input) Outcome {
	return outcomeOf(d.Run(ctx, in))
}

func (d *DuplicateCheck) Run(ctx context.Context, in Input) (out domain.AgentOutput[domain.DuplicateCheckResult]) {
	defer recoverInto(d.Name(), in.DocumentID, &out, d.now)

	doc, err := d.docs.GetByID(ctx, in.DocumentID)
	if err != nil {
		return domain.Failed[domain.DuplicateCheckResult](err.Error(), d.now())
	}

	customer := strings.TrimSpace(doc.CustomerName)
	if customer == "" && doc.ExtractedRequirements != nil {
		customer = strings.TrimSpace(doc.ExtractedRequirements.CustomerName)
	}

	var candidates []*domain.Document
	if customer != "" {
		candidates, err = d.docs.FindByCustomer(ctx, customer, doc.ID)
		if err != nil {
			return domain.Failed[domain.DuplicateCheckResult](fmt.Sprintf("find duplicates: %v", err), d.now())
		}
	}

	result := &domain.DuplicateCheckResult{
		Matches:   scoreMatches(doc, candidates),
		CheckedAt: d.now(),
	}
	result.HasDuplicates = len(result.Matches) > 0

	if err := d.save(ctx, doc, result); err != nil {
		return domain.Failed[domain.DuplicateCheckResult](err.Error(), d.now())
	}

	if d.store != nil {
		res := d.store.Append(ctx, doc.ID, d.Name(), renderDuplicates(customer, result), result)
		if !res.Success {
			// best effort, the result already lives on the document
			logStoreFailure(d.Name(), doc.ID, res.Error)
		}
	}

	return domain.AgentOutput[domain.DuplicateCheckResult]{
		Success:    true,
		Data:       result,
		Confidence: 100,
		AnalyzedAt: d.now(),
	}
}

func (d *DuplicateCheck) save(ctx context.Context, doc *domain.Document, result *domain.DuplicateCheckResult) error {
	version := doc.Version
	for attempt := 0; attempt < 2; attempt++ {
		_, err := d.docs.UpdateDuplicateCheck(ctx, doc.ID, version, result)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return fmt.Errorf("save duplicate check: %w", err)
		}
		fresh, err := d.docs.GetByID(ctx, doc.ID)
		if err != nil {
			return err
		}
		version = fresh.Version
	}
	return domain.ErrVersionConflict
}

// scoreMatches ranks same-customer documents by title overlap and shared website.
func scoreMatches(doc *domain.Document, candidates []*domain.Document) []domain.DuplicateMatch {
	matches := make([]domain.DuplicateMatch, 0, len(candidates))
	docURL := normalizeHost(doc.ResolveWebsiteURL())
	for _, c := range candidates {
		score := 0.5 + 0.5*jaccard(tokens(doc.Title), tokens(c.Title))
		if docURL != "" && docURL == normalizeHost(c.ResolveWebsiteURL()) {
			score = max(score, 0.9)
		}
		matches = append(matches, domain.DuplicateMatch{
			DocumentID:   c.ID,
			Title:        c.Title,
			CustomerName: c.CustomerName,
			Status:       c.Status,
			Score:        score,
		})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches
}

func tokens(s string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[f] = struct{}{}
	}
	return out
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	return float64(inter) / float64(len(a)+len(b)-inter)
}

func normalizeHost(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "https://")
	s = strings.TrimPrefix(s, "http://")
	s = strings.TrimPrefix(s, "www.")
	if i := strings.IndexAny(s, "/?#"); i >= 0 {
		s = s[:i]
	}
	return s
}

func renderDuplicates(customer string, r *domain.DuplicateCheckResult) string {
	if !r.HasDuplicates {
		if customer == "" {
			return "Duplicate check: no customer known, nothing to compare."
		}
		return fmt.Sprintf("Duplicate check: no other open documents for %s.", customer)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Duplicate check: %d possible duplicate(s) for %s\n", len(r.Matches), customer)
	for _, m := range r.Matches {
		fmt.Fprintf(&b, "- %s (%s, score %.2f)\n", m.Title, m.Status, m.Score)
	}
	return strings.TrimRight(b.String(), "\n")
}
