package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/openai"
)

type ExtractionWriter interface {
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	UpdateExtraction(ctx context.Context, id string, expectedVersion int, req *domain.ExtractedRequirements) (int, error)
}

var extractQuestions = []string{
	"issuing organisation, contracting authority and contact",
	"project title, subject and summary of the procurement",
	"website, domain or URL of the current web presence",
	"submission deadline and important dates",
	"budget, estimated contract value",
	"mandatory requirements and deliverables",
}

const extractSystemPrompt = `You extract structured facts from tender documents.
Copy values as written in the evidence. Leave a field empty when it is not stated.`

// NewExtractUnit builds the requirement extraction unit. Successful results
// are written onto the document before they are stored as evidence.
func NewExtractUnit(r Retriever, gen Generator, store ResultStore, docs ExtractionWriter) *Unit[domain.ExtractedRequirements] {
	return NewUnit(Definition[domain.ExtractedRequirements]{
		Name:         domain.AgentExtract,
		ModelSlot:    openai.SlotChat,
		Temperature:  0,
		SystemPrompt: extractSystemPrompt,
		Task:         "Extract the customer, project and key requirements of this tender.",
		Summarize:    renderExtraction,
		Metadata: func(e *domain.ExtractedRequirements) any {
			return e
		},
		After: func(ctx context.Context, in Input, e *domain.ExtractedRequirements) error {
			return saveExtraction(ctx, docs, in.DocumentID, e)
		},
	}, RetrievalEvidence{Retriever: r, Questions: extractQuestions, MaxResults: 5, Label: "Tender Document"}, gen, store)
}

func saveExtraction(ctx context.Context, docs ExtractionWriter, documentID string, e *domain.ExtractedRequirements) error {
	for attempt := 0; attempt < 2; attempt++ {
		doc, err := docs.GetByID(ctx, documentID)
		if err != nil {
			return err
		}
		_, err = docs.UpdateExtraction(ctx, documentID, doc.Version, e)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrVersionConflict) {
			return fmt.Errorf("save extraction: %w", err)
		}
	}
	return domain.ErrVersionConflict
}

func renderExtraction(e *domain.ExtractedRequirements) string {
	var b strings.Builder
	b.WriteString(line("Customer", e.CustomerName))
	b.WriteString(line("Project", e.ProjectTitle))
	b.WriteString(line("Summary", e.Summary))
	b.WriteString(line("Website", e.PrimaryURL()))
	b.WriteString(line("Deadline", e.Deadline))
	b.WriteString(line("Budget", e.Budget))
	b.WriteString(section("Requirements", e.Requirements))
	out := strings.TrimRight(b.String(), "\n")
	if out == "" {
		return "No requirements extracted."
	}
	return out
}
