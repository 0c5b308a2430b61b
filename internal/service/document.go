package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloo-solutions/tenderflow/internal/audit"
	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/pagination"
	"github.com/cloo-solutions/tenderflow/internal/resultstore"
	"github.com/cloo-solutions/tenderflow/internal/telemetry"
	"github.com/cloo-solutions/tenderflow/internal/workflow"
	"github.com/google/uuid"
)

// DocumentRepository defines the persistence the document service needs
type DocumentRepository interface {
	Create(ctx context.Context, d *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]*domain.Document, error)
}

// SourceStore appends ingested text as evidence chunks
type SourceStore interface {
	AppendAll(ctx context.Context, documentID string, agent domain.AgentName, entries []resultstore.Entry) []resultstore.AppendResult
}

// WorkflowStarter moves a fresh document out of draft
type WorkflowStarter interface {
	Trigger(ctx context.Context, documentID string) (workflow.TriggerResult, error)
}

// UUIDGenerator defines interface for UUID generation (for testing)
type UUIDGenerator interface {
	NewString() string
}

// DefaultUUIDGenerator is the default UUID generator using google/uuid
type DefaultUUIDGenerator struct{}

// NewString generates a new UUID string
func (g *DefaultUUIDGenerator) NewString() string {
	return uuid.NewString()
}

// Source is one piece of tender text supplied with a new document
type Source struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

type sourceMetadata struct {
	Source string `json:"source,omitempty"`
	Part   int    `json:"part"`
}

type CreateDocumentInput struct {
	Title        string
	CustomerName string
	WebsiteURL   string
	Sources      []Source
	Start        bool
}

type CreateDocumentOutput struct {
	Document     *domain.Document
	ChunksStored int
	Workflow     *workflow.TriggerResult
}

type ListDocumentsOutput struct {
	Items   []*domain.Document
	Cursor  string
	HasMore bool
}

// DocumentService creates documents and ingests their source text
type DocumentService struct {
	docs     DocumentRepository
	sources  SourceStore
	starter  WorkflowStarter
	chunkCfg ChunkConfig
	uuidGen  UUIDGenerator
	now      func() time.Time
}

// NewDocumentService creates a DocumentService. sources and starter may be nil.
func NewDocumentService(docs DocumentRepository, sources SourceStore, starter WorkflowStarter) *DocumentService {
	return &DocumentService{
		docs:     docs,
		sources:  sources,
		starter:  starter,
		chunkCfg: DefaultChunkConfig(),
		uuidGen:  &DefaultUUIDGenerator{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *DocumentService) Create(ctx context.Context, input CreateDocumentInput) (*CreateDocumentOutput, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title", domain.ErrMissingRequiredField)
	}

	websiteURL := strings.TrimSpace(input.WebsiteURL)
	if websiteURL != "" {
		u, err := audit.NormalizeURL(websiteURL)
		if err != nil {
			return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid website url", err)
		}
		websiteURL = u.String()
	}

	doc := domain.NewDocument(s.uuidGen.NewString(), title, strings.TrimSpace(input.CustomerName), websiteURL, s.now())
	ctx, span := telemetry.StartSpan(ctx, "DocumentService.Create", telemetry.SpanAttributes{
		DocumentID: doc.ID,
		Operation:  "create",
	})
	defer span.End()

	if err := domain.ValidateDocument(doc); err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid document", err)
	}
	if err := s.docs.Create(ctx, doc); err != nil {
		return nil, fmt.Errorf("create document: %w", err)
	}

	out := &CreateDocumentOutput{Document: doc}
	stored, err := s.ingest(ctx, doc.ID, input.Sources)
	out.ChunksStored = stored
	if err != nil {
		return nil, err
	}

	if input.Start && s.starter != nil {
		res, err := s.starter.Trigger(ctx, doc.ID)
		if err != nil {
			return nil, fmt.Errorf("start workflow: %w", err)
		}
		out.Workflow = &res
		if fresh, err := s.docs.GetByID(ctx, doc.ID); err == nil {
			out.Document = fresh
		}
	}
	return out, nil
}

func (s *DocumentService) ingest(ctx context.Context, documentID string, sources []Source) (int, error) {
	if len(sources) == 0 || s.sources == nil {
		return 0, nil
	}
	stored := 0
	for _, src := range sources {
		parts := chunkText(src.Content, s.chunkCfg)
		entries := make([]resultstore.Entry, len(parts))
		for i, part := range parts {
			entries[i] = resultstore.Entry{Content: part, Metadata: sourceMetadata{Source: src.Name, Part: i}}
		}
		for i, res := range s.sources.AppendAll(ctx, documentID, domain.AgentIngest, entries) {
			if !res.Success {
				log.Printf("service: ingest %s part %d for document %s failed: %s", src.Name, i, documentID, res.Error)
				return stored, domain.NewDomainErrorWithCause(domain.ErrCodeInternalError, "ingest source text", errors.New(res.Error))
			}
			if !res.Skipped {
				stored++
			}
		}
	}
	return stored, nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*domain.Document, error) {
	return s.docs.GetByID(ctx, id)
}

// List pages through documents newest first.
func (s *DocumentService) List(ctx context.Context, cursor string, limit int) (*ListDocumentsOutput, error) {
	cur, err := pagination.Decode(cursor)
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid cursor", err)
	}
	limit = pagination.ClampLimit(limit)

	rows, err := s.docs.List(ctx, cur, limit+1)
	if err != nil {
		return nil, err
	}
	page := pagination.Trim(rows, limit, func(d *domain.Document) (string, time.Time) {
		return d.ID, d.CreatedAt
	})
	return &ListDocumentsOutput{Items: page.Items, Cursor: page.Cursor, HasMore: page.HasMore}, nil
}
