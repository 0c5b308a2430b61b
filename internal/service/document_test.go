package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/pagination"
	"github.com/cloo-solutions/tenderflow/internal/resultstore"
	"github.com/cloo-solutions/tenderflow/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockDocumentRepository struct {
	mock.Mock
}

func (m *MockDocumentRepository) Create(ctx context.Context, d *domain.Document) error {
	args := m.Called(ctx, d)
	return args.Error(0)
}

func (m *MockDocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Document), args.Error(1)
}

func (m *MockDocumentRepository) List(ctx context.Context, cursor *pagination.Cursor, limit int) ([]*domain.Document, error) {
	args := m.Called(ctx, cursor, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Document), args.Error(1)
}

type appendCall struct {
	documentID string
	agent      domain.AgentName
	content    string
	metadata   any
}

type fakeSourceStore struct {
	calls  []appendCall
	result resultstore.AppendResult
}

func (f *fakeSourceStore) AppendAll(_ context.Context, documentID string, agent domain.AgentName, entries []resultstore.Entry) []resultstore.AppendResult {
	var results []resultstore.AppendResult
	for _, e := range entries {
		f.calls = append(f.calls, appendCall{documentID, agent, e.Content, e.Metadata})
		res := f.result
		res.ChunkIndex = len(f.calls) - 1
		results = append(results, res)
		if !res.Success {
			break
		}
	}
	return results
}

type MockStarter struct {
	mock.Mock
}

func (m *MockStarter) Trigger(ctx context.Context, documentID string) (workflow.TriggerResult, error) {
	args := m.Called(ctx, documentID)
	return args.Get(0).(workflow.TriggerResult), args.Error(1)
}

type fixedUUID struct{ id string }

func (f fixedUUID) NewString() string { return f.id }

var fixedNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func newTestDocumentService(repo DocumentRepository, sources SourceStore, starter WorkflowStarter) *DocumentService {
	svc := NewDocumentService(repo, sources, starter)
	svc.uuidGen = fixedUUID{id: "doc-1"}
	svc.now = func() time.Time { return fixedNow }
	return svc
}

func TestDocumentService_Create(t *testing.T) {
	repo := new(MockDocumentRepository)
	repo.On("Create", mock.Anything, mock.MatchedBy(func(d *domain.Document) bool {
		return d.ID == "doc-1" && d.Title == "Portal relaunch" && d.Status == domain.StatusDraft
	})).Return(nil)
	sources := &fakeSourceStore{result: resultstore.AppendResult{Success: true}}

	svc := newTestDocumentService(repo, sources, nil)
	out, err := svc.Create(context.Background(), CreateDocumentInput{
		Title:        "  Portal relaunch ",
		CustomerName: "ACME",
		WebsiteURL:   "acme.example",
		Sources:      []Source{{Name: "rfp.pdf", Content: "The portal must support SSO."}},
	})

	require.NoError(t, err)
	assert.Equal(t, "doc-1", out.Document.ID)
	assert.Equal(t, "https://acme.example", out.Document.WebsiteURL)
	assert.Equal(t, fixedNow, out.Document.CreatedAt)
	assert.Equal(t, 1, out.ChunksStored)
	assert.Nil(t, out.Workflow)

	require.Len(t, sources.calls, 1)
	assert.Equal(t, domain.AgentIngest, sources.calls[0].agent)
	assert.Equal(t, "The portal must support SSO.", sources.calls[0].content)
	meta, err := json.Marshal(sources.calls[0].metadata)
	require.NoError(t, err)
	assert.JSONEq(t, `{"source":"rfp.pdf","part":0}`, string(meta))
	repo.AssertExpectations(t)
}

func TestDocumentService_Create_ChunksLongSources(t *testing.T) {
	repo := new(MockDocumentRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	sources := &fakeSourceStore{result: resultstore.AppendResult{Success: true}}

	svc := newTestDocumentService(repo, sources, nil)
	svc.chunkCfg = ChunkConfig{MaxChars: 20, MinChars: 5, MaxChunks: 10}
	out, err := svc.Create(context.Background(), CreateDocumentInput{
		Title:   "Tender",
		Sources: []Source{{Name: "a", Content: strings.Repeat("word ", 12)}},
	})

	require.NoError(t, err)
	assert.Greater(t, out.ChunksStored, 1)
	assert.Len(t, sources.calls, out.ChunksStored)
}

func TestDocumentService_Create_Validation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateDocumentInput
		code  string
	}{
		{"missing title", CreateDocumentInput{Title: "  "}, domain.ErrCodeValidation},
		{"bad url", CreateDocumentInput{Title: "Tender", WebsiteURL: "ftp://acme.example"}, domain.ErrCodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockDocumentRepository)
			svc := newTestDocumentService(repo, nil, nil)

			_, err := svc.Create(context.Background(), tt.input)

			var de *domain.DomainError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.code, de.Code)
			repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestDocumentService_Create_StartsWorkflow(t *testing.T) {
	repo := new(MockDocumentRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	started := domain.NewDocument("doc-1", "Tender", "", "", fixedNow)
	started.Status = domain.StatusExtracting
	started.Version = 2
	repo.On("GetByID", mock.Anything, "doc-1").Return(started, nil)

	starter := new(MockStarter)
	starter.On("Trigger", mock.Anything, "doc-1").
		Return(workflow.TriggerResult{Triggered: true, Agent: domain.AgentExtract}, nil)

	svc := newTestDocumentService(repo, nil, starter)
	out, err := svc.Create(context.Background(), CreateDocumentInput{Title: "Tender", Start: true})

	require.NoError(t, err)
	require.NotNil(t, out.Workflow)
	assert.Equal(t, domain.AgentExtract, out.Workflow.Agent)
	assert.Equal(t, domain.StatusExtracting, out.Document.Status)
	starter.AssertExpectations(t)
}

func TestDocumentService_Create_IngestFailure(t *testing.T) {
	repo := new(MockDocumentRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	sources := &fakeSourceStore{result: resultstore.AppendResult{Error: "connection refused"}}

	svc := newTestDocumentService(repo, sources, nil)
	_, err := svc.Create(context.Background(), CreateDocumentInput{
		Title:   "Tender",
		Sources: []Source{{Name: "rfp", Content: "text"}},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "ingest source text: connection refused")
}

func TestDocumentService_Create_StoreDisabled(t *testing.T) {
	repo := new(MockDocumentRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(nil)
	sources := &fakeSourceStore{result: resultstore.AppendResult{Success: true, Skipped: true}}

	svc := newTestDocumentService(repo, sources, nil)
	out, err := svc.Create(context.Background(), CreateDocumentInput{
		Title:   "Tender",
		Sources: []Source{{Content: "text"}},
	})

	require.NoError(t, err)
	assert.Zero(t, out.ChunksStored)
}

func TestDocumentService_Create_RepositoryError(t *testing.T) {
	repo := new(MockDocumentRepository)
	repo.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	svc := newTestDocumentService(repo, nil, nil)
	_, err := svc.Create(context.Background(), CreateDocumentInput{Title: "Tender"})

	assert.EqualError(t, err, "create document: db down")
}

func TestDocumentService_List(t *testing.T) {
	docs := make([]*domain.Document, 0, 3)
	for i, id := range []string{"c", "b", "a"} {
		docs = append(docs, domain.NewDocument(id, "T", "", "", fixedNow.Add(-time.Duration(i)*time.Hour)))
	}

	repo := new(MockDocumentRepository)
	repo.On("List", mock.Anything, (*pagination.Cursor)(nil), 3).Return(docs, nil)

	svc := newTestDocumentService(repo, nil, nil)
	out, err := svc.List(context.Background(), "", 2)

	require.NoError(t, err)
	require.Len(t, out.Items, 2)
	assert.True(t, out.HasMore)

	cur, err := pagination.Decode(out.Cursor)
	require.NoError(t, err)
	assert.Equal(t, "b", cur.LastID)
	assert.True(t, cur.Timestamp.Equal(docs[1].CreatedAt))
}

func TestDocumentService_List_LastPage(t *testing.T) {
	repo := new(MockDocumentRepository)
	repo.On("List", mock.Anything, (*pagination.Cursor)(nil), pagination.DefaultLimit+1).Return([]*domain.Document{}, nil)

	svc := newTestDocumentService(repo, nil, nil)
	out, err := svc.List(context.Background(), "", 0)

	require.NoError(t, err)
	assert.False(t, out.HasMore)
	assert.Empty(t, out.Cursor)
}

func TestDocumentService_List_ClampsLimit(t *testing.T) {
	repo := new(MockDocumentRepository)
	repo.On("List", mock.Anything, (*pagination.Cursor)(nil), pagination.MaxLimit+1).Return([]*domain.Document{}, nil)

	svc := newTestDocumentService(repo, nil, nil)
	_, err := svc.List(context.Background(), "", 500)

	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestDocumentService_List_InvalidCursor(t *testing.T) {
	svc := newTestDocumentService(new(MockDocumentRepository), nil, nil)

	_, err := svc.List(context.Background(), "not base64!", 10)

	var de *domain.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, domain.ErrCodeValidation, de.Code)
}

func TestChunkText(t *testing.T) {
	assert.Nil(t, chunkText("   ", DefaultChunkConfig()))
	assert.Equal(t, []string{"short"}, chunkText(" short ", DefaultChunkConfig()))

	chunks := chunkText(strings.Repeat("abcd ", 100), ChunkConfig{MaxChars: 50, MinChars: 10, Overlap: 10, MaxChunks: 3})
	assert.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 50)
	}
}

func TestChunkText_PrefersParagraphs(t *testing.T) {
	text := "Section one text.\n\nSection two continues here with more words"
	chunks := chunkText(text, ChunkConfig{MaxChars: 30, MinChars: 5})

	require.NotEmpty(t, chunks)
	assert.Equal(t, "Section one text.", chunks[0])
}

func TestChunkText_PrefersSentenceOverSpace(t *testing.T) {
	text := "Deadline is 1 May. Submit via portal only please"
	chunks := chunkText(text, ChunkConfig{MaxChars: 30, MinChars: 5})

	require.NotEmpty(t, chunks)
	assert.Equal(t, "Deadline is 1 May.", chunks[0])
}
