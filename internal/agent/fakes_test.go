package agent

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/openai"
	"github.com/cloo-solutions/tenderflow/internal/resultstore"
	"github.com/cloo-solutions/tenderflow/internal/repository"
)

type fakeRetriever struct {
	mu        sync.Mutex
	results   []domain.RetrievalResult
	err       error
	calls     int
	questions [][]string
	limits    []int
}

func (r *fakeRetriever) QueryAll(_ context.Context, _ string, questions []string, maxResults int) ([]domain.RetrievalResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	r.questions = append(r.questions, questions)
	r.limits = append(r.limits, maxResults)
	if r.err != nil {
		return nil, r.err
	}
	return r.results, nil
}

type fakeGenerator struct {
	mu        sync.Mutex
	calls     int
	requests  []openai.GenerateRequest
	response  string
	err       error
	panicWith any
}

func (g *fakeGenerator) Generate(_ context.Context, req openai.GenerateRequest, out any) error {
	g.mu.Lock()
	g.calls++
	g.requests = append(g.requests, req)
	g.mu.Unlock()
	if g.panicWith != nil {
		panic(g.panicWith)
	}
	if g.err != nil {
		return g.err
	}
	return json.Unmarshal([]byte(g.response), out)
}

type appended struct {
	DocumentID string
	Agent      domain.AgentName
	Content    string
	Metadata   any
}

type fakeStore struct {
	mu      sync.Mutex
	appends []appended
	fail    string
}

func (s *fakeStore) Append(_ context.Context, documentID string, agent domain.AgentName, content string, metadata any) resultstore.AppendResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != "" {
		return resultstore.AppendResult{Error: s.fail, ChunkIndex: -1}
	}
	s.appends = append(s.appends, appended{documentID, agent, content, metadata})
	return resultstore.AppendResult{Success: true, ChunkIndex: len(s.appends) - 1}
}

type fakeChunks struct {
	chunks []*domain.EvidenceChunk
	err    error
}

func (c *fakeChunks) ListByAgents(_ context.Context, documentID string, agents []domain.AgentName) ([]*domain.EvidenceChunk, error) {
	if c.err != nil {
		return nil, c.err
	}
	allowed := map[domain.AgentName]bool{}
	for _, a := range agents {
		allowed[a] = true
	}
	var out []*domain.EvidenceChunk
	for _, ch := range c.chunks {
		if ch.DocumentID == documentID && allowed[ch.AgentName] {
			out = append(out, ch)
		}
	}
	return out, nil
}

func (c *fakeChunks) Latest(_ context.Context, documentID string, agent domain.AgentName) (*domain.EvidenceChunk, error) {
	var latest *domain.EvidenceChunk
	for _, ch := range c.chunks {
		if ch.DocumentID == documentID && ch.AgentName == agent {
			latest = ch
		}
	}
	if latest == nil {
		return nil, repository.ErrChunkNotFound
	}
	return latest, nil
}

type fakeDocs struct {
	mu            sync.Mutex
	docs          map[string]*domain.Document
	conflictsLeft int
	byCustomer    []*domain.Document
	extractions   int
	dupWrites     int
}

func newFakeDocs(docs ...*domain.Document) *fakeDocs {
	f := &fakeDocs{docs: map[string]*domain.Document{}}
	for _, d := range docs {
		f.docs[d.ID] = d
	}
	return f
}

func (f *fakeDocs) GetByID(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok {
		return nil, domain.ErrDocumentNotFound
	}
	return d.Clone(), nil
}

func (f *fakeDocs) write(id string, version int, apply func(d *domain.Document)) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.docs[id]
	if !ok {
		return 0, domain.ErrDocumentNotFound
	}
	if f.conflictsLeft > 0 {
		f.conflictsLeft--
		d.Version++
		return 0, domain.ErrVersionConflict
	}
	if d.Version != version {
		return 0, domain.ErrVersionConflict
	}
	apply(d)
	d.Version++
	return d.Version, nil
}

func (f *fakeDocs) UpdateExtraction(_ context.Context, id string, version int, req *domain.ExtractedRequirements) (int, error) {
	return f.write(id, version, func(d *domain.Document) {
		f.extractions++
		d.ExtractedRequirements = req
	})
}

func (f *fakeDocs) FindByCustomer(_ context.Context, _ string, _ string) ([]*domain.Document, error) {
	return f.byCustomer, nil
}

func (f *fakeDocs) UpdateDuplicateCheck(_ context.Context, id string, version int, result *domain.DuplicateCheckResult) (int, error) {
	return f.write(id, version, func(d *domain.Document) {
		f.dupWrites++
		d.DuplicateCheck = result
	})
}
