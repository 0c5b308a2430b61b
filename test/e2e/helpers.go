//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/tenderflow/internal/app"
	"github.com/cloo-solutions/tenderflow/internal/audit"
	"github.com/cloo-solutions/tenderflow/internal/openai"
	"github.com/cloo-solutions/tenderflow/internal/testutil"
)

const embeddingDims = 1536

// E2ETestEnv holds all resources needed for E2E tests
type E2ETestEnv struct {
	T          *testing.T
	Ctx        context.Context
	PostgresC  *testutil.PostgresContainer
	Pool       *pgxpool.Pool
	App        *app.App
	Server     *httptest.Server
	Reports    *memoryReports
	Generator  *cannedGenerator
	HTTPClient *http.Client
	cancel     context.CancelFunc
}

// SetupE2EEnv starts Postgres, wires the app with offline collaborators and serves its router
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx, cancel := context.WithCancel(context.Background())

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	reports := &memoryReports{objects: map[string][]byte{}}
	gen := &cannedGenerator{}
	a := app.New(pool, app.Deps{
		Embedder:          constantEmbedder{},
		Generator:         gen,
		Auditor:           audit.New(staticSite(customerSite), 3),
		Reports:           reports,
		EmbeddingsEnabled: true,
		PollInterval:      100 * time.Millisecond,
	})
	go a.Worker.Start(ctx)

	return &E2ETestEnv{
		T:          t,
		Ctx:        ctx,
		PostgresC:  pgC,
		Pool:       pool,
		App:        a,
		Server:     httptest.NewServer(a.Router()),
		Reports:    reports,
		Generator:  gen,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
		cancel:     cancel,
	}
}

// Cleanup releases all resources
func (e *E2ETestEnv) Cleanup() {
	if e.Server != nil {
		e.Server.Close()
	}
	if e.App != nil {
		e.App.Worker.Stop()
	}
	e.cancel()
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(context.Background())
	}
}

// APIResponse represents a standard API response
type APIResponse struct {
	Status int
	Data   json.RawMessage `json:"data"`
	Error  string          `json:"error,omitempty"`
}

// Get performs a GET request
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil)
}

// Post performs a POST request
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body)
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}) (*APIResponse, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, e.Server.URL+path, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	apiResp := APIResponse{Status: resp.StatusCode}
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
	}
	if resp.StatusCode >= 400 {
		return &apiResp, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}
	return &apiResp, nil
}

// Decode unmarshals the data envelope into v
func (e *E2ETestEnv) Decode(resp *APIResponse, v interface{}) {
	e.T.Helper()
	if err := json.Unmarshal(resp.Data, v); err != nil {
		e.T.Fatalf("failed to decode response data: %v", err)
	}
}

type workflowView struct {
	Status      string `json:"status"`
	Label       string `json:"label"`
	NextAgent   string `json:"next_agent"`
	CanProceed  bool   `json:"can_proceed"`
	BlockReason string `json:"block_reason"`
	Decision    string `json:"decision"`
}

// WaitFor polls the workflow until done accepts the view
func (e *E2ETestEnv) WaitFor(documentID string, timeout time.Duration, done func(workflowView) bool) workflowView {
	e.T.Helper()
	deadline := time.Now().Add(timeout)
	var view workflowView
	for time.Now().Before(deadline) {
		resp, err := e.Get("/documents/" + documentID + "/workflow")
		if err != nil {
			e.T.Fatalf("failed to get workflow status: %v", err)
		}
		e.Decode(resp, &view)
		if done(view) {
			return view
		}
		time.Sleep(100 * time.Millisecond)
	}
	e.T.Fatalf("document %s did not settle within %v (last status %s)", documentID, timeout, view.Status)
	return view
}

// WaitForStatus polls the workflow until the document reaches status
func (e *E2ETestEnv) WaitForStatus(documentID, status string, timeout time.Duration) workflowView {
	e.T.Helper()
	return e.WaitFor(documentID, timeout, func(v workflowView) bool { return v.Status == status })
}

// constantEmbedder maps every text onto the same unit vector so similarity search always matches.
type constantEmbedder struct{}

func (constantEmbedder) GenerateEmbedding(_ context.Context, _ string) ([]float32, error) {
	v := make([]float32, embeddingDims)
	x := float32(1 / math.Sqrt(embeddingDims))
	for i := range v {
		v[i] = x
	}
	return v, nil
}

// cannedGenerator answers every request with the same JSON; fields a target does not know are ignored.
type cannedGenerator struct {
	mu    sync.Mutex
	calls int
}

const cannedAnswer = `{
  "confidence": 82,
  "verdict": "attractive",
  "summary": "Relaunch of the municipal utility website",
  "customer_name": "Stadtwerke Example",
  "project_title": "Website relaunch",
  "recommendation": "bid",
  "overall_score": 74,
  "headline": "Good fit for the web team"
}`

func (g *cannedGenerator) Generate(_ context.Context, _ openai.GenerateRequest, out any) error {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()
	return json.Unmarshal([]byte(cannedAnswer), out)
}

func (g *cannedGenerator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

// memoryReports stands in for object storage.
type memoryReports struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (r *memoryReports) PutReport(_ context.Context, key string, body []byte) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[key] = body
	return key, nil
}

func (r *memoryReports) Keys(prefix string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []string
	for k := range r.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys
}

// staticSite serves fixed pages in place of a rendered browser session.
type staticSite map[string]string

func (s staticSite) Fetch(_ context.Context, pageURL string) (string, error) {
	page, ok := s[strings.TrimSuffix(pageURL, "/")]
	if !ok {
		return "", fmt.Errorf("no page for %s", pageURL)
	}
	return page, nil
}

var customerSite = staticSite{
	"https://www.stadtwerke-example.de": `<html lang="de"><head><title>Stadtwerke Example</title></head><body>
<header><nav>
  <a href="/news/tarife">Tarife</a><a href="/news/netz">Netz</a><a href="/kontakt">Kontakt</a>
</nav></header>
<div class="hero"><img src="/hero.jpg"></div>
<form id="kontakt"><input type="text" name="name"><input type="email" name="mail"><textarea name="msg"></textarea></form>
<footer>Impressum</footer></body></html>`,
	"https://www.stadtwerke-example.de/news/tarife": `<html><body><article><h1>Neue Tarife</h1><p>Ab Januar gelten neue Tarife.</p></article></body></html>`,
}
