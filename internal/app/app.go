// Package app wires repositories, agents, the workflow and the job queue into
// the services behind the HTTP API and the admin commands.
package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cloo-solutions/tenderflow/internal/agent"
	"github.com/cloo-solutions/tenderflow/internal/api/handlers"
	"github.com/cloo-solutions/tenderflow/internal/jobs"
	"github.com/cloo-solutions/tenderflow/internal/metrics"
	"github.com/cloo-solutions/tenderflow/internal/orchestrator"
	"github.com/cloo-solutions/tenderflow/internal/pipeline"
	"github.com/cloo-solutions/tenderflow/internal/repository"
	"github.com/cloo-solutions/tenderflow/internal/resultstore"
	"github.com/cloo-solutions/tenderflow/internal/retrieval"
	"github.com/cloo-solutions/tenderflow/internal/server"
	"github.com/cloo-solutions/tenderflow/internal/service"
	"github.com/cloo-solutions/tenderflow/internal/workflow"
)

const defaultPollInterval = 5 * time.Second

type Embedder interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// Deps are the external collaborators. Reports may be nil.
type Deps struct {
	Embedder  Embedder
	Generator agent.Generator
	Auditor   agent.Auditor
	Reports   agent.ReportStore
	// EmbeddingsEnabled turns the result store on. When false, agent outputs and
	// sources are accepted but not stored.
	EmbeddingsEnabled bool
	PollInterval      time.Duration
}

type App struct {
	Metrics   *metrics.Metrics
	Documents *service.DocumentService
	Workflow  *service.WorkflowService
	Analysis  *service.AnalysisService
	Worker    *jobs.Worker
}

func New(pool *pgxpool.Pool, deps Deps) *App {
	m := metrics.New()
	docRepo := repository.NewDocumentRepository(pool)
	chunkRepo := repository.NewEvidenceChunkRepository(pool)
	jobRepo := repository.NewAgentJobRepository(pool)

	results := newResultStore(chunkRepo, deps)

	var retrievalEmbedder retrieval.Embedder
	if deps.Embedder != nil {
		retrievalEmbedder = deps.Embedder
	}
	retriever := retrieval.NewBuilder(retrievalEmbedder, chunkRepo)

	experts := orchestrator.New(
		agent.NewExpertUnits(retriever, deps.Generator, results),
		agent.NewSummaryUnit(chunkRepo, retriever, deps.Generator, results),
		m,
	)

	// Only units the workflow can select are dispatched; the experts run inside QuickScan.
	units := []agent.Runner{
		agent.NewExtractUnit(retriever, deps.Generator, results, docRepo),
		agent.NewDuplicateCheck(docRepo, results),
		pipeline.NewQuickScan(agent.NewWebsiteAudit(docRepo, deps.Auditor, results), experts),
		agent.NewTimeline(docRepo, chunkRepo, deps.Reports, results),
	}

	machine := workflow.NewMachine(docRepo, m)
	queue := jobs.NewQueue(jobRepo)
	dispatcher := pipeline.NewDispatcher(units, machine, queue)

	poll := deps.PollInterval
	if poll <= 0 {
		poll = defaultPollInterval
	}
	worker := jobs.NewWorker(jobs.NewAgentWorker(jobRepo, dispatcher, m), poll)
	queue.SetWaker(worker)

	workflowSvc := service.NewWorkflowService(machine, docRepo, dispatcher)

	return &App{
		Metrics:   m,
		Documents: service.NewDocumentService(docRepo, results, workflowSvc),
		Workflow:  workflowSvc,
		Analysis:  service.NewAnalysisService(docRepo, experts, dispatcher, chunkRepo),
		Worker:    worker,
	}
}

func newResultStore(chunks resultstore.ChunkAppender, deps Deps) *resultstore.Store {
	var embedder resultstore.Embedder
	if deps.Embedder != nil {
		embedder = deps.Embedder
	}
	if !deps.EmbeddingsEnabled {
		log.Printf("app: embeddings disabled, agent results will not be stored")
	}
	return resultstore.New(chunks, embedder, deps.EmbeddingsEnabled)
}

// Router returns the HTTP API over the app's services.
func (a *App) Router() http.Handler {
	return server.NewRouter(server.RouterConfig{
		DocumentHandler: handlers.NewDocumentHandler(a.Documents),
		WorkflowHandler: handlers.NewWorkflowHandler(a.Workflow),
		AnalysisHandler: handlers.NewAnalysisHandler(a.Analysis),
		Metrics:         a.Metrics.Handler(),
	})
}
