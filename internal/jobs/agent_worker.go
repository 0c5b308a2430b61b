package jobs

import (
	"context"
	"fmt"
	"log"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/metrics"
	"github.com/cloo-solutions/tenderflow/internal/pipeline"
	"github.com/cloo-solutions/tenderflow/internal/telemetry"
)

const (
	// MaxRetries is the maximum number of attempts for a job that hits a hard error
	MaxRetries = 3
)

// AgentJobRepository defines the interface for agent job persistence
type AgentJobRepository interface {
	// GetPendingJobs retrieves and claims pending agent jobs
	GetPendingJobs(ctx context.Context) ([]*domain.AgentJob, error)

	UpdateJobStatus(ctx context.Context, jobID string, status domain.AgentJobStatus, errMsg string) error

	IncrementRetries(ctx context.Context, jobID string) error
}

// Runner executes one agent for a document and advances the workflow.
type Runner interface {
	Run(ctx context.Context, documentID string, agent domain.AgentName) (pipeline.Report, error)
}

// AgentWorker processes queued agent runs.
type AgentWorker struct {
	repo    AgentJobRepository
	runner  Runner
	metrics *metrics.Metrics
}

func NewAgentWorker(repo AgentJobRepository, runner Runner, m *metrics.Metrics) *AgentWorker {
	return &AgentWorker{
		repo:    repo,
		runner:  runner,
		metrics: m,
	}
}

// ProcessJobs claims a batch of pending agent jobs and runs them in order.
func (w *AgentWorker) ProcessJobs(ctx context.Context) (int, error) {
	jobs, err := w.repo.GetPendingJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch pending jobs: %w", err)
	}

	if len(jobs) == 0 {
		return 0, nil
	}

	log.Printf("jobs: processing %d pending agent jobs", len(jobs))

	for _, job := range jobs {
		if err := w.processJob(ctx, job); err != nil {
			log.Printf("jobs: error processing job %s: %v", job.ID, err)
		}
	}

	return len(jobs), nil
}

func (w *AgentWorker) processJob(ctx context.Context, job *domain.AgentJob) error {
	log.Printf("jobs: running %s for document %s (job %s)", job.AgentName, job.DocumentID, job.ID)

	rep, err := w.runner.Run(ctx, job.DocumentID, job.AgentName)
	if err != nil {
		return w.handleJobFailure(ctx, job, err)
	}

	// A unit that reported failure ran to completion; running it again would not help.
	if !rep.Outcome.Success {
		if err := w.finish(ctx, job, domain.AgentJobStatusFailed, rep.Outcome.Error); err != nil {
			return err
		}
		log.Printf("jobs: job %s finished, agent %s reported failure: %s", job.ID, job.AgentName, rep.Outcome.Error)
		return nil
	}

	if err := w.finish(ctx, job, domain.AgentJobStatusCompleted, ""); err != nil {
		return err
	}
	log.Printf("jobs: job %s completed (next: triggered=%t agent=%s reason=%q)", job.ID, rep.Next.Triggered, rep.Next.Agent, rep.Next.Reason)
	return nil
}

func (w *AgentWorker) finish(ctx context.Context, job *domain.AgentJob, status domain.AgentJobStatus, errMsg string) error {
	if err := w.repo.UpdateJobStatus(ctx, job.ID, status, errMsg); err != nil {
		return fmt.Errorf("failed to update job status to %s: %w", status, err)
	}
	w.metrics.ObserveJob(job.AgentName, status)
	return nil
}

// handleJobFailure handles a hard error with retry logic
func (w *AgentWorker) handleJobFailure(ctx context.Context, job *domain.AgentJob, jobErr error) error {
	log.Printf("jobs: job %s failed: %v", job.ID, jobErr)

	if err := w.repo.IncrementRetries(ctx, job.ID); err != nil {
		return fmt.Errorf("failed to increment retries: %w", err)
	}

	if job.Retries+1 >= MaxRetries {
		log.Printf("jobs: job %s exceeded max retries (%d), marking as failed", job.ID, MaxRetries)
		telemetry.CaptureError(ctx, fmt.Errorf("agent job %s: %w", job.ID, jobErr), telemetry.SpanAttributes{
			DocumentID: job.DocumentID,
			Agent:      string(job.AgentName),
			Operation:  "agent_job",
		})
		return w.finish(ctx, job, domain.AgentJobStatusFailed, fmt.Sprintf("max retries exceeded: %v", jobErr))
	}

	log.Printf("jobs: job %s will be retried (attempt %d/%d)", job.ID, job.Retries+1, MaxRetries)
	errMsg := fmt.Sprintf("retry %d: %v", job.Retries+1, jobErr)
	if err := w.repo.UpdateJobStatus(ctx, job.ID, domain.AgentJobStatusPending, errMsg); err != nil {
		return fmt.Errorf("failed to reset job status to pending: %w", err)
	}

	return nil
}
