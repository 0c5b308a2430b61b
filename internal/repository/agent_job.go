package repository

import (
	"context"
	"time"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

const agentJobColumns = `id, document_id, agent_name, status, retries, error, created_at, processed_at`

type AgentJobRepository struct {
	db dbtx
}

func NewAgentJobRepository(pool *pgxpool.Pool) *AgentJobRepository {
	return &AgentJobRepository{db: pool}
}

func (r *AgentJobRepository) Create(ctx context.Context, job *domain.AgentJob) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO agent_jobs (`+agentJobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		job.ID, job.DocumentID, string(job.AgentName), job.Status, job.Retries, nullableString(job.Error), job.CreatedAt, job.ProcessedAt,
	)
	return err
}

func (r *AgentJobRepository) GetByID(ctx context.Context, id string) (*domain.AgentJob, error) {
	rows, err := r.db.Query(ctx, `SELECT `+agentJobColumns+` FROM agent_jobs WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	jobs, err := scanAgentJobRows(rows)
	if err != nil {
		return nil, err
	}
	if len(jobs) == 0 {
		return nil, domain.ErrAgentJobNotFound
	}
	return jobs[0], nil
}

// HasOpenJob reports whether the agent is already queued or running for the document.
func (r *AgentJobRepository) HasOpenJob(ctx context.Context, documentID string, agent domain.AgentName) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (
			 SELECT 1 FROM agent_jobs
			 WHERE document_id = $1 AND agent_name = $2 AND status IN ($3, $4)
		 )`,
		documentID, string(agent), domain.AgentJobStatusPending, domain.AgentJobStatusProcessing,
	).Scan(&exists)
	return exists, err
}

// ClaimPending marks up to limit pending jobs as processing and returns them.
func (r *AgentJobRepository) ClaimPending(ctx context.Context, limit int) ([]*domain.AgentJob, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := r.db.Query(ctx,
		`WITH cte AS (
			 SELECT id
			 FROM agent_jobs
			 WHERE status = $1
			 ORDER BY created_at ASC
			 FOR UPDATE SKIP LOCKED
			 LIMIT $2
		 )
		 UPDATE agent_jobs
		 SET status = $3,
		     error = NULL,
		     processed_at = NULL
		 FROM cte
		 WHERE agent_jobs.id = cte.id
		 RETURNING agent_jobs.id, agent_jobs.document_id, agent_jobs.agent_name, agent_jobs.status,
		           agent_jobs.retries, agent_jobs.error, agent_jobs.created_at, agent_jobs.processed_at`,
		domain.AgentJobStatusPending, limit, domain.AgentJobStatusProcessing,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanAgentJobRows(rows)
}

func (r *AgentJobRepository) UpdateStatus(ctx context.Context, id string, status domain.AgentJobStatus, errMsg string) error {
	var processedAt *time.Time
	if status == domain.AgentJobStatusCompleted || status == domain.AgentJobStatusFailed {
		now := time.Now().UTC()
		processedAt = &now
	}

	cmdTag, err := r.db.Exec(ctx,
		`UPDATE agent_jobs SET status = $1, error = $2, processed_at = $3 WHERE id = $4`,
		status, nullableString(errMsg), processedAt, id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrAgentJobNotFound
	}
	return nil
}

func (r *AgentJobRepository) IncrementRetries(ctx context.Context, id string) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE agent_jobs SET retries = retries + 1 WHERE id = $1`,
		id,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrAgentJobNotFound
	}
	return nil
}

// GetPendingJobs claims the next batch for the background worker.
func (r *AgentJobRepository) GetPendingJobs(ctx context.Context) ([]*domain.AgentJob, error) {
	return r.ClaimPending(ctx, 10)
}

func (r *AgentJobRepository) UpdateJobStatus(ctx context.Context, jobID string, status domain.AgentJobStatus, errMsg string) error {
	return r.UpdateStatus(ctx, jobID, status, errMsg)
}

func scanAgentJobRows(rows pgx.Rows) ([]*domain.AgentJob, error) {
	var jobs []*domain.AgentJob
	for rows.Next() {
		var job domain.AgentJob
		var errMsg pgtype.Text
		var agent string
		if err := rows.Scan(&job.ID, &job.DocumentID, &agent, &job.Status, &job.Retries, &errMsg, &job.CreatedAt, &job.ProcessedAt); err != nil {
			return nil, err
		}
		job.AgentName = domain.AgentName(agent)
		if errMsg.Valid {
			job.Error = errMsg.String
		}
		jobs = append(jobs, &job)
	}
	return jobs, rows.Err()
}

