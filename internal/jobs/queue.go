package jobs

import (
	"context"
	"log"
	"time"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/google/uuid"
)

type JobStore interface {
	Create(ctx context.Context, job *domain.AgentJob) error
	HasOpenJob(ctx context.Context, documentID string, agent domain.AgentName) (bool, error)
}

// Waker is notified after a job was queued.
type Waker interface {
	Wake()
}

// Queue records agent runs for the worker. A run already pending or in progress is not queued twice.
type Queue struct {
	store JobStore
	waker Waker
	now   func() time.Time
	newID func() string
}

func NewQueue(store JobStore) *Queue {
	return &Queue{
		store: store,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// SetWaker connects the queue to the worker that drains it. Call it before the worker starts.
func (q *Queue) SetWaker(w Waker) {
	q.waker = w
}

func (q *Queue) Enqueue(ctx context.Context, documentID string, agent domain.AgentName) error {
	if !agent.IsValid() {
		return domain.ErrInvalidAgent
	}
	open, err := q.store.HasOpenJob(ctx, documentID, agent)
	if err != nil {
		return err
	}
	if open {
		log.Printf("jobs: %s already queued for document %s", agent, documentID)
		return nil
	}

	job := domain.NewAgentJob(q.newID(), documentID, agent, q.now())
	if err := domain.ValidateAgentJob(job); err != nil {
		return err
	}
	if err := q.store.Create(ctx, job); err != nil {
		return err
	}
	if q.waker != nil {
		q.waker.Wake()
	}
	return nil
}
