package domain

import (
	"fmt"
	"time"
)

// AgentJobStatus represents the status of a queued agent run
type AgentJobStatus string

const (
	AgentJobStatusPending    AgentJobStatus = "pending"
	AgentJobStatusProcessing AgentJobStatus = "processing"
	AgentJobStatusCompleted  AgentJobStatus = "completed"
	AgentJobStatusFailed     AgentJobStatus = "failed"
)

// AgentJob records that an agent must run for a document
type AgentJob struct {
	ID          string
	DocumentID  string
	AgentName   AgentName
	Status      AgentJobStatus
	Retries     int32
	Error       string
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// NewAgentJob creates a pending AgentJob
func NewAgentJob(id, documentID string, agent AgentName, createdAt time.Time) *AgentJob {
	return &AgentJob{
		ID:         id,
		DocumentID: documentID,
		AgentName:  agent,
		Status:     AgentJobStatusPending,
		CreatedAt:  createdAt,
	}
}

// ValidateAgentJob validates an AgentJob instance
func ValidateAgentJob(j *AgentJob) error {
	if j == nil {
		return fmt.Errorf("agent job cannot be nil")
	}

	if j.ID == "" {
		return fmt.Errorf("agent job ID is required")
	}

	if j.DocumentID == "" {
		return fmt.Errorf("agent job DocumentID is required")
	}

	if !j.AgentName.IsValid() {
		return fmt.Errorf("agent job AgentName is invalid: %s", j.AgentName)
	}

	if !isValidAgentJobStatus(j.Status) {
		return fmt.Errorf("%w: %s", ErrInvalidAgentJob, j.Status)
	}

	if j.Retries < 0 {
		return fmt.Errorf("agent job Retries cannot be negative")
	}

	return nil
}

func isValidAgentJobStatus(s AgentJobStatus) bool {
	switch s {
	case AgentJobStatusPending, AgentJobStatusProcessing,
		AgentJobStatusCompleted, AgentJobStatusFailed:
		return true
	}
	return false
}
