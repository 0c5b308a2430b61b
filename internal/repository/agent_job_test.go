//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/cloo-solutions/tenderflow/internal/domain"
	"github.com/cloo-solutions/tenderflow/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAgentJobRepository_Lifecycle(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	docs := NewDocumentRepository(pool)
	doc := newTestDocument("ACME")
	require.NoError(t, docs.Create(ctx, doc))

	repo := NewAgentJobRepository(pool)
	job := domain.NewAgentJob(uuid.NewString(), doc.ID, domain.AgentExtract, time.Now().UTC())
	require.NoError(t, repo.Create(ctx, job))

	open, err := repo.HasOpenJob(ctx, doc.ID, domain.AgentExtract)
	require.NoError(t, err)
	assert.True(t, open)

	claimed, err := repo.ClaimPending(ctx, 5)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	assert.Equal(t, domain.AgentJobStatusProcessing, claimed[0].Status)
	assert.Equal(t, domain.AgentExtract, claimed[0].AgentName)

	again, err := repo.ClaimPending(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, again)

	require.NoError(t, repo.IncrementRetries(ctx, job.ID))
	require.NoError(t, repo.UpdateStatus(ctx, job.ID, domain.AgentJobStatusCompleted, ""))

	got, err := repo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AgentJobStatusCompleted, got.Status)
	assert.Equal(t, int32(1), got.Retries)
	assert.NotNil(t, got.ProcessedAt)

	open, err = repo.HasOpenJob(ctx, doc.ID, domain.AgentExtract)
	require.NoError(t, err)
	assert.False(t, open)

	assert.ErrorIs(t, repo.UpdateStatus(ctx, uuid.NewString(), domain.AgentJobStatusFailed, "x"), domain.ErrAgentJobNotFound)
}
