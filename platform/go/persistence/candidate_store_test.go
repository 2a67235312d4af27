package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func TestCandidateStoreTransitionsAndScoping(t *testing.T) {
	t.Parallel()

	if testing.Short() {
		t.Skip("skipping candidate store integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("gunderats"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("5432/tcp").WithStartupTimeout(2*time.Minute)),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = pgContainer.Terminate(context.Background())
	})

	connString, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, PoolConfig{ConnString: connString})
	require.NoError(t, err)
	t.Cleanup(func() { ClosePool(pool) })

	require.NoError(t, Bootstrap(ctx, pool))

	companyStore, err := NewCompanyStore(pool)
	require.NoError(t, err)
	jobStore, err := NewJobStore(pool)
	require.NoError(t, err)
	stageStore, err := NewStageStore(pool)
	require.NoError(t, err)
	candidateStore, err := NewCandidateStore(pool)
	require.NoError(t, err)

	actor := uuid.New()

	newCompany := func(name string) CompanyRecord {
		company, err := companyStore.CreateCompany(ctx, CompanyRecord{
			ID:       uuid.New(),
			Name:     name,
			Settings: []byte(`{}`),
		})
		require.NoError(t, err)
		return company
	}

	acme := newCompany("Acme Hiring")
	beta := newCompany("Beta Recruiting")

	job, err := jobStore.CreateJob(ctx, JobRecord{
		ID:        uuid.New(),
		CompanyID: acme.ID,
		Title:     "Backend Engineer",
		Status:    "published",
		CreatedBy: actor,
	})
	require.NoError(t, err)

	applied, err := stageStore.CreateStage(ctx, uuid.New(), acme.ID, "Applied")
	require.NoError(t, err)
	screening, err := stageStore.CreateStage(ctx, uuid.New(), acme.ID, "Screening")
	require.NoError(t, err)

	// Creating with an initial stage writes candidate and first event together.
	candidate, err := candidateStore.CreateCandidate(ctx, CandidateRecord{
		ID:             uuid.New(),
		CompanyID:      acme.ID,
		JobID:          job.ID,
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          "ada@example.com",
		CurrentStageID: &applied.ID,
		CreatedBy:      actor,
	})
	require.NoError(t, err)
	require.NotNil(t, candidate.CurrentStageID)
	require.Equal(t, applied.ID, *candidate.CurrentStageID)

	events, err := candidateStore.ListStageEvents(ctx, candidate.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	require.Equal(t, applied.ID, events[0].StageID)

	notes := "phone screen booked"
	moved, event, err := candidateStore.TransitionStage(ctx, acme.ID, candidate.ID, screening.ID, actor, &notes)
	require.NoError(t, err)
	require.Equal(t, screening.ID, *moved.CurrentStageID)
	require.Equal(t, screening.ID, event.StageID)
	require.NotNil(t, event.Notes)
	require.Equal(t, notes, *event.Notes)

	// Wrong company must not move the candidate nor leave a stray event.
	_, _, err = candidateStore.TransitionStage(ctx, beta.ID, candidate.ID, applied.ID, actor, nil)
	require.ErrorIs(t, err, ErrNotFound)

	events, err = candidateStore.ListStageEvents(ctx, candidate.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)

	unchanged, err := candidateStore.GetCandidate(ctx, acme.ID, candidate.ID)
	require.NoError(t, err)
	require.Equal(t, screening.ID, *unchanged.CurrentStageID)

	// Scoped reads: the other company cannot see the candidate at all.
	_, err = candidateStore.GetCandidate(ctx, beta.ID, candidate.ID)
	require.ErrorIs(t, err, ErrNotFound)

	listed, err := candidateStore.ListCandidates(ctx, beta.ID, ListCandidatesParams{})
	require.NoError(t, err)
	require.Empty(t, listed)

	// History survives stage deletion; the joined name degrades to nil.
	require.NoError(t, stageStore.DeleteStage(ctx, acme.ID, screening.ID))

	events, err = candidateStore.ListStageEvents(ctx, candidate.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Nil(t, events[0].StageName)
	require.NotNil(t, events[1].StageName)
	require.Equal(t, "Applied", *events[1].StageName)

	summaries, err := candidateStore.ListSummaries(ctx, acme.ID, ListCandidatesParams{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, "Backend Engineer", summaries[0].JobTitle)
	require.Nil(t, summaries[0].StageName)
}
