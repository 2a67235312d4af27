package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wundergunder/gunderats/domains/pipeline/be/repo"
	"github.com/wundergunder/gunderats/domains/pipeline/be/service"
	"github.com/wundergunder/gunderats/platform/go/session"
)

func sessionFor(companyID uuid.UUID) session.Context {
	return session.Context{
		UserID:               uuid.New(),
		AuthorizedCompanyIDs: []uuid.UUID{companyID},
		SelectedCompanyID:    companyID,
	}
}

func seedPipeline(t *testing.T, svc *service.Service, sess session.Context, companyID uuid.UUID, names ...string) []service.Stage {
	t.Helper()
	out := make([]service.Stage, 0, len(names))
	for _, name := range names {
		stage, err := svc.AddStage(context.Background(), sess, companyID, name)
		require.NoError(t, err)
		out = append(out, stage)
	}
	return out
}

func TestAddStageAppendsAtEnd(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository())
	companyID := uuid.New()
	sess := sessionFor(companyID)

	stages := seedPipeline(t, svc, sess, companyID, "Applied", "Interview")
	require.Equal(t, 0, stages[0].OrderIndex)
	require.Equal(t, 1, stages[1].OrderIndex)

	stage, err := svc.AddStage(context.Background(), sess, companyID, "  Offer  ")
	require.NoError(t, err)
	require.Equal(t, "Offer", stage.Name)
	require.Equal(t, 2, stage.OrderIndex)
}

func TestAddStageRejectsBlankName(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository())
	companyID := uuid.New()

	_, err := svc.AddStage(context.Background(), sessionFor(companyID), companyID, "   ")

	var validationErr *service.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "name")
}

func TestReorderStagesAppliesPermutation(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository())
	companyID := uuid.New()
	sess := sessionFor(companyID)
	stages := seedPipeline(t, svc, sess, companyID, "Applied", "Screening", "Interview")

	reordered, err := svc.ReorderStages(context.Background(), sess, companyID, []uuid.UUID{
		stages[2].ID, stages[0].ID, stages[1].ID,
	})
	require.NoError(t, err)
	require.Equal(t, []string{"Interview", "Applied", "Screening"}, stageNames(reordered))
	for i, stage := range reordered {
		require.Equal(t, i, stage.OrderIndex)
	}
}

func TestReorderStagesRejectsBadPermutations(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository())
	companyID := uuid.New()
	sess := sessionFor(companyID)
	stages := seedPipeline(t, svc, sess, companyID, "Applied", "Screening", "Interview")
	ctx := context.Background()

	cases := map[string][]uuid.UUID{
		"missing stage":   {stages[0].ID, stages[1].ID},
		"duplicate stage": {stages[0].ID, stages[1].ID, stages[1].ID},
		"unknown stage":   {stages[0].ID, stages[1].ID, uuid.New()},
	}

	for name, ids := range cases {
		_, err := svc.ReorderStages(ctx, sess, companyID, ids)
		var validationErr *service.ValidationError
		require.ErrorAs(t, err, &validationErr, name)

		// The stored order must be untouched after a rejected request.
		current, listErr := svc.ListStages(ctx, sess, companyID)
		require.NoError(t, listErr)
		require.Equal(t, []string{"Applied", "Screening", "Interview"}, stageNames(current), name)
	}
}

func TestDeleteStageBlockedWhileReferenced(t *testing.T) {
	t.Parallel()

	memory := repo.NewMemoryRepository()
	svc := service.New(memory)
	companyID := uuid.New()
	sess := sessionFor(companyID)
	stages := seedPipeline(t, svc, sess, companyID, "Applied", "Screening")

	candidateID := uuid.New()
	memory.CandidatesAtStage[stages[0].ID] = []uuid.UUID{candidateID}

	_, err := svc.DeleteStage(context.Background(), sess, companyID, stages[0].ID, false)
	var inUseErr *service.StageInUseError
	require.ErrorAs(t, err, &inUseErr)
	require.Equal(t, []uuid.UUID{candidateID}, inUseErr.CandidateIDs)

	// Still present.
	current, err := svc.ListStages(context.Background(), sess, companyID)
	require.NoError(t, err)
	require.Len(t, current, 2)
}

func TestDeleteStageForceReturnsAffectedCandidates(t *testing.T) {
	t.Parallel()

	memory := repo.NewMemoryRepository()
	svc := service.New(memory)
	companyID := uuid.New()
	sess := sessionFor(companyID)
	stages := seedPipeline(t, svc, sess, companyID, "Applied", "Screening")

	candidateID := uuid.New()
	memory.CandidatesAtStage[stages[0].ID] = []uuid.UUID{candidateID}

	affected, err := svc.DeleteStage(context.Background(), sess, companyID, stages[0].ID, true)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{candidateID}, affected)

	current, err := svc.ListStages(context.Background(), sess, companyID)
	require.NoError(t, err)
	require.Equal(t, []string{"Screening"}, stageNames(current))
}

func TestDeleteUnreferencedStage(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository())
	companyID := uuid.New()
	sess := sessionFor(companyID)
	stages := seedPipeline(t, svc, sess, companyID, "Applied", "Screening")

	affected, err := svc.DeleteStage(context.Background(), sess, companyID, stages[1].ID, false)
	require.NoError(t, err)
	require.Empty(t, affected)
}

func TestPipelineScopedToCompany(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository())
	companyID := uuid.New()
	sess := sessionFor(companyID)
	stages := seedPipeline(t, svc, sess, companyID, "Applied")

	otherSess := sessionFor(uuid.New())

	listed, err := svc.ListStages(context.Background(), otherSess, companyID)
	require.NoError(t, err)
	require.Empty(t, listed)

	_, err = svc.DeleteStage(context.Background(), otherSess, companyID, stages[0].ID, false)
	require.ErrorIs(t, err, service.ErrNotFound)
}

func stageNames(stages []service.Stage) []string {
	names := make([]string, 0, len(stages))
	for _, s := range stages {
		names = append(names, s.Name)
	}
	return names
}
