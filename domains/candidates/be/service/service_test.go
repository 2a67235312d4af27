package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wundergunder/gunderats/domains/candidates/be/repo"
	"github.com/wundergunder/gunderats/domains/candidates/be/service"
	"github.com/wundergunder/gunderats/platform/go/session"
)

type fixture struct {
	repo      *repo.MemoryRepository
	svc       *service.Service
	companyID uuid.UUID
	sess      session.Context
	jobID     uuid.UUID
	applied   service.StageRef
	screening service.StageRef
	interview service.StageRef
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	memory := repo.NewMemoryRepository()
	companyID := uuid.New()
	jobID := uuid.New()
	memory.SeedJob(companyID, service.JobRef{ID: jobID, Title: "Backend Engineer", Status: "published"})

	applied := service.StageRef{ID: uuid.New(), Name: "Applied"}
	screening := service.StageRef{ID: uuid.New(), Name: "Screening"}
	interview := service.StageRef{ID: uuid.New(), Name: "Interview"}
	memory.SeedStages(companyID, applied, screening, interview)

	return &fixture{
		repo:      memory,
		svc:       service.New(memory, memory, memory),
		companyID: companyID,
		sess: session.Context{
			UserID:               uuid.New(),
			AuthorizedCompanyIDs: []uuid.UUID{companyID},
			SelectedCompanyID:    companyID,
		},
		jobID:     jobID,
		applied:   applied,
		screening: screening,
		interview: interview,
	}
}

func (f *fixture) createCandidate(t *testing.T) service.Candidate {
	t.Helper()
	candidate, err := f.svc.Create(context.Background(), f.sess, f.companyID, service.CreateInput{
		JobID:     f.jobID,
		FirstName: "Dana",
		LastName:  "Miller",
		Email:     "dana@example.com",
		CreatedBy: f.sess.UserID,
	})
	require.NoError(t, err)
	return candidate
}

func TestCreateCandidateStartsAtFirstStage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	candidate := f.createCandidate(t)

	require.Equal(t, service.StatusActive, candidate.Status)
	require.NotNil(t, candidate.CurrentStageID)
	require.Equal(t, f.applied.ID, *candidate.CurrentStageID)

	// The initial assignment is already part of the audit trail.
	history, err := f.svc.StageHistory(context.Background(), f.sess, f.companyID, candidate.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, f.applied.ID, history[0].StageID)
}

func TestCreateCandidateRejectsUnpublishedJob(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	draftJob := uuid.New()
	f.repo.SeedJob(f.companyID, service.JobRef{ID: draftJob, Title: "Draft Role", Status: "draft"})

	_, err := f.svc.Create(context.Background(), f.sess, f.companyID, service.CreateInput{
		JobID:     draftJob,
		FirstName: "Dana",
		LastName:  "Miller",
		Email:     "dana@example.com",
	})
	require.ErrorIs(t, err, service.ErrJobNotOpen)
}

func TestCreateCandidateRejectsJobFromAnotherCompany(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	foreignJob := uuid.New()
	f.repo.SeedJob(uuid.New(), service.JobRef{ID: foreignJob, Title: "Elsewhere", Status: "published"})

	_, err := f.svc.Create(context.Background(), f.sess, f.companyID, service.CreateInput{
		JobID:     foreignJob,
		FirstName: "Dana",
		LastName:  "Miller",
		Email:     "dana@example.com",
	})
	require.ErrorIs(t, err, service.ErrJobNotFound)
}

func TestCreateCandidateWithEmptyPipeline(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.repo.SeedStages(f.companyID)

	candidate := f.createCandidate(t)
	require.Nil(t, candidate.CurrentStageID)

	history, err := f.svc.StageHistory(context.Background(), f.sess, f.companyID, candidate.ID)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestCreateCandidateValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), f.sess, f.companyID, service.CreateInput{
		JobID: f.jobID,
		Email: "not-an-email",
	})

	var validationErr *service.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "firstName")
	require.Contains(t, validationErr.Fields, "lastName")
	require.Contains(t, validationErr.Fields, "email")
}

func TestTransitionMovesPointerAndAppendsEvent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	candidate := f.createCandidate(t)
	ctx := context.Background()

	notes := "phone screen booked"
	updated, event, err := f.svc.TransitionStage(ctx, f.sess, f.companyID, candidate.ID, f.screening.ID, &notes)
	require.NoError(t, err)
	require.Equal(t, f.screening.ID, *updated.CurrentStageID)
	require.Equal(t, f.screening.ID, event.StageID)
	require.Equal(t, f.sess.UserID, event.CreatedBy)
	require.NotNil(t, event.Notes)
	require.Equal(t, "phone screen booked", *event.Notes)

	history, err := f.svc.StageHistory(ctx, f.sess, f.companyID, candidate.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, f.screening.ID, history[0].StageID)
	require.Equal(t, f.applied.ID, history[1].StageID)
}

func TestTransitionBackwardsKeepsFullTrail(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	candidate := f.createCandidate(t)
	ctx := context.Background()

	_, _, err := f.svc.TransitionStage(ctx, f.sess, f.companyID, candidate.ID, f.screening.ID, nil)
	require.NoError(t, err)

	// Moving back is a regular forward append, never a rewrite.
	updated, _, err := f.svc.TransitionStage(ctx, f.sess, f.companyID, candidate.ID, f.applied.ID, nil)
	require.NoError(t, err)
	require.Equal(t, f.applied.ID, *updated.CurrentStageID)

	history, err := f.svc.StageHistory(ctx, f.sess, f.companyID, candidate.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	require.Equal(t, f.applied.ID, history[0].StageID)
	require.Equal(t, f.screening.ID, history[1].StageID)
	require.Equal(t, f.applied.ID, history[2].StageID)
}

func TestTransitionRejectsForeignStage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	candidate := f.createCandidate(t)

	otherCompany := uuid.New()
	foreignStage := service.StageRef{ID: uuid.New(), Name: "Elsewhere"}
	f.repo.SeedStages(otherCompany, foreignStage)

	_, _, err := f.svc.TransitionStage(context.Background(), f.sess, f.companyID, candidate.ID, foreignStage.ID, nil)
	require.ErrorIs(t, err, service.ErrStageNotFound)

	// The pointer and the trail are untouched.
	current, err := f.svc.Get(context.Background(), f.sess, f.companyID, candidate.ID)
	require.NoError(t, err)
	require.Equal(t, f.applied.ID, *current.CurrentStageID)

	history, err := f.svc.StageHistory(context.Background(), f.sess, f.companyID, candidate.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestTransitionFailureLeavesNoPartialWrites(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	candidate := f.createCandidate(t)
	ctx := context.Background()

	f.repo.FailTransition = errors.New("connection reset")
	_, _, err := f.svc.TransitionStage(ctx, f.sess, f.companyID, candidate.ID, f.screening.ID, nil)
	require.Error(t, err)
	f.repo.FailTransition = nil

	current, err := f.svc.Get(ctx, f.sess, f.companyID, candidate.ID)
	require.NoError(t, err)
	require.Equal(t, f.applied.ID, *current.CurrentStageID)

	history, err := f.svc.StageHistory(ctx, f.sess, f.companyID, candidate.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
}

func TestHistorySurvivesStageDeletion(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	candidate := f.createCandidate(t)
	ctx := context.Background()

	_, _, err := f.svc.TransitionStage(ctx, f.sess, f.companyID, candidate.ID, f.screening.ID, nil)
	require.NoError(t, err)

	f.repo.RemoveStage(f.companyID, f.screening.ID)

	history, err := f.svc.StageHistory(ctx, f.sess, f.companyID, candidate.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, f.screening.ID, history[0].StageID)
}

func TestTenantIsolation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	candidate := f.createCandidate(t)
	ctx := context.Background()

	otherCompany := uuid.New()
	otherSess := session.Context{
		UserID:               uuid.New(),
		AuthorizedCompanyIDs: []uuid.UUID{otherCompany},
		SelectedCompanyID:    otherCompany,
	}

	_, err := f.svc.Get(ctx, otherSess, f.companyID, candidate.ID)
	require.ErrorIs(t, err, service.ErrNotFound)

	_, _, err = f.svc.TransitionStage(ctx, otherSess, f.companyID, candidate.ID, f.screening.ID, nil)
	require.ErrorIs(t, err, service.ErrNotFound)

	listed, err := f.svc.List(ctx, otherSess, f.companyID, service.ListFilter{})
	require.NoError(t, err)
	require.Empty(t, listed)

	// Same candidate id fetched through the wrong-but-authorized company is
	// still invisible.
	_, err = f.svc.Get(ctx, otherSess, otherCompany, candidate.ID)
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestListSummariesJoinsJobAndStage(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	candidate := f.createCandidate(t)
	ctx := context.Background()

	summaries, err := f.svc.ListSummaries(ctx, f.sess, f.companyID, service.ListFilter{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Equal(t, candidate.ID, summaries[0].Candidate.ID)
	require.Equal(t, "Backend Engineer", summaries[0].JobTitle)
	require.NotNil(t, summaries[0].StageName)
	require.Equal(t, "Applied", *summaries[0].StageName)

	// A dangling stage pointer renders with a nil stage name.
	f.repo.RemoveStage(f.companyID, f.applied.ID)
	summaries, err = f.svc.ListSummaries(ctx, f.sess, f.companyID, service.ListFilter{})
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	require.Nil(t, summaries[0].StageName)
}

func TestCommentsAppendOnly(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	candidate := f.createCandidate(t)
	ctx := context.Background()

	_, err := f.svc.AddComment(ctx, f.sess, f.companyID, candidate.ID, "  ")
	var validationErr *service.ValidationError
	require.ErrorAs(t, err, &validationErr)

	first, err := f.svc.AddComment(ctx, f.sess, f.companyID, candidate.ID, "strong portfolio")
	require.NoError(t, err)
	require.Equal(t, f.sess.UserID, first.CreatedBy)

	_, err = f.svc.AddComment(ctx, f.sess, f.companyID, candidate.ID, "call scheduled")
	require.NoError(t, err)

	comments, err := f.svc.ListComments(ctx, f.sess, f.companyID, candidate.ID)
	require.NoError(t, err)
	require.Len(t, comments, 2)
	require.Equal(t, "call scheduled", comments[0].Content)
	require.Equal(t, "strong portfolio", comments[1].Content)
}

func TestUpdateCandidateStatus(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	candidate := f.createCandidate(t)
	ctx := context.Background()

	bad := service.Status("archived")
	_, err := f.svc.Update(ctx, f.sess, f.companyID, candidate.ID, service.UpdateInput{Status: &bad})
	var validationErr *service.ValidationError
	require.ErrorAs(t, err, &validationErr)

	hired := service.StatusHired
	updated, err := f.svc.Update(ctx, f.sess, f.companyID, candidate.ID, service.UpdateInput{Status: &hired})
	require.NoError(t, err)
	require.Equal(t, service.StatusHired, updated.Status)
}
