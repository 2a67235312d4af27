package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/wundergunder/gunderats/domains/candidates/be/service"
	"github.com/wundergunder/gunderats/platform/go/persistence"
)

// PostgresRepository implements service.Repository on top of the candidate and
// comment stores.
type PostgresRepository struct {
	candidates *persistence.CandidateStore
	comments   *persistence.CommentStore
}

var _ service.Repository = (*PostgresRepository)(nil)

// NewPostgresRepository constructs the repository. Panics on nil dependencies.
func NewPostgresRepository(candidates *persistence.CandidateStore, comments *persistence.CommentStore) *PostgresRepository {
	if candidates == nil || comments == nil {
		panic("candidate and comment stores are required")
	}
	return &PostgresRepository{candidates: candidates, comments: comments}
}

func (r *PostgresRepository) Create(ctx context.Context, candidate service.Candidate) (service.Candidate, error) {
	rec, err := r.candidates.CreateCandidate(ctx, persistence.CandidateRecord{
		ID:             candidate.ID,
		CompanyID:      candidate.CompanyID,
		JobID:          candidate.JobID,
		FirstName:      candidate.FirstName,
		LastName:       candidate.LastName,
		Email:          candidate.Email,
		Phone:          candidate.Phone,
		CurrentStageID: candidate.CurrentStageID,
		Status:         string(candidate.Status),
		CreatedBy:      candidate.CreatedBy,
	})
	if err != nil {
		return service.Candidate{}, mapErr(err)
	}
	return toCandidate(rec), nil
}

func (r *PostgresRepository) Get(ctx context.Context, companyID, id uuid.UUID) (service.Candidate, error) {
	rec, err := r.candidates.GetCandidate(ctx, companyID, id)
	if err != nil {
		return service.Candidate{}, mapErr(err)
	}
	return toCandidate(rec), nil
}

func (r *PostgresRepository) List(ctx context.Context, companyID uuid.UUID, filter service.ListFilter) ([]service.Candidate, error) {
	recs, err := r.candidates.ListCandidates(ctx, companyID, toListParams(filter))
	if err != nil {
		return nil, err
	}
	out := make([]service.Candidate, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toCandidate(rec))
	}
	return out, nil
}

func (r *PostgresRepository) ListSummaries(ctx context.Context, companyID uuid.UUID, filter service.ListFilter) ([]service.Summary, error) {
	recs, err := r.candidates.ListSummaries(ctx, companyID, toListParams(filter))
	if err != nil {
		return nil, err
	}
	out := make([]service.Summary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, service.Summary{
			Candidate: toCandidate(rec.Candidate),
			JobTitle:  rec.JobTitle,
			StageName: rec.StageName,
		})
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, companyID, id uuid.UUID, input service.UpdateInput) (service.Candidate, error) {
	params := persistence.UpdateCandidateParams{
		FirstName: input.FirstName,
		LastName:  input.LastName,
		Email:     input.Email,
		Phone:     input.Phone,
	}
	if input.Status != nil {
		status := string(*input.Status)
		params.Status = &status
	}

	rec, err := r.candidates.UpdateCandidate(ctx, companyID, id, params)
	if err != nil {
		return service.Candidate{}, mapErr(err)
	}
	return toCandidate(rec), nil
}

func (r *PostgresRepository) TransitionStage(ctx context.Context, companyID, candidateID, stageID, actor uuid.UUID, notes *string) (service.Candidate, service.StageEvent, error) {
	candidateRec, eventRec, err := r.candidates.TransitionStage(ctx, companyID, candidateID, stageID, actor, notes)
	if err != nil {
		return service.Candidate{}, service.StageEvent{}, mapErr(err)
	}
	return toCandidate(candidateRec), toStageEvent(eventRec), nil
}

func (r *PostgresRepository) ListStageEvents(ctx context.Context, candidateID uuid.UUID) ([]service.StageEvent, error) {
	recs, err := r.candidates.ListStageEvents(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	out := make([]service.StageEvent, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toStageEvent(rec))
	}
	return out, nil
}

func (r *PostgresRepository) AddComment(ctx context.Context, comment service.Comment) (service.Comment, error) {
	rec, err := r.comments.CreateComment(ctx, persistence.CommentRecord{
		ID:          comment.ID,
		CandidateID: comment.CandidateID,
		Content:     comment.Content,
		CreatedBy:   comment.CreatedBy,
	})
	if err != nil {
		return service.Comment{}, mapErr(err)
	}
	return toComment(rec), nil
}

func (r *PostgresRepository) ListComments(ctx context.Context, candidateID uuid.UUID) ([]service.Comment, error) {
	recs, err := r.comments.ListCommentsByCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	out := make([]service.Comment, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toComment(rec))
	}
	return out, nil
}

// JobGateway resolves jobs through the shared job store.
type JobGateway struct {
	jobs *persistence.JobStore
}

var _ service.JobGateway = (*JobGateway)(nil)

// NewJobGateway constructs the gateway. Panics on nil dependencies.
func NewJobGateway(jobs *persistence.JobStore) *JobGateway {
	if jobs == nil {
		panic("job store is required")
	}
	return &JobGateway{jobs: jobs}
}

func (g *JobGateway) GetJob(ctx context.Context, companyID, jobID uuid.UUID) (service.JobRef, error) {
	rec, err := g.jobs.GetJob(ctx, companyID, jobID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return service.JobRef{}, service.ErrJobNotFound
		}
		return service.JobRef{}, err
	}
	return service.JobRef{ID: rec.ID, Title: rec.Title, Status: rec.Status}, nil
}

// StageGateway resolves pipeline stages through the shared stage store.
type StageGateway struct {
	stages *persistence.StageStore
}

var _ service.StageGateway = (*StageGateway)(nil)

// NewStageGateway constructs the gateway. Panics on nil dependencies.
func NewStageGateway(stages *persistence.StageStore) *StageGateway {
	if stages == nil {
		panic("stage store is required")
	}
	return &StageGateway{stages: stages}
}

func (g *StageGateway) GetStage(ctx context.Context, companyID, stageID uuid.UUID) (service.StageRef, error) {
	rec, err := g.stages.GetStage(ctx, companyID, stageID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return service.StageRef{}, service.ErrStageNotFound
		}
		return service.StageRef{}, err
	}
	return service.StageRef{ID: rec.ID, Name: rec.Name}, nil
}

func (g *StageGateway) FirstStage(ctx context.Context, companyID uuid.UUID) (*service.StageRef, error) {
	recs, err := g.stages.ListStages(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &service.StageRef{ID: recs[0].ID, Name: recs[0].Name}, nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return service.ErrNotFound
	default:
		return err
	}
}

func toListParams(filter service.ListFilter) persistence.ListCandidatesParams {
	params := persistence.ListCandidatesParams{JobID: filter.JobID}
	if filter.Status != nil {
		status := string(*filter.Status)
		params.Status = &status
	}
	return params
}

func toCandidate(rec persistence.CandidateRecord) service.Candidate {
	return service.Candidate{
		ID:             rec.ID,
		CompanyID:      rec.CompanyID,
		JobID:          rec.JobID,
		FirstName:      rec.FirstName,
		LastName:       rec.LastName,
		Email:          rec.Email,
		Phone:          rec.Phone,
		CurrentStageID: rec.CurrentStageID,
		Status:         service.Status(rec.Status),
		CreatedBy:      rec.CreatedBy,
		CreatedAt:      rec.CreatedAt,
		UpdatedAt:      rec.UpdatedAt,
	}
}

func toStageEvent(rec persistence.StageEventRecord) service.StageEvent {
	return service.StageEvent{
		ID:          rec.ID,
		CandidateID: rec.CandidateID,
		StageID:     rec.StageID,
		StageName:   rec.StageName,
		Notes:       rec.Notes,
		CreatedBy:   rec.CreatedBy,
		CreatedAt:   rec.CreatedAt,
	}
}

func toComment(rec persistence.CommentRecord) service.Comment {
	return service.Comment{
		ID:          rec.ID,
		CandidateID: rec.CandidateID,
		Content:     rec.Content,
		CreatedBy:   rec.CreatedBy,
		CreatedAt:   rec.CreatedAt,
	}
}
