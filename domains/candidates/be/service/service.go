package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wundergunder/gunderats/platform/go/session"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

func (f FieldErrors) add(field, message string) {
	f[field] = append(f[field], message)
}

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Domain sentinel errors.
var (
	ErrNotFound      = errors.New("candidate not found")
	ErrJobNotFound   = errors.New("job not found")
	ErrJobNotOpen    = errors.New("job is not accepting candidates")
	ErrStageNotFound = errors.New("stage not found")
)

// Status of a candidate within the hiring process.
type Status string

const (
	StatusActive    Status = "active"
	StatusHired     Status = "hired"
	StatusRejected  Status = "rejected"
	StatusWithdrawn Status = "withdrawn"
)

func validStatus(s Status) bool {
	switch s {
	case StatusActive, StatusHired, StatusRejected, StatusWithdrawn:
		return true
	default:
		return false
	}
}

// Candidate is a person applying to one job. CurrentStageID may be nil when
// the pipeline was empty at creation, or dangle-free nil after a forced stage
// delete.
type Candidate struct {
	ID             uuid.UUID
	CompanyID      uuid.UUID
	JobID          uuid.UUID
	FirstName      string
	LastName       string
	Email          string
	Phone          *string
	CurrentStageID *uuid.UUID
	Status         Status
	CreatedBy      uuid.UUID
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// StageEvent is one immutable entry of a candidate's audit trail. StageName is
// nil when the referenced stage was deleted later.
type StageEvent struct {
	ID          uuid.UUID
	CandidateID uuid.UUID
	StageID     uuid.UUID
	StageName   *string
	Notes       *string
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
}

// Summary is the board projection: the candidate with job title and current
// stage name joined in.
type Summary struct {
	Candidate Candidate
	JobTitle  string
	StageName *string
}

// Comment is free-form collaboration text on a candidate. Append-only.
type Comment struct {
	ID          uuid.UUID
	CandidateID uuid.UUID
	Content     string
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
}

// JobRef is the slice of a job the candidates domain cares about.
type JobRef struct {
	ID     uuid.UUID
	Title  string
	Status string
}

// StageRef is the slice of a pipeline stage the candidates domain cares about.
type StageRef struct {
	ID   uuid.UUID
	Name string
}

// ListFilter narrows List and ListSummaries results.
type ListFilter struct {
	JobID  *uuid.UUID
	Status *Status
}

// CreateInput captures a new candidate. When InitialStageID is nil the first
// stage of the company's pipeline is used.
type CreateInput struct {
	JobID          uuid.UUID
	FirstName      string
	LastName       string
	Email          string
	Phone          *string
	InitialStageID *uuid.UUID
	CreatedBy      uuid.UUID
}

// UpdateInput represents editable candidate fields.
type UpdateInput struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	Status    *Status
}

// Repository abstracts persistence for candidates, stage events and comments.
type Repository interface {
	Create(ctx context.Context, candidate Candidate) (Candidate, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (Candidate, error)
	List(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Candidate, error)
	ListSummaries(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Summary, error)
	Update(ctx context.Context, companyID, id uuid.UUID, input UpdateInput) (Candidate, error)

	// TransitionStage moves the current stage pointer and appends the audit
	// event atomically: either both writes land or neither does.
	TransitionStage(ctx context.Context, companyID, candidateID, stageID, actor uuid.UUID, notes *string) (Candidate, StageEvent, error)
	ListStageEvents(ctx context.Context, candidateID uuid.UUID) ([]StageEvent, error)

	AddComment(ctx context.Context, comment Comment) (Comment, error)
	ListComments(ctx context.Context, candidateID uuid.UUID) ([]Comment, error)
}

// JobGateway resolves jobs owned by the jobs domain.
type JobGateway interface {
	GetJob(ctx context.Context, companyID, jobID uuid.UUID) (JobRef, error)
}

// StageGateway resolves pipeline stages owned by the pipeline domain.
type StageGateway interface {
	GetStage(ctx context.Context, companyID, stageID uuid.UUID) (StageRef, error)
	// FirstStage returns the stage at order index zero, or nil when the
	// pipeline is empty.
	FirstStage(ctx context.Context, companyID uuid.UUID) (*StageRef, error)
}

// Service provides candidate tracking operations.
type Service struct {
	repo   Repository
	jobs   JobGateway
	stages StageGateway
}

// New constructs a Service with required dependencies.
func New(repo Repository, jobs JobGateway, stages StageGateway) *Service {
	if repo == nil {
		panic("candidates repo is required")
	}
	if jobs == nil {
		panic("job gateway is required")
	}
	if stages == nil {
		panic("stage gateway is required")
	}
	return &Service{repo: repo, jobs: jobs, stages: stages}
}

// Create registers a candidate against a published job. The initial stage
// assignment is recorded as the first audit event in the same step.
func (s *Service) Create(ctx context.Context, sess session.Context, companyID uuid.UUID, input CreateInput) (Candidate, error) {
	if !sess.Authorized(companyID) {
		return Candidate{}, ErrNotFound
	}

	fieldErrors := FieldErrors{}
	firstName := strings.TrimSpace(input.FirstName)
	lastName := strings.TrimSpace(input.LastName)
	email := strings.TrimSpace(input.Email)
	if firstName == "" {
		fieldErrors.add("firstName", "first name is required")
	}
	if lastName == "" {
		fieldErrors.add("lastName", "last name is required")
	}
	if email == "" {
		fieldErrors.add("email", "email is required")
	} else if !strings.Contains(email, "@") {
		fieldErrors.add("email", "email is not valid")
	}
	if input.JobID == uuid.Nil {
		fieldErrors.add("jobId", "job id is required")
	}
	if len(fieldErrors) > 0 {
		return Candidate{}, &ValidationError{Fields: fieldErrors}
	}

	job, err := s.jobs.GetJob(ctx, companyID, input.JobID)
	if err != nil {
		return Candidate{}, err
	}
	if job.Status != "published" {
		return Candidate{}, ErrJobNotOpen
	}

	initialStage, err := s.resolveInitialStage(ctx, companyID, input.InitialStageID)
	if err != nil {
		return Candidate{}, err
	}

	return s.repo.Create(ctx, Candidate{
		ID:             uuid.New(),
		CompanyID:      companyID,
		JobID:          input.JobID,
		FirstName:      firstName,
		LastName:       lastName,
		Email:          email,
		Phone:          input.Phone,
		CurrentStageID: initialStage,
		Status:         StatusActive,
		CreatedBy:      input.CreatedBy,
	})
}

// Get returns a candidate within the session's scope.
func (s *Service) Get(ctx context.Context, sess session.Context, companyID, id uuid.UUID) (Candidate, error) {
	if !sess.Authorized(companyID) {
		return Candidate{}, ErrNotFound
	}
	return s.repo.Get(ctx, companyID, id)
}

// List returns the company's candidates, optionally filtered by job or status.
func (s *Service) List(ctx context.Context, sess session.Context, companyID uuid.UUID, filter ListFilter) ([]Candidate, error) {
	if !sess.Authorized(companyID) {
		return []Candidate{}, nil
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return s.repo.List(ctx, companyID, filter)
}

// ListSummaries returns the board projection of the company's candidates.
func (s *Service) ListSummaries(ctx context.Context, sess session.Context, companyID uuid.UUID, filter ListFilter) ([]Summary, error) {
	if !sess.Authorized(companyID) {
		return []Summary{}, nil
	}
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return s.repo.ListSummaries(ctx, companyID, filter)
}

// Update modifies candidate master data.
func (s *Service) Update(ctx context.Context, sess session.Context, companyID, id uuid.UUID, input UpdateInput) (Candidate, error) {
	if !sess.Authorized(companyID) {
		return Candidate{}, ErrNotFound
	}

	fieldErrors := FieldErrors{}
	if input.FirstName != nil && strings.TrimSpace(*input.FirstName) == "" {
		fieldErrors.add("firstName", "first name must not be empty")
	}
	if input.LastName != nil && strings.TrimSpace(*input.LastName) == "" {
		fieldErrors.add("lastName", "last name must not be empty")
	}
	if input.Email != nil && !strings.Contains(strings.TrimSpace(*input.Email), "@") {
		fieldErrors.add("email", "email is not valid")
	}
	if input.Status != nil && !validStatus(*input.Status) {
		fieldErrors.add("status", "status must be active, hired, rejected or withdrawn")
	}
	if len(fieldErrors) > 0 {
		return Candidate{}, &ValidationError{Fields: fieldErrors}
	}

	return s.repo.Update(ctx, companyID, id, input)
}

// TransitionStage moves a candidate to another stage of the company's
// pipeline. Moving back to an earlier stage is a regular transition: the
// pointer moves and another event is appended, nothing is rewritten. The
// stage must belong to the candidate's company.
func (s *Service) TransitionStage(ctx context.Context, sess session.Context, companyID, candidateID, stageID uuid.UUID, notes *string) (Candidate, StageEvent, error) {
	if !sess.Authorized(companyID) {
		return Candidate{}, StageEvent{}, ErrNotFound
	}

	if _, err := s.stages.GetStage(ctx, companyID, stageID); err != nil {
		return Candidate{}, StageEvent{}, err
	}

	return s.repo.TransitionStage(ctx, companyID, candidateID, stageID, sess.UserID, normalizeNotes(notes))
}

// StageHistory returns the candidate's full audit trail, newest first.
func (s *Service) StageHistory(ctx context.Context, sess session.Context, companyID, candidateID uuid.UUID) ([]StageEvent, error) {
	if !sess.Authorized(companyID) {
		return nil, ErrNotFound
	}
	if _, err := s.repo.Get(ctx, companyID, candidateID); err != nil {
		return nil, err
	}
	return s.repo.ListStageEvents(ctx, candidateID)
}

// AddComment posts a comment on a candidate. Comments are append-only.
func (s *Service) AddComment(ctx context.Context, sess session.Context, companyID, candidateID uuid.UUID, content string) (Comment, error) {
	if !sess.Authorized(companyID) {
		return Comment{}, ErrNotFound
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		fieldErrors := FieldErrors{}
		fieldErrors.add("content", "comment content is required")
		return Comment{}, &ValidationError{Fields: fieldErrors}
	}

	if _, err := s.repo.Get(ctx, companyID, candidateID); err != nil {
		return Comment{}, err
	}

	return s.repo.AddComment(ctx, Comment{
		ID:          uuid.New(),
		CandidateID: candidateID,
		Content:     trimmed,
		CreatedBy:   sess.UserID,
	})
}

// ListComments returns a candidate's comments, newest first.
func (s *Service) ListComments(ctx context.Context, sess session.Context, companyID, candidateID uuid.UUID) ([]Comment, error) {
	if !sess.Authorized(companyID) {
		return nil, ErrNotFound
	}
	if _, err := s.repo.Get(ctx, companyID, candidateID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, candidateID)
}

func (s *Service) resolveInitialStage(ctx context.Context, companyID uuid.UUID, explicit *uuid.UUID) (*uuid.UUID, error) {
	if explicit != nil {
		stage, err := s.stages.GetStage(ctx, companyID, *explicit)
		if err != nil {
			return nil, err
		}
		id := stage.ID
		return &id, nil
	}

	first, err := s.stages.FirstStage(ctx, companyID)
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, nil
	}
	id := first.ID
	return &id, nil
}

func validateFilter(filter ListFilter) error {
	if filter.Status != nil && !validStatus(*filter.Status) {
		fieldErrors := FieldErrors{}
		fieldErrors.add("status", "status must be active, hired, rejected or withdrawn")
		return &ValidationError{Fields: fieldErrors}
	}
	return nil
}

func normalizeNotes(notes *string) *string {
	if notes == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*notes)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
