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
	ErrNotFound = errors.New("job not found")
)

// Status of a job posting.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
	StatusClosed    Status = "closed"
)

func validStatus(s Status) bool {
	switch s {
	case StatusDraft, StatusPublished, StatusClosed:
		return true
	default:
		return false
	}
}

// Salary is an optional compensation band attached to a job.
type Salary struct {
	Min      int64
	Max      int64
	Currency string
}

// Job is an open position owned by one company. Candidates always apply to a
// specific job.
type Job struct {
	ID           uuid.UUID
	CompanyID    uuid.UUID
	Title        string
	Description  *string
	Requirements *string
	Status       Status
	Location     *string
	Salary       *Salary
	CreatedBy    uuid.UUID
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateInput captures a new job posting.
type CreateInput struct {
	Title        string
	Description  *string
	Requirements *string
	Status       Status
	Location     *string
	Salary       *Salary
	CreatedBy    uuid.UUID
}

// UpdateInput represents editable job fields. A non-nil Salary with ClearSalary
// unset replaces the band; ClearSalary drops it.
type UpdateInput struct {
	Title        *string
	Description  *string
	Requirements *string
	Status       *Status
	Location     *string
	Salary       *Salary
	ClearSalary  bool
}

// ListFilter narrows List results.
type ListFilter struct {
	Status *Status
}

// Repository abstracts persistence for jobs.
type Repository interface {
	Create(ctx context.Context, job Job) (Job, error)
	Get(ctx context.Context, companyID, id uuid.UUID) (Job, error)
	List(ctx context.Context, companyID uuid.UUID, filter ListFilter) ([]Job, error)
	Update(ctx context.Context, companyID, id uuid.UUID, input UpdateInput) (Job, error)
}

// Service provides job posting operations.
type Service struct {
	repo Repository
}

// New constructs a Service with required dependencies.
func New(repo Repository) *Service {
	if repo == nil {
		panic("jobs repo is required")
	}
	return &Service{repo: repo}
}

// Create registers a new job posting. New jobs default to draft status.
func (s *Service) Create(ctx context.Context, sess session.Context, companyID uuid.UUID, input CreateInput) (Job, error) {
	if !sess.Authorized(companyID) {
		return Job{}, ErrNotFound
	}

	fieldErrors := FieldErrors{}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		fieldErrors.add("title", "title is required")
	}

	status := input.Status
	if status == "" {
		status = StatusDraft
	}
	if !validStatus(status) {
		fieldErrors.add("status", "status must be draft, published or closed")
	}

	validateSalary(fieldErrors, input.Salary)

	if len(fieldErrors) > 0 {
		return Job{}, &ValidationError{Fields: fieldErrors}
	}

	return s.repo.Create(ctx, Job{
		ID:           uuid.New(),
		CompanyID:    companyID,
		Title:        title,
		Description:  input.Description,
		Requirements: input.Requirements,
		Status:       status,
		Location:     input.Location,
		Salary:       input.Salary,
		CreatedBy:    input.CreatedBy,
	})
}

// Get returns a job within the session's scope.
func (s *Service) Get(ctx context.Context, sess session.Context, companyID, id uuid.UUID) (Job, error) {
	if !sess.Authorized(companyID) {
		return Job{}, ErrNotFound
	}
	return s.repo.Get(ctx, companyID, id)
}

// List returns the company's jobs, optionally filtered by status.
func (s *Service) List(ctx context.Context, sess session.Context, companyID uuid.UUID, filter ListFilter) ([]Job, error) {
	if !sess.Authorized(companyID) {
		return []Job{}, nil
	}
	if filter.Status != nil && !validStatus(*filter.Status) {
		fieldErrors := FieldErrors{}
		fieldErrors.add("status", "status must be draft, published or closed")
		return nil, &ValidationError{Fields: fieldErrors}
	}
	return s.repo.List(ctx, companyID, filter)
}

// ListOfferable returns the jobs candidates may currently be attached to.
func (s *Service) ListOfferable(ctx context.Context, sess session.Context, companyID uuid.UUID) ([]Job, error) {
	published := StatusPublished
	return s.List(ctx, sess, companyID, ListFilter{Status: &published})
}

// Update modifies a job posting.
func (s *Service) Update(ctx context.Context, sess session.Context, companyID, id uuid.UUID, input UpdateInput) (Job, error) {
	if !sess.Authorized(companyID) {
		return Job{}, ErrNotFound
	}

	fieldErrors := FieldErrors{}

	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		fieldErrors.add("title", "title must not be empty")
	}
	if input.Status != nil && !validStatus(*input.Status) {
		fieldErrors.add("status", "status must be draft, published or closed")
	}
	if input.ClearSalary && input.Salary != nil {
		fieldErrors.add("salary", "cannot both set and clear the salary band")
	}
	validateSalary(fieldErrors, input.Salary)

	if len(fieldErrors) > 0 {
		return Job{}, &ValidationError{Fields: fieldErrors}
	}

	return s.repo.Update(ctx, companyID, id, input)
}

func validateSalary(fieldErrors FieldErrors, salary *Salary) {
	if salary == nil {
		return
	}
	if salary.Min < 0 {
		fieldErrors.add("salary", "salary minimum must not be negative")
	}
	if salary.Max < salary.Min {
		fieldErrors.add("salary", "salary maximum must be at least the minimum")
	}
	if strings.TrimSpace(salary.Currency) == "" {
		fieldErrors.add("salary", "salary currency is required")
	}
}
