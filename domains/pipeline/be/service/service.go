package service

import (
	"context"
	"errors"
	"fmt"
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
	ErrNotFound = errors.New("stage not found")
)

// StageInUseError blocks deletion while candidates still sit at the stage.
// Callers may retry with force, accepting dangling candidate pointers.
type StageInUseError struct {
	StageID      uuid.UUID
	CandidateIDs []uuid.UUID
}

func (e *StageInUseError) Error() string {
	return fmt.Sprintf("stage %s is referenced by %d candidates", e.StageID, len(e.CandidateIDs))
}

// Stage is one step of a company's hiring pipeline. Order is dense and
// zero-based within the company.
type Stage struct {
	ID         uuid.UUID
	CompanyID  uuid.UUID
	Name       string
	OrderIndex int
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Repository abstracts persistence for pipeline stages.
type Repository interface {
	CreateStage(ctx context.Context, companyID uuid.UUID, name string) (Stage, error)
	ListStages(ctx context.Context, companyID uuid.UUID) ([]Stage, error)
	GetStage(ctx context.Context, companyID, id uuid.UUID) (Stage, error)
	ReorderStages(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) error
	DeleteStage(ctx context.Context, companyID, id uuid.UUID) error
	ListCandidateIDsAtStage(ctx context.Context, companyID, stageID uuid.UUID) ([]uuid.UUID, error)
}

// Service provides pipeline configuration operations.
type Service struct {
	repo Repository
}

// New constructs a Service with required dependencies.
func New(repo Repository) *Service {
	if repo == nil {
		panic("pipeline repo is required")
	}
	return &Service{repo: repo}
}

// ListStages returns the company's stages in pipeline order.
func (s *Service) ListStages(ctx context.Context, sess session.Context, companyID uuid.UUID) ([]Stage, error) {
	if !sess.Authorized(companyID) {
		return []Stage{}, nil
	}
	return s.repo.ListStages(ctx, companyID)
}

// AddStage appends a stage to the end of the company's pipeline.
func (s *Service) AddStage(ctx context.Context, sess session.Context, companyID uuid.UUID, name string) (Stage, error) {
	if !sess.Authorized(companyID) {
		return Stage{}, ErrNotFound
	}

	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		fieldErrors := FieldErrors{}
		fieldErrors.add("name", "stage name is required")
		return Stage{}, &ValidationError{Fields: fieldErrors}
	}

	return s.repo.CreateStage(ctx, companyID, trimmed)
}

// ReorderStages rewrites the pipeline order. The ids must be a permutation of
// the company's current stage ids; anything missing, unknown or duplicated
// rejects the whole request and leaves the stored order untouched.
func (s *Service) ReorderStages(ctx context.Context, sess session.Context, companyID uuid.UUID, ids []uuid.UUID) ([]Stage, error) {
	if !sess.Authorized(companyID) {
		return nil, ErrNotFound
	}

	current, err := s.repo.ListStages(ctx, companyID)
	if err != nil {
		return nil, err
	}

	if err := validatePermutation(current, ids); err != nil {
		return nil, err
	}

	if err := s.repo.ReorderStages(ctx, companyID, ids); err != nil {
		return nil, err
	}

	return s.repo.ListStages(ctx, companyID)
}

// DeleteStage removes a stage. While candidates still point at the stage the
// call fails with StageInUseError unless force is set; a forced delete returns
// the candidates left with a dangling stage pointer. Historical stage events
// always survive.
func (s *Service) DeleteStage(ctx context.Context, sess session.Context, companyID, stageID uuid.UUID, force bool) ([]uuid.UUID, error) {
	if !sess.Authorized(companyID) {
		return nil, ErrNotFound
	}

	if _, err := s.repo.GetStage(ctx, companyID, stageID); err != nil {
		return nil, err
	}

	affected, err := s.repo.ListCandidateIDsAtStage(ctx, companyID, stageID)
	if err != nil {
		return nil, err
	}
	if len(affected) > 0 && !force {
		return nil, &StageInUseError{StageID: stageID, CandidateIDs: affected}
	}

	if err := s.repo.DeleteStage(ctx, companyID, stageID); err != nil {
		return nil, err
	}
	return affected, nil
}

func validatePermutation(current []Stage, ids []uuid.UUID) error {
	fieldErrors := FieldErrors{}

	if len(ids) != len(current) {
		fieldErrors.add("stageIds", fmt.Sprintf("expected %d stage ids, got %d", len(current), len(ids)))
		return &ValidationError{Fields: fieldErrors}
	}

	known := make(map[uuid.UUID]bool, len(current))
	for _, stage := range current {
		known[stage.ID] = true
	}

	seen := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if !known[id] {
			fieldErrors.add("stageIds", fmt.Sprintf("unknown stage id %s", id))
		}
		if seen[id] {
			fieldErrors.add("stageIds", fmt.Sprintf("duplicate stage id %s", id))
		}
		seen[id] = true
	}

	if len(fieldErrors) > 0 {
		return &ValidationError{Fields: fieldErrors}
	}
	return nil
}
