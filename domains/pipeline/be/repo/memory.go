package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wundergunder/gunderats/domains/pipeline/be/service"
)

// MemoryRepository is an in-memory service.Repository used by tests. The
// mutex keeps ReorderStages atomic: either all order indexes move or none do.
type MemoryRepository struct {
	mu     sync.Mutex
	stages map[uuid.UUID]service.Stage

	// CandidatesAtStage lets tests simulate candidate pointers without the
	// candidates domain.
	CandidatesAtStage map[uuid.UUID][]uuid.UUID

	// FailReorder forces ReorderStages to fail before any index is written.
	FailReorder error
}

var _ service.Repository = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		stages:            map[uuid.UUID]service.Stage{},
		CandidatesAtStage: map[uuid.UUID][]uuid.UUID{},
	}
}

func (r *MemoryRepository) CreateStage(_ context.Context, companyID uuid.UUID, name string) (service.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, stage := range r.stages {
		if stage.CompanyID == companyID {
			count++
		}
	}

	now := time.Now().UTC()
	stage := service.Stage{
		ID:         uuid.New(),
		CompanyID:  companyID,
		Name:       name,
		OrderIndex: count,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.stages[stage.ID] = stage
	return stage, nil
}

func (r *MemoryRepository) ListStages(_ context.Context, companyID uuid.UUID) ([]service.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]service.Stage, 0)
	for _, stage := range r.stages {
		if stage.CompanyID == companyID {
			out = append(out, stage)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OrderIndex < out[j].OrderIndex })
	return out, nil
}

func (r *MemoryRepository) GetStage(_ context.Context, companyID, id uuid.UUID) (service.Stage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stage, ok := r.stages[id]
	if !ok || stage.CompanyID != companyID {
		return service.Stage{}, service.ErrNotFound
	}
	return stage, nil
}

func (r *MemoryRepository) ReorderStages(_ context.Context, companyID uuid.UUID, ids []uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailReorder != nil {
		return r.FailReorder
	}

	for _, id := range ids {
		stage, ok := r.stages[id]
		if !ok || stage.CompanyID != companyID {
			return service.ErrNotFound
		}
	}

	now := time.Now().UTC()
	for position, id := range ids {
		stage := r.stages[id]
		stage.OrderIndex = position
		stage.UpdatedAt = now
		r.stages[id] = stage
	}
	return nil
}

func (r *MemoryRepository) DeleteStage(_ context.Context, companyID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	stage, ok := r.stages[id]
	if !ok || stage.CompanyID != companyID {
		return service.ErrNotFound
	}
	delete(r.stages, id)
	return nil
}

func (r *MemoryRepository) ListCandidateIDsAtStage(_ context.Context, _ uuid.UUID, stageID uuid.UUID) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]uuid.UUID(nil), r.CandidatesAtStage[stageID]...), nil
}

// Seed inserts a stage directly, bypassing append ordering. Tests only.
func (r *MemoryRepository) Seed(stage service.Stage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[stage.ID] = stage
}
