package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wundergunder/gunderats/domains/jobs/be/service"
)

// MemoryRepository is an in-memory service.Repository used by tests.
type MemoryRepository struct {
	mu   sync.Mutex
	jobs map[uuid.UUID]service.Job
}

var _ service.Repository = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{jobs: map[uuid.UUID]service.Job{}}
}

func (r *MemoryRepository) Create(_ context.Context, job service.Job) (service.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	job.CreatedAt = now
	job.UpdatedAt = now
	r.jobs[job.ID] = job
	return job, nil
}

func (r *MemoryRepository) Get(_ context.Context, companyID, id uuid.UUID) (service.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.CompanyID != companyID {
		return service.Job{}, service.ErrNotFound
	}
	return job, nil
}

func (r *MemoryRepository) List(_ context.Context, companyID uuid.UUID, filter service.ListFilter) ([]service.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]service.Job, 0)
	for _, job := range r.jobs {
		if job.CompanyID != companyID {
			continue
		}
		if filter.Status != nil && job.Status != *filter.Status {
			continue
		}
		out = append(out, job)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) Update(_ context.Context, companyID, id uuid.UUID, input service.UpdateInput) (service.Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[id]
	if !ok || job.CompanyID != companyID {
		return service.Job{}, service.ErrNotFound
	}

	if input.Title != nil {
		job.Title = *input.Title
	}
	if input.Description != nil {
		job.Description = input.Description
	}
	if input.Requirements != nil {
		job.Requirements = input.Requirements
	}
	if input.Status != nil {
		job.Status = *input.Status
	}
	if input.Location != nil {
		job.Location = input.Location
	}
	if input.ClearSalary {
		job.Salary = nil
	} else if input.Salary != nil {
		salary := *input.Salary
		job.Salary = &salary
	}

	job.UpdatedAt = time.Now().UTC()
	r.jobs[id] = job
	return job, nil
}
