package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wundergunder/gunderats/domains/candidates/be/service"
)

// MemoryRepository is an in-memory implementation of the candidates
// repository and both gateways, used by tests. The mutex keeps
// TransitionStage atomic: the pointer move and the event append are either
// both visible or neither is.
type MemoryRepository struct {
	mu         sync.Mutex
	candidates map[uuid.UUID]service.Candidate
	events     map[uuid.UUID][]service.StageEvent
	comments   map[uuid.UUID][]service.Comment

	jobs   map[uuid.UUID]service.JobRef
	jobCo  map[uuid.UUID]uuid.UUID
	stages map[uuid.UUID][]service.StageRef

	// FailTransition makes TransitionStage fail with no visible writes,
	// simulating a rolled back transaction.
	FailTransition error
}

var (
	_ service.Repository   = (*MemoryRepository)(nil)
	_ service.JobGateway   = (*MemoryRepository)(nil)
	_ service.StageGateway = (*MemoryRepository)(nil)
)

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		candidates: map[uuid.UUID]service.Candidate{},
		events:     map[uuid.UUID][]service.StageEvent{},
		comments:   map[uuid.UUID][]service.Comment{},
		jobs:       map[uuid.UUID]service.JobRef{},
		jobCo:      map[uuid.UUID]uuid.UUID{},
		stages:     map[uuid.UUID][]service.StageRef{},
	}
}

// SeedJob registers a job visible through the gateway.
func (r *MemoryRepository) SeedJob(companyID uuid.UUID, job service.JobRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs[job.ID] = job
	r.jobCo[job.ID] = companyID
}

// SeedStages replaces a company's pipeline, in order.
func (r *MemoryRepository) SeedStages(companyID uuid.UUID, stages ...service.StageRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages[companyID] = append([]service.StageRef(nil), stages...)
}

// RemoveStage drops a stage from the company's pipeline, leaving candidate
// pointers and events untouched, the way a forced stage delete does.
func (r *MemoryRepository) RemoveStage(companyID, stageID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	kept := make([]service.StageRef, 0)
	for _, s := range r.stages[companyID] {
		if s.ID != stageID {
			kept = append(kept, s)
		}
	}
	r.stages[companyID] = kept
}

func (r *MemoryRepository) Create(_ context.Context, candidate service.Candidate) (service.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()
	candidate.CreatedAt = now
	candidate.UpdatedAt = now
	r.candidates[candidate.ID] = candidate

	if candidate.CurrentStageID != nil {
		r.events[candidate.ID] = append(r.events[candidate.ID], service.StageEvent{
			ID:          uuid.New(),
			CandidateID: candidate.ID,
			StageID:     *candidate.CurrentStageID,
			StageName:   r.stageNameLocked(candidate.CompanyID, *candidate.CurrentStageID),
			CreatedBy:   candidate.CreatedBy,
			CreatedAt:   now,
		})
	}
	return candidate, nil
}

func (r *MemoryRepository) Get(_ context.Context, companyID, id uuid.UUID) (service.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(companyID, id)
}

func (r *MemoryRepository) List(_ context.Context, companyID uuid.UUID, filter service.ListFilter) ([]service.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]service.Candidate, 0)
	for _, c := range r.candidates {
		if !matches(c, companyID, filter) {
			continue
		}
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) ListSummaries(_ context.Context, companyID uuid.UUID, filter service.ListFilter) ([]service.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]service.Summary, 0)
	for _, c := range r.candidates {
		if !matches(c, companyID, filter) {
			continue
		}
		sum := service.Summary{Candidate: c}
		if job, ok := r.jobs[c.JobID]; ok {
			sum.JobTitle = job.Title
		}
		if c.CurrentStageID != nil {
			sum.StageName = r.stageNameLocked(companyID, *c.CurrentStageID)
		}
		out = append(out, sum)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Candidate.CreatedAt.After(out[j].Candidate.CreatedAt) })
	return out, nil
}

func (r *MemoryRepository) Update(_ context.Context, companyID, id uuid.UUID, input service.UpdateInput) (service.Candidate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	candidate, err := r.getLocked(companyID, id)
	if err != nil {
		return service.Candidate{}, err
	}

	if input.FirstName != nil {
		candidate.FirstName = *input.FirstName
	}
	if input.LastName != nil {
		candidate.LastName = *input.LastName
	}
	if input.Email != nil {
		candidate.Email = *input.Email
	}
	if input.Phone != nil {
		candidate.Phone = input.Phone
	}
	if input.Status != nil {
		candidate.Status = *input.Status
	}
	candidate.UpdatedAt = time.Now().UTC()
	r.candidates[id] = candidate
	return candidate, nil
}

func (r *MemoryRepository) TransitionStage(_ context.Context, companyID, candidateID, stageID, actor uuid.UUID, notes *string) (service.Candidate, service.StageEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailTransition != nil {
		return service.Candidate{}, service.StageEvent{}, r.FailTransition
	}

	candidate, err := r.getLocked(companyID, candidateID)
	if err != nil {
		return service.Candidate{}, service.StageEvent{}, err
	}

	stage := stageID
	candidate.CurrentStageID = &stage
	candidate.UpdatedAt = time.Now().UTC()
	r.candidates[candidateID] = candidate

	event := service.StageEvent{
		ID:          uuid.New(),
		CandidateID: candidateID,
		StageID:     stageID,
		StageName:   r.stageNameLocked(companyID, stageID),
		Notes:       notes,
		CreatedBy:   actor,
		CreatedAt:   candidate.UpdatedAt,
	}
	r.events[candidateID] = append(r.events[candidateID], event)
	return candidate, event, nil
}

func (r *MemoryRepository) ListStageEvents(_ context.Context, candidateID uuid.UUID) ([]service.StageEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Events are appended in order; newest first is the reverse.
	stored := r.events[candidateID]
	events := make([]service.StageEvent, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		events = append(events, stored[i])
	}
	return events, nil
}

func (r *MemoryRepository) AddComment(_ context.Context, comment service.Comment) (service.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	comment.CreatedAt = time.Now().UTC()
	r.comments[comment.CandidateID] = append(r.comments[comment.CandidateID], comment)
	return comment, nil
}

func (r *MemoryRepository) ListComments(_ context.Context, candidateID uuid.UUID) ([]service.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored := r.comments[candidateID]
	comments := make([]service.Comment, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		comments = append(comments, stored[i])
	}
	return comments, nil
}

func (r *MemoryRepository) GetJob(_ context.Context, companyID, jobID uuid.UUID) (service.JobRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[jobID]
	if !ok || r.jobCo[jobID] != companyID {
		return service.JobRef{}, service.ErrJobNotFound
	}
	return job, nil
}

func (r *MemoryRepository) GetStage(_ context.Context, companyID, stageID uuid.UUID) (service.StageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.stages[companyID] {
		if s.ID == stageID {
			return s, nil
		}
	}
	return service.StageRef{}, service.ErrStageNotFound
}

func (r *MemoryRepository) FirstStage(_ context.Context, companyID uuid.UUID) (*service.StageRef, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stages := r.stages[companyID]
	if len(stages) == 0 {
		return nil, nil
	}
	first := stages[0]
	return &first, nil
}

func (r *MemoryRepository) getLocked(companyID, id uuid.UUID) (service.Candidate, error) {
	candidate, ok := r.candidates[id]
	if !ok || candidate.CompanyID != companyID {
		return service.Candidate{}, service.ErrNotFound
	}
	return candidate, nil
}

func (r *MemoryRepository) stageNameLocked(companyID, stageID uuid.UUID) *string {
	for _, s := range r.stages[companyID] {
		if s.ID == stageID {
			name := s.Name
			return &name
		}
	}
	return nil
}

func matches(c service.Candidate, companyID uuid.UUID, filter service.ListFilter) bool {
	if c.CompanyID != companyID {
		return false
	}
	if filter.JobID != nil && c.JobID != *filter.JobID {
		return false
	}
	if filter.Status != nil && c.Status != *filter.Status {
		return false
	}
	return true
}
