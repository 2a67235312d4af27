package repo

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wundergunder/gunderats/domains/documents/be/service"
)

// MemoryRepository is an in-memory implementation of the documents repository
// and candidate gateway, used by tests.
type MemoryRepository struct {
	mu         sync.Mutex
	documents  map[uuid.UUID]service.Document
	order      []uuid.UUID
	candidates map[uuid.UUID]uuid.UUID

	// FailCreate forces Create to fail, leaving the metadata side untouched.
	FailCreate error
}

var (
	_ service.Repository       = (*MemoryRepository)(nil)
	_ service.CandidateGateway = (*MemoryRepository)(nil)
)

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		documents:  map[uuid.UUID]service.Document{},
		candidates: map[uuid.UUID]uuid.UUID{},
	}
}

// SeedCandidate registers a candidate under a company.
func (r *MemoryRepository) SeedCandidate(companyID, candidateID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates[candidateID] = companyID
}

// Len reports how many document refs are stored.
func (r *MemoryRepository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.documents)
}

func (r *MemoryRepository) Create(_ context.Context, doc service.Document) (service.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailCreate != nil {
		return service.Document{}, r.FailCreate
	}

	doc.CreatedAt = time.Now().UTC()
	r.documents[doc.ID] = doc
	r.order = append(r.order, doc.ID)
	return doc, nil
}

func (r *MemoryRepository) Get(_ context.Context, id uuid.UUID) (service.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.documents[id]
	if !ok {
		return service.Document{}, service.ErrNotFound
	}
	return doc, nil
}

func (r *MemoryRepository) ListByCandidate(_ context.Context, candidateID uuid.UUID) ([]service.Document, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]service.Document, 0)
	for i := len(r.order) - 1; i >= 0; i-- {
		doc, ok := r.documents[r.order[i]]
		if ok && doc.CandidateID == candidateID {
			out = append(out, doc)
		}
	}
	return out, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.documents[id]; !ok {
		return service.ErrNotFound
	}
	delete(r.documents, id)
	return nil
}

func (r *MemoryRepository) CandidateExists(_ context.Context, companyID, candidateID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	owner, ok := r.candidates[candidateID]
	return ok && owner == companyID, nil
}
