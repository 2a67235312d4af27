package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/wundergunder/gunderats/domains/documents/be/service"
	"github.com/wundergunder/gunderats/platform/go/persistence"
)

// PostgresRepository implements service.Repository on top of the document store.
type PostgresRepository struct {
	documents *persistence.DocumentStore
}

var _ service.Repository = (*PostgresRepository)(nil)

// NewPostgresRepository constructs the repository. Panics on nil dependencies.
func NewPostgresRepository(documents *persistence.DocumentStore) *PostgresRepository {
	if documents == nil {
		panic("document store is required")
	}
	return &PostgresRepository{documents: documents}
}

func (r *PostgresRepository) Create(ctx context.Context, doc service.Document) (service.Document, error) {
	rec, err := r.documents.CreateDocument(ctx, persistence.DocumentRecord{
		ID:          doc.ID,
		CandidateID: doc.CandidateID,
		Type:        string(doc.Type),
		Name:        doc.Name,
		StoragePath: doc.StoragePath,
		CreatedBy:   doc.CreatedBy,
	})
	if err != nil {
		return service.Document{}, mapErr(err)
	}
	return toDocument(rec), nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (service.Document, error) {
	rec, err := r.documents.GetDocument(ctx, id)
	if err != nil {
		return service.Document{}, mapErr(err)
	}
	return toDocument(rec), nil
}

func (r *PostgresRepository) ListByCandidate(ctx context.Context, candidateID uuid.UUID) ([]service.Document, error) {
	recs, err := r.documents.ListDocumentsByCandidate(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	out := make([]service.Document, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toDocument(rec))
	}
	return out, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.documents.DeleteDocument(ctx, id); err != nil {
		return mapErr(err)
	}
	return nil
}

// CandidateGateway resolves candidates through the shared candidate store.
type CandidateGateway struct {
	candidates *persistence.CandidateStore
}

var _ service.CandidateGateway = (*CandidateGateway)(nil)

// NewCandidateGateway constructs the gateway. Panics on nil dependencies.
func NewCandidateGateway(candidates *persistence.CandidateStore) *CandidateGateway {
	if candidates == nil {
		panic("candidate store is required")
	}
	return &CandidateGateway{candidates: candidates}
}

func (g *CandidateGateway) CandidateExists(ctx context.Context, companyID, candidateID uuid.UUID) (bool, error) {
	_, err := g.candidates.GetCandidate(ctx, companyID, candidateID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func mapErr(err error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return service.ErrNotFound
	}
	return err
}

func toDocument(rec persistence.DocumentRecord) service.Document {
	return service.Document{
		ID:          rec.ID,
		CandidateID: rec.CandidateID,
		Type:        service.Type(rec.Type),
		Name:        rec.Name,
		StoragePath: rec.StoragePath,
		CreatedBy:   rec.CreatedBy,
		CreatedAt:   rec.CreatedAt,
	}
}
