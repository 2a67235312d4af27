package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/wundergunder/gunderats/domains/pipeline/be/service"
	"github.com/wundergunder/gunderats/platform/go/persistence"
)

// PostgresRepository implements service.Repository on top of the stage store.
type PostgresRepository struct {
	stages *persistence.StageStore
}

var _ service.Repository = (*PostgresRepository)(nil)

// NewPostgresRepository constructs the repository. Panics on nil dependencies.
func NewPostgresRepository(stages *persistence.StageStore) *PostgresRepository {
	if stages == nil {
		panic("stage store is required")
	}
	return &PostgresRepository{stages: stages}
}

func (r *PostgresRepository) CreateStage(ctx context.Context, companyID uuid.UUID, name string) (service.Stage, error) {
	rec, err := r.stages.CreateStage(ctx, uuid.New(), companyID, name)
	if err != nil {
		return service.Stage{}, mapErr(err)
	}
	return toStage(rec), nil
}

func (r *PostgresRepository) ListStages(ctx context.Context, companyID uuid.UUID) ([]service.Stage, error) {
	recs, err := r.stages.ListStages(ctx, companyID)
	if err != nil {
		return nil, err
	}
	out := make([]service.Stage, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toStage(rec))
	}
	return out, nil
}

func (r *PostgresRepository) GetStage(ctx context.Context, companyID, id uuid.UUID) (service.Stage, error) {
	rec, err := r.stages.GetStage(ctx, companyID, id)
	if err != nil {
		return service.Stage{}, mapErr(err)
	}
	return toStage(rec), nil
}

func (r *PostgresRepository) ReorderStages(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) error {
	if err := r.stages.ReorderStages(ctx, companyID, ids); err != nil {
		return mapErr(err)
	}
	return nil
}

func (r *PostgresRepository) DeleteStage(ctx context.Context, companyID, id uuid.UUID) error {
	if err := r.stages.DeleteStage(ctx, companyID, id); err != nil {
		return mapErr(err)
	}
	return nil
}

func (r *PostgresRepository) ListCandidateIDsAtStage(ctx context.Context, companyID, stageID uuid.UUID) ([]uuid.UUID, error) {
	return r.stages.ListCandidateIDsAtStage(ctx, companyID, stageID)
}

func mapErr(err error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return service.ErrNotFound
	}
	return err
}

func toStage(rec persistence.StageRecord) service.Stage {
	return service.Stage{
		ID:         rec.ID,
		CompanyID:  rec.CompanyID,
		Name:       rec.Name,
		OrderIndex: rec.OrderIndex,
		CreatedAt:  rec.CreatedAt,
		UpdatedAt:  rec.UpdatedAt,
	}
}
