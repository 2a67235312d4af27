package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const PipelineStagesTable = "pipeline_stages"

// StageRecord represents a row in the pipeline_stages table.
type StageRecord struct {
	ID         uuid.UUID `db:"id" json:"id"`
	CompanyID  uuid.UUID `db:"company_id" json:"companyId"`
	Name       string    `db:"name" json:"name"`
	OrderIndex int       `db:"order_index" json:"orderIndex"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

// StageStore exposes persistence helpers for the pipeline_stages table.
type StageStore struct {
	pool *pgxpool.Pool
}

// NewStageStore returns a store instance bound to the pool.
func NewStageStore(pool *pgxpool.Pool) (*StageStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &StageStore{pool: pool}, nil
}

const stageColumns = "id, company_id, name, order_index, created_at, updated_at"

// CreateStage appends a stage at order_index = count(existing). The index is
// computed inside the insert so concurrent appends cannot race past each other.
func (s *StageStore) CreateStage(ctx context.Context, id, companyID uuid.UUID, name string) (StageRecord, error) {
	if id == uuid.Nil {
		return StageRecord{}, errors.New("stage id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, company_id, name, order_index)
        SELECT $1, $2, $3, COUNT(*) FROM %s WHERE company_id = $2
        RETURNING %s
    `, PipelineStagesTable, PipelineStagesTable, stageColumns),
		id, companyID, strings.TrimSpace(name),
	)

	return scanStage(row)
}

// CreateStageTx inserts a stage with an explicit order index inside a transaction.
// Used by signup provisioning when seeding the default pipeline.
func (s *StageStore) CreateStageTx(ctx context.Context, tx pgx.Tx, rec StageRecord) (StageRecord, error) {
	row := tx.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, company_id, name, order_index)
        VALUES ($1, $2, $3, $4)
        RETURNING %s
    `, PipelineStagesTable, stageColumns),
		rec.ID, rec.CompanyID, strings.TrimSpace(rec.Name), rec.OrderIndex,
	)

	return scanStage(row)
}

// ListStages returns a company's stages ordered by order_index ascending.
func (s *StageStore) ListStages(ctx context.Context, companyID uuid.UUID) ([]StageRecord, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE company_id = $1 ORDER BY order_index ASC
    `, stageColumns, PipelineStagesTable), companyID)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	stages := make([]StageRecord, 0)
	for rows.Next() {
		rec, scanErr := scanStage(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan stage: %w", scanErr)
		}
		stages = append(stages, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stages: %w", err)
	}

	return stages, nil
}

// GetStage returns a single stage scoped to the company.
func (s *StageStore) GetStage(ctx context.Context, companyID, id uuid.UUID) (StageRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE id = $1 AND company_id = $2
    `, stageColumns, PipelineStagesTable), id, companyID)

	rec, err := scanStage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return StageRecord{}, ErrNotFound
		}
		return StageRecord{}, err
	}
	return rec, nil
}

// ReorderStages rewrites order_index for every stage to its position in ids.
// All updates happen in one transaction; a missing row aborts the whole rewrite.
func (s *StageStore) ReorderStages(ctx context.Context, companyID uuid.UUID, ids []uuid.UUID) error {
	return WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		for position, stageID := range ids {
			tag, err := tx.Exec(ctx, fmt.Sprintf(`
                UPDATE %s SET order_index = $1, updated_at = NOW()
                WHERE id = $2 AND company_id = $3
            `, PipelineStagesTable), position, stageID, companyID)
			if err != nil {
				return fmt.Errorf("reorder stage %s: %w", stageID, err)
			}
			if tag.RowsAffected() == 0 {
				return ErrNotFound
			}
		}
		return nil
	})
}

// DeleteStage removes the stage row. Candidate pointers and historical events
// are intentionally left alone; the service decides whether deletion is allowed.
func (s *StageStore) DeleteStage(ctx context.Context, companyID, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        DELETE FROM %s WHERE id = $1 AND company_id = $2
    `, PipelineStagesTable), id, companyID)
	if err != nil {
		return fmt.Errorf("delete stage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCandidateIDsAtStage returns the candidates whose current pointer references the stage.
func (s *StageStore) ListCandidateIDsAtStage(ctx context.Context, companyID, stageID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT id FROM %s WHERE company_id = $1 AND current_stage_id = $2
    `, CandidatesTable), companyID, stageID)
	if err != nil {
		return nil, fmt.Errorf("list candidates at stage: %w", err)
	}
	defer rows.Close()

	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan candidate id: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate ids: %w", err)
	}

	return ids, nil
}

func scanStage(row pgx.Row) (StageRecord, error) {
	var rec StageRecord
	if err := row.Scan(
		&rec.ID,
		&rec.CompanyID,
		&rec.Name,
		&rec.OrderIndex,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return StageRecord{}, err
	}
	return rec, nil
}
