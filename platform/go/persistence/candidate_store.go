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

const (
	CandidatesTable          = "candidates"
	CandidateStageEventsTable = "candidate_stage_events"
)

// CandidateRecord represents a row in the candidates table.
type CandidateRecord struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	CompanyID      uuid.UUID  `db:"company_id" json:"companyId"`
	JobID          uuid.UUID  `db:"job_id" json:"jobId"`
	FirstName      string     `db:"first_name" json:"firstName"`
	LastName       string     `db:"last_name" json:"lastName"`
	Email          string     `db:"email" json:"email"`
	Phone          *string    `db:"phone" json:"phone"`
	CurrentStageID *uuid.UUID `db:"current_stage_id" json:"currentStageId"`
	Status         string     `db:"status" json:"status"`
	CreatedBy      uuid.UUID  `db:"created_by" json:"createdBy"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// StageEventRecord represents an immutable candidate_stage_events row.
type StageEventRecord struct {
	ID          uuid.UUID `db:"id" json:"id"`
	CandidateID uuid.UUID `db:"candidate_id" json:"candidateId"`
	StageID     uuid.UUID `db:"stage_id" json:"stageId"`
	Notes       *string   `db:"notes" json:"notes"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	CreatedBy   uuid.UUID `db:"created_by" json:"createdBy"`
	// StageName is joined for display; empty when the stage row was deleted.
	StageName *string `db:"stage_name" json:"stageName"`
}

// CandidateSummaryRecord is the read-side projection joining job title and
// stage name onto the candidate row.
type CandidateSummaryRecord struct {
	Candidate CandidateRecord `json:"candidate"`
	JobTitle  string          `json:"jobTitle"`
	StageName *string         `json:"stageName"`
}

// CandidateStore exposes persistence helpers for candidates and their stage events.
type CandidateStore struct {
	pool *pgxpool.Pool
}

// NewCandidateStore returns a store instance bound to the pool.
func NewCandidateStore(pool *pgxpool.Pool) (*CandidateStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &CandidateStore{pool: pool}, nil
}

const candidateColumns = "id, company_id, job_id, first_name, last_name, email, phone, current_stage_id, status, created_by, created_at, updated_at"

// CreateCandidate inserts the candidate and, when an initial stage is set,
// the first audit event, both inside one transaction.
func (s *CandidateStore) CreateCandidate(ctx context.Context, rec CandidateRecord) (CandidateRecord, error) {
	if rec.ID == uuid.Nil {
		return CandidateRecord{}, errors.New("candidate id is required")
	}
	status := rec.Status
	if strings.TrimSpace(status) == "" {
		status = "active"
	}

	var out CandidateRecord
	err := WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
            INSERT INTO %s (id, company_id, job_id, first_name, last_name, email, phone, current_stage_id, status, created_by)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
            RETURNING %s
        `, CandidatesTable, candidateColumns),
			rec.ID,
			rec.CompanyID,
			rec.JobID,
			strings.TrimSpace(rec.FirstName),
			strings.TrimSpace(rec.LastName),
			strings.TrimSpace(rec.Email),
			rec.Phone,
			rec.CurrentStageID,
			status,
			rec.CreatedBy,
		)

		created, err := scanCandidate(row)
		if err != nil {
			return err
		}

		if rec.CurrentStageID != nil {
			if _, err := tx.Exec(ctx, fmt.Sprintf(`
                INSERT INTO %s (id, candidate_id, stage_id, notes, created_by)
                VALUES ($1, $2, $3, NULL, $4)
            `, CandidateStageEventsTable),
				uuid.New(), created.ID, *rec.CurrentStageID, rec.CreatedBy,
			); err != nil {
				return fmt.Errorf("insert initial stage event: %w", err)
			}
		}

		out = created
		return nil
	})
	if err != nil {
		return CandidateRecord{}, err
	}
	return out, nil
}

// GetCandidate returns a single candidate scoped to the company.
func (s *CandidateStore) GetCandidate(ctx context.Context, companyID, id uuid.UUID) (CandidateRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE id = $1 AND company_id = $2
    `, candidateColumns, CandidatesTable), id, companyID)

	rec, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CandidateRecord{}, ErrNotFound
		}
		return CandidateRecord{}, err
	}
	return rec, nil
}

// ListCandidatesParams captures filters for ListCandidates.
type ListCandidatesParams struct {
	JobID  *uuid.UUID
	Status *string
}

// ListCandidates returns a company's candidates, newest first.
func (s *CandidateStore) ListCandidates(ctx context.Context, companyID uuid.UUID, params ListCandidatesParams) ([]CandidateRecord, error) {
	whereParts := []string{"company_id = $1"}
	args := []any{companyID}

	if params.JobID != nil {
		args = append(args, *params.JobID)
		whereParts = append(whereParts, fmt.Sprintf("job_id = $%d", len(args)))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		args = append(args, strings.TrimSpace(*params.Status))
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	query := fmt.Sprintf(`
        SELECT %s FROM %s
        WHERE %s
        ORDER BY created_at DESC
    `, candidateColumns, CandidatesTable, strings.Join(whereParts, " AND "))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidates: %w", err)
	}
	defer rows.Close()

	candidates := make([]CandidateRecord, 0)
	for rows.Next() {
		rec, scanErr := scanCandidate(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan candidate: %w", scanErr)
		}
		candidates = append(candidates, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidates: %w", err)
	}

	return candidates, nil
}

// ListSummaries returns the candidate projection with job title and current
// stage name joined in, newest first. The stage join is LEFT so candidates
// pointing at a deleted stage still appear.
func (s *CandidateStore) ListSummaries(ctx context.Context, companyID uuid.UUID, params ListCandidatesParams) ([]CandidateSummaryRecord, error) {
	whereParts := []string{"c.company_id = $1"}
	args := []any{companyID}

	if params.JobID != nil {
		args = append(args, *params.JobID)
		whereParts = append(whereParts, fmt.Sprintf("c.job_id = $%d", len(args)))
	}
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		args = append(args, strings.TrimSpace(*params.Status))
		whereParts = append(whereParts, fmt.Sprintf("c.status = $%d", len(args)))
	}

	query := fmt.Sprintf(`
        SELECT c.id, c.company_id, c.job_id, c.first_name, c.last_name, c.email, c.phone,
               c.current_stage_id, c.status, c.created_by, c.created_at, c.updated_at,
               j.title, st.name
        FROM %s c
        JOIN %s j ON j.id = c.job_id
        LEFT JOIN %s st ON st.id = c.current_stage_id
        WHERE %s
        ORDER BY c.created_at DESC
    `, CandidatesTable, JobsTable, PipelineStagesTable, strings.Join(whereParts, " AND "))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list candidate summaries: %w", err)
	}
	defer rows.Close()

	summaries := make([]CandidateSummaryRecord, 0)
	for rows.Next() {
		var sum CandidateSummaryRecord
		rec := &sum.Candidate
		if err := rows.Scan(
			&rec.ID, &rec.CompanyID, &rec.JobID, &rec.FirstName, &rec.LastName, &rec.Email, &rec.Phone,
			&rec.CurrentStageID, &rec.Status, &rec.CreatedBy, &rec.CreatedAt, &rec.UpdatedAt,
			&sum.JobTitle, &sum.StageName,
		); err != nil {
			return nil, fmt.Errorf("scan candidate summary: %w", err)
		}
		summaries = append(summaries, sum)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate summaries: %w", err)
	}

	return summaries, nil
}

// UpdateCandidateParams represents editable fields.
type UpdateCandidateParams struct {
	FirstName *string
	LastName  *string
	Email     *string
	Phone     *string
	Status    *string
}

// UpdateCandidate applies the provided fields scoped to the company and returns the updated record.
func (s *CandidateStore) UpdateCandidate(ctx context.Context, companyID, id uuid.UUID, params UpdateCandidateParams) (CandidateRecord, error) {
	setParts := []string{}
	var args []any

	if params.FirstName != nil {
		args = append(args, strings.TrimSpace(*params.FirstName))
		setParts = append(setParts, fmt.Sprintf("first_name = $%d", len(args)))
	}
	if params.LastName != nil {
		args = append(args, strings.TrimSpace(*params.LastName))
		setParts = append(setParts, fmt.Sprintf("last_name = $%d", len(args)))
	}
	if params.Email != nil {
		args = append(args, strings.TrimSpace(*params.Email))
		setParts = append(setParts, fmt.Sprintf("email = $%d", len(args)))
	}
	if params.Phone != nil {
		args = append(args, *params.Phone)
		setParts = append(setParts, fmt.Sprintf("phone = $%d", len(args)))
	}
	if params.Status != nil {
		args = append(args, strings.TrimSpace(*params.Status))
		setParts = append(setParts, fmt.Sprintf("status = $%d", len(args)))
	}

	if len(setParts) == 0 {
		return CandidateRecord{}, errors.New("no fields to update")
	}

	args = append(args, id, companyID)

	query := fmt.Sprintf(`
        UPDATE %s
        SET %s, updated_at = NOW()
        WHERE id = $%d AND company_id = $%d
        RETURNING %s
    `, CandidatesTable, strings.Join(setParts, ", "), len(args)-1, len(args), candidateColumns)

	rec, err := scanCandidate(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CandidateRecord{}, ErrNotFound
		}
		return CandidateRecord{}, err
	}
	return rec, nil
}

// TransitionStage atomically moves the candidate's current pointer and appends
// the audit event. Both writes commit together or not at all.
func (s *CandidateStore) TransitionStage(ctx context.Context, companyID, candidateID, stageID, actor uuid.UUID, notes *string) (CandidateRecord, StageEventRecord, error) {
	var (
		outCandidate CandidateRecord
		outEvent     StageEventRecord
	)

	err := WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, fmt.Sprintf(`
            UPDATE %s
            SET current_stage_id = $1, updated_at = NOW()
            WHERE id = $2 AND company_id = $3
            RETURNING %s
        `, CandidatesTable, candidateColumns), stageID, candidateID, companyID)

		updated, err := scanCandidate(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return fmt.Errorf("update current stage: %w", err)
		}

		eventRow := tx.QueryRow(ctx, fmt.Sprintf(`
            INSERT INTO %s (id, candidate_id, stage_id, notes, created_by)
            VALUES ($1, $2, $3, $4, $5)
            RETURNING id, candidate_id, stage_id, notes, created_at, created_by
        `, CandidateStageEventsTable),
			uuid.New(), candidateID, stageID, notes, actor,
		)

		var event StageEventRecord
		if err := eventRow.Scan(
			&event.ID, &event.CandidateID, &event.StageID, &event.Notes, &event.CreatedAt, &event.CreatedBy,
		); err != nil {
			return fmt.Errorf("insert stage event: %w", err)
		}

		outCandidate = updated
		outEvent = event
		return nil
	})
	if err != nil {
		return CandidateRecord{}, StageEventRecord{}, err
	}

	return outCandidate, outEvent, nil
}

// ListStageEvents returns the full stage history of a candidate, newest first,
// with stage names joined for display. Events referencing deleted stages keep
// a nil name.
func (s *CandidateStore) ListStageEvents(ctx context.Context, candidateID uuid.UUID) ([]StageEventRecord, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT e.id, e.candidate_id, e.stage_id, e.notes, e.created_at, e.created_by, st.name
        FROM %s e
        LEFT JOIN %s st ON st.id = e.stage_id
        WHERE e.candidate_id = $1
        ORDER BY e.created_at DESC
    `, CandidateStageEventsTable, PipelineStagesTable), candidateID)
	if err != nil {
		return nil, fmt.Errorf("list stage events: %w", err)
	}
	defer rows.Close()

	events := make([]StageEventRecord, 0)
	for rows.Next() {
		var event StageEventRecord
		if err := rows.Scan(
			&event.ID, &event.CandidateID, &event.StageID, &event.Notes, &event.CreatedAt, &event.CreatedBy, &event.StageName,
		); err != nil {
			return nil, fmt.Errorf("scan stage event: %w", err)
		}
		events = append(events, event)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stage events: %w", err)
	}

	return events, nil
}

func scanCandidate(row pgx.Row) (CandidateRecord, error) {
	var rec CandidateRecord
	if err := row.Scan(
		&rec.ID,
		&rec.CompanyID,
		&rec.JobID,
		&rec.FirstName,
		&rec.LastName,
		&rec.Email,
		&rec.Phone,
		&rec.CurrentStageID,
		&rec.Status,
		&rec.CreatedBy,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return CandidateRecord{}, err
	}
	return rec, nil
}
