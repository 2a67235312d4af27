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

const JobsTable = "jobs"

// JobRecord represents a row in the jobs table.
type JobRecord struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	CompanyID      uuid.UUID  `db:"company_id" json:"companyId"`
	Title          string     `db:"title" json:"title"`
	Description    *string    `db:"description" json:"description"`
	Requirements   *string    `db:"requirements" json:"requirements"`
	Status         string     `db:"status" json:"status"`
	Location       *string    `db:"location" json:"location"`
	SalaryMin      *int64     `db:"salary_min" json:"salaryMin"`
	SalaryMax      *int64     `db:"salary_max" json:"salaryMax"`
	SalaryCurrency *string    `db:"salary_currency" json:"salaryCurrency"`
	CreatedBy      uuid.UUID  `db:"created_by" json:"createdBy"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// JobStore exposes persistence helpers for the jobs table.
type JobStore struct {
	pool *pgxpool.Pool
}

// NewJobStore returns a store instance bound to the pool.
func NewJobStore(pool *pgxpool.Pool) (*JobStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &JobStore{pool: pool}, nil
}

const jobColumns = "id, company_id, title, description, requirements, status, location, salary_min, salary_max, salary_currency, created_by, created_at, updated_at"

// CreateJob inserts a new job posting and returns the persisted record.
func (s *JobStore) CreateJob(ctx context.Context, rec JobRecord) (JobRecord, error) {
	if rec.ID == uuid.Nil {
		return JobRecord{}, errors.New("job id is required")
	}
	status := rec.Status
	if strings.TrimSpace(status) == "" {
		status = "draft"
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, company_id, title, description, requirements, status, location, salary_min, salary_max, salary_currency, created_by)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING %s
    `, JobsTable, jobColumns),
		rec.ID,
		rec.CompanyID,
		strings.TrimSpace(rec.Title),
		rec.Description,
		rec.Requirements,
		status,
		rec.Location,
		rec.SalaryMin,
		rec.SalaryMax,
		rec.SalaryCurrency,
		rec.CreatedBy,
	)

	return scanJob(row)
}

// GetJob returns a single job scoped to the company.
func (s *JobStore) GetJob(ctx context.Context, companyID, id uuid.UUID) (JobRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE id = $1 AND company_id = $2
    `, jobColumns, JobsTable), id, companyID)

	rec, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JobRecord{}, ErrNotFound
		}
		return JobRecord{}, err
	}
	return rec, nil
}

// ListJobsParams captures filters for ListJobs.
type ListJobsParams struct {
	Status *string
}

// ListJobs returns a company's jobs, newest first.
func (s *JobStore) ListJobs(ctx context.Context, companyID uuid.UUID, params ListJobsParams) ([]JobRecord, error) {
	whereParts := []string{"company_id = $1"}
	args := []any{companyID}

	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		args = append(args, strings.TrimSpace(*params.Status))
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	query := fmt.Sprintf(`
        SELECT %s FROM %s
        WHERE %s
        ORDER BY created_at DESC
    `, jobColumns, JobsTable, strings.Join(whereParts, " AND "))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]JobRecord, 0)
	for rows.Next() {
		rec, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan job: %w", scanErr)
		}
		jobs = append(jobs, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate jobs: %w", err)
	}

	return jobs, nil
}

// UpdateJobParams represents editable fields.
type UpdateJobParams struct {
	Title          *string
	Description    *string
	Requirements   *string
	Status         *string
	Location       *string
	SalaryMin      *int64
	SalaryMax      *int64
	SalaryCurrency *string
	ClearSalary    bool
}

// UpdateJob applies the provided fields scoped to the company and returns the updated record.
func (s *JobStore) UpdateJob(ctx context.Context, companyID, id uuid.UUID, params UpdateJobParams) (JobRecord, error) {
	setParts := []string{}
	var args []any

	if params.Title != nil {
		args = append(args, strings.TrimSpace(*params.Title))
		setParts = append(setParts, fmt.Sprintf("title = $%d", len(args)))
	}
	if params.Description != nil {
		args = append(args, *params.Description)
		setParts = append(setParts, fmt.Sprintf("description = $%d", len(args)))
	}
	if params.Requirements != nil {
		args = append(args, *params.Requirements)
		setParts = append(setParts, fmt.Sprintf("requirements = $%d", len(args)))
	}
	if params.Status != nil {
		args = append(args, strings.TrimSpace(*params.Status))
		setParts = append(setParts, fmt.Sprintf("status = $%d", len(args)))
	}
	if params.Location != nil {
		args = append(args, *params.Location)
		setParts = append(setParts, fmt.Sprintf("location = $%d", len(args)))
	}
	if params.ClearSalary {
		setParts = append(setParts, "salary_min = NULL", "salary_max = NULL", "salary_currency = NULL")
	} else {
		if params.SalaryMin != nil {
			args = append(args, *params.SalaryMin)
			setParts = append(setParts, fmt.Sprintf("salary_min = $%d", len(args)))
		}
		if params.SalaryMax != nil {
			args = append(args, *params.SalaryMax)
			setParts = append(setParts, fmt.Sprintf("salary_max = $%d", len(args)))
		}
		if params.SalaryCurrency != nil {
			args = append(args, *params.SalaryCurrency)
			setParts = append(setParts, fmt.Sprintf("salary_currency = $%d", len(args)))
		}
	}

	if len(setParts) == 0 {
		return JobRecord{}, errors.New("no fields to update")
	}

	args = append(args, id, companyID)

	query := fmt.Sprintf(`
        UPDATE %s
        SET %s, updated_at = NOW()
        WHERE id = $%d AND company_id = $%d
        RETURNING %s
    `, JobsTable, strings.Join(setParts, ", "), len(args)-1, len(args), jobColumns)

	rec, err := scanJob(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JobRecord{}, ErrNotFound
		}
		return JobRecord{}, err
	}
	return rec, nil
}

func scanJob(row pgx.Row) (JobRecord, error) {
	var rec JobRecord
	if err := row.Scan(
		&rec.ID,
		&rec.CompanyID,
		&rec.Title,
		&rec.Description,
		&rec.Requirements,
		&rec.Status,
		&rec.Location,
		&rec.SalaryMin,
		&rec.SalaryMax,
		&rec.SalaryCurrency,
		&rec.CreatedBy,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return JobRecord{}, err
	}
	return rec, nil
}
