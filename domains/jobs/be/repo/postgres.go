package repo

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/wundergunder/gunderats/domains/jobs/be/service"
	"github.com/wundergunder/gunderats/platform/go/persistence"
)

// PostgresRepository implements service.Repository on top of the job store.
type PostgresRepository struct {
	jobs *persistence.JobStore
}

var _ service.Repository = (*PostgresRepository)(nil)

// NewPostgresRepository constructs the repository. Panics on nil dependencies.
func NewPostgresRepository(jobs *persistence.JobStore) *PostgresRepository {
	if jobs == nil {
		panic("job store is required")
	}
	return &PostgresRepository{jobs: jobs}
}

func (r *PostgresRepository) Create(ctx context.Context, job service.Job) (service.Job, error) {
	rec := persistence.JobRecord{
		ID:           job.ID,
		CompanyID:    job.CompanyID,
		Title:        job.Title,
		Description:  job.Description,
		Requirements: job.Requirements,
		Status:       string(job.Status),
		Location:     job.Location,
		CreatedBy:    job.CreatedBy,
	}
	if job.Salary != nil {
		rec.SalaryMin = &job.Salary.Min
		rec.SalaryMax = &job.Salary.Max
		rec.SalaryCurrency = &job.Salary.Currency
	}

	created, err := r.jobs.CreateJob(ctx, rec)
	if err != nil {
		return service.Job{}, mapErr(err)
	}
	return toJob(created), nil
}

func (r *PostgresRepository) Get(ctx context.Context, companyID, id uuid.UUID) (service.Job, error) {
	rec, err := r.jobs.GetJob(ctx, companyID, id)
	if err != nil {
		return service.Job{}, mapErr(err)
	}
	return toJob(rec), nil
}

func (r *PostgresRepository) List(ctx context.Context, companyID uuid.UUID, filter service.ListFilter) ([]service.Job, error) {
	params := persistence.ListJobsParams{}
	if filter.Status != nil {
		status := string(*filter.Status)
		params.Status = &status
	}

	recs, err := r.jobs.ListJobs(ctx, companyID, params)
	if err != nil {
		return nil, err
	}

	out := make([]service.Job, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toJob(rec))
	}
	return out, nil
}

func (r *PostgresRepository) Update(ctx context.Context, companyID, id uuid.UUID, input service.UpdateInput) (service.Job, error) {
	params := persistence.UpdateJobParams{
		Title:        input.Title,
		Description:  input.Description,
		Requirements: input.Requirements,
		Location:     input.Location,
		ClearSalary:  input.ClearSalary,
	}
	if input.Status != nil {
		status := string(*input.Status)
		params.Status = &status
	}
	if input.Salary != nil {
		params.SalaryMin = &input.Salary.Min
		params.SalaryMax = &input.Salary.Max
		params.SalaryCurrency = &input.Salary.Currency
	}

	rec, err := r.jobs.UpdateJob(ctx, companyID, id, params)
	if err != nil {
		return service.Job{}, mapErr(err)
	}
	return toJob(rec), nil
}

func mapErr(err error) error {
	if errors.Is(err, persistence.ErrNotFound) {
		return service.ErrNotFound
	}
	return err
}

func toJob(rec persistence.JobRecord) service.Job {
	job := service.Job{
		ID:           rec.ID,
		CompanyID:    rec.CompanyID,
		Title:        rec.Title,
		Description:  rec.Description,
		Requirements: rec.Requirements,
		Status:       service.Status(rec.Status),
		Location:     rec.Location,
		CreatedBy:    rec.CreatedBy,
		CreatedAt:    rec.CreatedAt,
		UpdatedAt:    rec.UpdatedAt,
	}
	if rec.SalaryMin != nil && rec.SalaryMax != nil && rec.SalaryCurrency != nil {
		job.Salary = &service.Salary{
			Min:      *rec.SalaryMin,
			Max:      *rec.SalaryMax,
			Currency: *rec.SalaryCurrency,
		}
	}
	return job
}
