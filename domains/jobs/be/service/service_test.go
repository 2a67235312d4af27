package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wundergunder/gunderats/domains/jobs/be/repo"
	"github.com/wundergunder/gunderats/domains/jobs/be/service"
	"github.com/wundergunder/gunderats/platform/go/session"
)

func sessionFor(companyID uuid.UUID) session.Context {
	return session.Context{
		UserID:               uuid.New(),
		AuthorizedCompanyIDs: []uuid.UUID{companyID},
		SelectedCompanyID:    companyID,
	}
}

func TestCreateJobDefaultsToDraft(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository())
	companyID := uuid.New()

	job, err := svc.Create(context.Background(), sessionFor(companyID), companyID, service.CreateInput{
		Title:     "  Backend Engineer  ",
		CreatedBy: uuid.New(),
	})
	require.NoError(t, err)
	require.Equal(t, "Backend Engineer", job.Title)
	require.Equal(t, service.StatusDraft, job.Status)
	require.Equal(t, companyID, job.CompanyID)
}

func TestCreateJobValidation(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository())
	companyID := uuid.New()
	sess := sessionFor(companyID)
	ctx := context.Background()

	_, err := svc.Create(ctx, sess, companyID, service.CreateInput{Title: "  "})
	var validationErr *service.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "title")

	_, err = svc.Create(ctx, sess, companyID, service.CreateInput{Title: "QA", Status: "archived"})
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "status")

	_, err = svc.Create(ctx, sess, companyID, service.CreateInput{
		Title:  "QA",
		Salary: &service.Salary{Min: 90000, Max: 60000, Currency: "EUR"},
	})
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "salary")
}

func TestListFiltersByStatus(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository())
	companyID := uuid.New()
	sess := sessionFor(companyID)
	ctx := context.Background()

	_, err := svc.Create(ctx, sess, companyID, service.CreateInput{Title: "Draft Role", CreatedBy: uuid.New()})
	require.NoError(t, err)
	published, err := svc.Create(ctx, sess, companyID, service.CreateInput{Title: "Live Role", Status: service.StatusPublished, CreatedBy: uuid.New()})
	require.NoError(t, err)

	offerable, err := svc.ListOfferable(ctx, sess, companyID)
	require.NoError(t, err)
	require.Len(t, offerable, 1)
	require.Equal(t, published.ID, offerable[0].ID)

	all, err := svc.List(ctx, sess, companyID, service.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 2)
}

func TestJobsScopedToCompany(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository())
	companyID := uuid.New()
	sess := sessionFor(companyID)
	ctx := context.Background()

	job, err := svc.Create(ctx, sess, companyID, service.CreateInput{Title: "Hidden Role", CreatedBy: uuid.New()})
	require.NoError(t, err)

	otherSess := sessionFor(uuid.New())

	_, err = svc.Get(ctx, otherSess, companyID, job.ID)
	require.ErrorIs(t, err, service.ErrNotFound)

	listed, err := svc.List(ctx, otherSess, companyID, service.ListFilter{})
	require.NoError(t, err)
	require.Empty(t, listed)
}

func TestUpdateJobSalaryBand(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository())
	companyID := uuid.New()
	sess := sessionFor(companyID)
	ctx := context.Background()

	job, err := svc.Create(ctx, sess, companyID, service.CreateInput{
		Title:     "Platform Engineer",
		Salary:    &service.Salary{Min: 70000, Max: 95000, Currency: "EUR"},
		CreatedBy: uuid.New(),
	})
	require.NoError(t, err)

	// Set and clear together is contradictory.
	_, err = svc.Update(ctx, sess, companyID, job.ID, service.UpdateInput{
		Salary:      &service.Salary{Min: 1, Max: 2, Currency: "EUR"},
		ClearSalary: true,
	})
	var validationErr *service.ValidationError
	require.ErrorAs(t, err, &validationErr)

	updated, err := svc.Update(ctx, sess, companyID, job.ID, service.UpdateInput{ClearSalary: true})
	require.NoError(t, err)
	require.Nil(t, updated.Salary)

	status := service.StatusPublished
	updated, err = svc.Update(ctx, sess, companyID, job.ID, service.UpdateInput{Status: &status})
	require.NoError(t, err)
	require.Equal(t, service.StatusPublished, updated.Status)
}
