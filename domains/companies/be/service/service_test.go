package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wundergunder/gunderats/domains/companies/be/repo"
	"github.com/wundergunder/gunderats/domains/companies/be/service"
	"github.com/wundergunder/gunderats/platform/go/session"
)

func TestSignupProvisionsCompanyAdminAndDefaultStages(t *testing.T) {
	t.Parallel()

	memory := repo.NewMemoryRepository()
	svc := service.New(memory)
	adminID := uuid.New()

	company, err := svc.Signup(context.Background(), service.SignupInput{
		CompanyName: "  Acme Recruiting  ",
		AdminUserID: adminID,
	})
	require.NoError(t, err)
	require.Equal(t, "Acme Recruiting", company.Name)
	require.Equal(t, "trial", company.SubscriptionStatus)

	member, err := memory.GetMember(context.Background(), adminID, company.ID)
	require.NoError(t, err)
	require.Equal(t, service.RoleAdmin, member.Role)

	require.Equal(t, []string{"Applied", "Screening", "Interview", "Offer", "Hired"}, memory.SeededStages[company.ID])
}

func TestSignupValidation(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository())

	_, err := svc.Signup(context.Background(), service.SignupInput{CompanyName: "   "})

	var validationErr *service.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "companyName")
	require.Contains(t, validationErr.Fields, "adminUserId")
}

func TestSignupRejectsOversizedSettings(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository())

	settings := map[string]any{}
	for i := 0; i < 65; i++ {
		settings[uuid.New().String()] = true
	}

	_, err := svc.Signup(context.Background(), service.SignupInput{
		CompanyName: "Acme",
		Settings:    settings,
		AdminUserID: uuid.New(),
	})

	var validationErr *service.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "settings")
}

func TestResolveSessionMemberScope(t *testing.T) {
	t.Parallel()

	memory := repo.NewMemoryRepository()
	svc := service.New(memory)
	ctx := context.Background()

	adminA := uuid.New()
	companyA, err := svc.Signup(ctx, service.SignupInput{CompanyName: "Beta Corp", AdminUserID: adminA})
	require.NoError(t, err)

	adminB := uuid.New()
	companyB, err := svc.Signup(ctx, service.SignupInput{CompanyName: "Alpha Corp", AdminUserID: adminB})
	require.NoError(t, err)

	memberUser := uuid.New()
	_, err = memory.AddMember(ctx, service.TeamMember{ID: uuid.New(), UserID: memberUser, CompanyID: companyA.ID, Role: service.RoleMember})
	require.NoError(t, err)

	sess, err := svc.ResolveSession(ctx, memberUser, false, nil)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{companyA.ID}, sess.AuthorizedCompanyIDs)
	require.Equal(t, companyA.ID, sess.SelectedCompanyID)

	// A plain member of company A may not select company B.
	_, err = svc.ResolveSession(ctx, memberUser, false, &companyB.ID)
	require.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestResolveSessionAdminSeesAllCompanies(t *testing.T) {
	t.Parallel()

	memory := repo.NewMemoryRepository()
	svc := service.New(memory)
	ctx := context.Background()

	adminUser := uuid.New()
	_, err := svc.Signup(ctx, service.SignupInput{CompanyName: "Zulu Inc", AdminUserID: adminUser})
	require.NoError(t, err)

	other, err := svc.Signup(ctx, service.SignupInput{CompanyName: "Alpha Inc", AdminUserID: uuid.New()})
	require.NoError(t, err)

	sess, err := svc.ResolveSession(ctx, adminUser, false, nil)
	require.NoError(t, err)
	require.Len(t, sess.AuthorizedCompanyIDs, 2)
	// Auto-selection picks the alphabetically first company.
	require.Equal(t, other.ID, sess.SelectedCompanyID)
}

func TestResolveSessionNoMemberships(t *testing.T) {
	t.Parallel()

	svc := service.New(repo.NewMemoryRepository())

	sess, err := svc.ResolveSession(context.Background(), uuid.New(), false, nil)
	require.NoError(t, err)
	require.Empty(t, sess.AuthorizedCompanyIDs)
	require.Equal(t, uuid.Nil, sess.SelectedCompanyID)
}

func TestUpdateRequiresAdminRole(t *testing.T) {
	t.Parallel()

	memory := repo.NewMemoryRepository()
	svc := service.New(memory)
	ctx := context.Background()

	company, err := svc.Signup(ctx, service.SignupInput{CompanyName: "Gamma", AdminUserID: uuid.New()})
	require.NoError(t, err)

	memberUser := uuid.New()
	_, err = memory.AddMember(ctx, service.TeamMember{ID: uuid.New(), UserID: memberUser, CompanyID: company.ID, Role: service.RoleMember})
	require.NoError(t, err)

	sess := session.Context{UserID: memberUser, AuthorizedCompanyIDs: []uuid.UUID{company.ID}, SelectedCompanyID: company.ID}

	name := "Gamma Renamed"
	_, err = svc.Update(ctx, sess, company.ID, service.UpdateInput{Name: &name})
	require.ErrorIs(t, err, service.ErrUnauthorized)
}

func TestGetOutsideScopeIsNotFound(t *testing.T) {
	t.Parallel()

	memory := repo.NewMemoryRepository()
	svc := service.New(memory)
	ctx := context.Background()

	company, err := svc.Signup(ctx, service.SignupInput{CompanyName: "Hidden", AdminUserID: uuid.New()})
	require.NoError(t, err)

	sess := session.Context{UserID: uuid.New(), AuthorizedCompanyIDs: []uuid.UUID{uuid.New()}}

	_, err = svc.Get(ctx, sess, company.ID)
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestAddMemberConflictAndValidation(t *testing.T) {
	t.Parallel()

	memory := repo.NewMemoryRepository()
	svc := service.New(memory)
	ctx := context.Background()

	adminUser := uuid.New()
	company, err := svc.Signup(ctx, service.SignupInput{CompanyName: "Delta", AdminUserID: adminUser})
	require.NoError(t, err)

	sess := session.Context{UserID: adminUser, AuthorizedCompanyIDs: []uuid.UUID{company.ID}, SelectedCompanyID: company.ID}

	_, err = svc.AddMember(ctx, sess, company.ID, service.AddMemberInput{UserID: uuid.New(), Role: "owner"})
	var validationErr *service.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "role")

	newUser := uuid.New()
	_, err = svc.AddMember(ctx, sess, company.ID, service.AddMemberInput{UserID: newUser, Role: service.RoleMember})
	require.NoError(t, err)

	// One role per user per company.
	_, err = svc.AddMember(ctx, sess, company.ID, service.AddMemberInput{UserID: newUser, Role: service.RoleAdmin})
	require.ErrorIs(t, err, service.ErrConflict)
}
