package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wundergunder/gunderats/platform/go/session"
)

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

func (f FieldErrors) add(field, message string) {
	f[field] = append(f[field], message)
}

// ValidationError is returned when the input payload is invalid.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Domain sentinel errors.
var (
	ErrNotFound     = errors.New("company not found")
	ErrConflict     = errors.New("membership conflict")
	ErrUnauthorized = errors.New("company out of scope")
)

// Role of a team member within one company.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Company is the tenancy root. Settings is an opaque key-value bag validated
// against an embedded JSON schema before persisting.
type Company struct {
	ID                 uuid.UUID
	Name               string
	Settings           map[string]any
	SubscriptionStatus string
	SubscriptionEndsAt *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TeamMember links a user identity to a company with exactly one role.
type TeamMember struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CompanyID uuid.UUID
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DefaultStageNames seeds a new company's hiring pipeline at signup.
var DefaultStageNames = []string{"Applied", "Screening", "Interview", "Offer", "Hired"}

// SignupInput provisions a company together with its first admin.
type SignupInput struct {
	CompanyName string
	Settings    map[string]any
	AdminUserID uuid.UUID
}

// UpdateInput represents admin-editable company fields.
type UpdateInput struct {
	Name               *string
	Settings           map[string]any
	SubscriptionStatus *string
	SubscriptionEndsAt *time.Time
}

// AddMemberInput adds a user to a company.
type AddMemberInput struct {
	UserID uuid.UUID
	Role   Role
}

// Repository abstracts persistence for companies and memberships.
type Repository interface {
	CreateCompanyWithAdmin(ctx context.Context, company Company, admin TeamMember, defaultStages []string) (Company, error)
	GetCompany(ctx context.Context, id uuid.UUID) (Company, error)
	ListAllCompanies(ctx context.Context) ([]Company, error)
	ListCompaniesByIDs(ctx context.Context, ids []uuid.UUID) ([]Company, error)
	UpdateCompany(ctx context.Context, id uuid.UUID, input UpdateInput) (Company, error)

	AddMember(ctx context.Context, member TeamMember) (TeamMember, error)
	ListMembers(ctx context.Context, companyID uuid.UUID) ([]TeamMember, error)
	ListMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]TeamMember, error)
	HasAdminRoleAnywhere(ctx context.Context, userID uuid.UUID) (bool, error)
	GetMember(ctx context.Context, userID, companyID uuid.UUID) (TeamMember, error)
	RemoveMember(ctx context.Context, companyID, memberID uuid.UUID) error
}

// Service provides company and membership operations plus session resolution.
type Service struct {
	repo Repository
}

// New constructs a Service with required dependencies.
func New(repo Repository) *Service {
	if repo == nil {
		panic("companies repo is required")
	}
	return &Service{repo: repo}
}

// Signup provisions a Company, its admin TeamMember, and the default pipeline
// stages in one atomic step. This is the gateway-side side effect of identity
// sign-up, owned here.
func (s *Service) Signup(ctx context.Context, input SignupInput) (Company, error) {
	fieldErrors := FieldErrors{}

	name := strings.TrimSpace(input.CompanyName)
	if name == "" {
		fieldErrors.add("companyName", "company name is required")
	}
	if input.AdminUserID == uuid.Nil {
		fieldErrors.add("adminUserId", "admin user id is required")
	}
	if err := validateSettings(input.Settings); err != nil {
		fieldErrors.add("settings", err.Error())
	}
	if len(fieldErrors) > 0 {
		return Company{}, &ValidationError{Fields: fieldErrors}
	}

	now := time.Now().UTC()
	company := Company{
		ID:                 uuid.New(),
		Name:               name,
		Settings:           input.Settings,
		SubscriptionStatus: "trial",
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	admin := TeamMember{
		ID:        uuid.New(),
		UserID:    input.AdminUserID,
		CompanyID: company.ID,
		Role:      RoleAdmin,
	}

	return s.repo.CreateCompanyWithAdmin(ctx, company, admin, DefaultStageNames)
}

// Get returns a company within the session's scope.
func (s *Service) Get(ctx context.Context, sess session.Context, id uuid.UUID) (Company, error) {
	if !sess.Authorized(id) {
		return Company{}, ErrNotFound
	}
	return s.repo.GetCompany(ctx, id)
}

// Update modifies company master data. Requires an admin role in the company.
func (s *Service) Update(ctx context.Context, sess session.Context, id uuid.UUID, input UpdateInput) (Company, error) {
	if !sess.Authorized(id) {
		return Company{}, ErrNotFound
	}
	if err := s.requireAdmin(ctx, sess, id); err != nil {
		return Company{}, err
	}

	fieldErrors := FieldErrors{}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		fieldErrors.add("name", "company name must not be empty")
	}
	if input.Settings != nil {
		if err := validateSettings(input.Settings); err != nil {
			fieldErrors.add("settings", err.Error())
		}
	}
	if len(fieldErrors) > 0 {
		return Company{}, &ValidationError{Fields: fieldErrors}
	}

	return s.repo.UpdateCompany(ctx, id, input)
}

// ListSelectable returns the companies the user may switch to, ordered by name.
// An admin role anywhere (or a platform admin claim) unlocks the full selector.
func (s *Service) ListSelectable(ctx context.Context, userID uuid.UUID, platformAdmin bool) ([]Company, error) {
	wide, err := s.hasWideVisibility(ctx, userID, platformAdmin)
	if err != nil {
		return nil, err
	}
	if wide {
		return s.repo.ListAllCompanies(ctx)
	}

	memberships, err := s.repo.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		ids = append(ids, m.CompanyID)
	}
	return s.repo.ListCompaniesByIDs(ctx, ids)
}

// ResolveSession builds the explicit session scope for a request: authorized
// company set plus the selected company. When no company is requested the
// first selectable one (alphabetically by name) is auto-selected.
func (s *Service) ResolveSession(ctx context.Context, userID uuid.UUID, platformAdmin bool, requestedCompanyID *uuid.UUID) (session.Context, error) {
	companies, err := s.ListSelectable(ctx, userID, platformAdmin)
	if err != nil {
		return session.Context{}, err
	}

	sort.Slice(companies, func(i, j int) bool { return companies[i].Name < companies[j].Name })

	ids := make([]uuid.UUID, 0, len(companies))
	for _, c := range companies {
		ids = append(ids, c.ID)
	}

	sess := session.Context{
		UserID:               userID,
		AuthorizedCompanyIDs: ids,
		PlatformAdmin:        platformAdmin,
	}

	if requestedCompanyID != nil {
		if !sess.Authorized(*requestedCompanyID) {
			return session.Context{}, ErrUnauthorized
		}
		sess.SelectedCompanyID = *requestedCompanyID
		return sess, nil
	}

	if len(ids) > 0 {
		sess.SelectedCompanyID = ids[0]
	}
	return sess, nil
}

// AddMember adds a user to the company. Admins only; one role per membership.
func (s *Service) AddMember(ctx context.Context, sess session.Context, companyID uuid.UUID, input AddMemberInput) (TeamMember, error) {
	if !sess.Authorized(companyID) {
		return TeamMember{}, ErrNotFound
	}
	if err := s.requireAdmin(ctx, sess, companyID); err != nil {
		return TeamMember{}, err
	}

	fieldErrors := FieldErrors{}
	if input.UserID == uuid.Nil {
		fieldErrors.add("userId", "user id is required")
	}
	if input.Role != RoleAdmin && input.Role != RoleMember {
		fieldErrors.add("role", "role must be admin or member")
	}
	if len(fieldErrors) > 0 {
		return TeamMember{}, &ValidationError{Fields: fieldErrors}
	}

	member := TeamMember{
		ID:        uuid.New(),
		UserID:    input.UserID,
		CompanyID: companyID,
		Role:      input.Role,
	}
	return s.repo.AddMember(ctx, member)
}

// ListMembers returns the company's memberships.
func (s *Service) ListMembers(ctx context.Context, sess session.Context, companyID uuid.UUID) ([]TeamMember, error) {
	if !sess.Authorized(companyID) {
		return []TeamMember{}, nil
	}
	return s.repo.ListMembers(ctx, companyID)
}

// RemoveMember deletes a membership row. Admins only.
func (s *Service) RemoveMember(ctx context.Context, sess session.Context, companyID, memberID uuid.UUID) error {
	if !sess.Authorized(companyID) {
		return ErrNotFound
	}
	if err := s.requireAdmin(ctx, sess, companyID); err != nil {
		return err
	}
	return s.repo.RemoveMember(ctx, companyID, memberID)
}

func (s *Service) hasWideVisibility(ctx context.Context, userID uuid.UUID, platformAdmin bool) (bool, error) {
	if platformAdmin {
		return true, nil
	}
	return s.repo.HasAdminRoleAnywhere(ctx, userID)
}

func (s *Service) requireAdmin(ctx context.Context, sess session.Context, companyID uuid.UUID) error {
	if sess.PlatformAdmin {
		return nil
	}
	member, err := s.repo.GetMember(ctx, sess.UserID, companyID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrUnauthorized
		}
		return err
	}
	if member.Role != RoleAdmin {
		return ErrUnauthorized
	}
	return nil
}
