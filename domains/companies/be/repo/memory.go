package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wundergunder/gunderats/domains/companies/be/service"
)

// MemoryRepository is an in-memory service.Repository used by tests and local
// tooling. All mutations are guarded by one mutex so multi-row operations stay
// atomic the way the transactional repository is.
type MemoryRepository struct {
	mu        sync.Mutex
	companies map[uuid.UUID]service.Company
	members   map[uuid.UUID]service.TeamMember

	// SeededStages records the default stage names provisioned per company,
	// so tests can assert on signup side effects.
	SeededStages map[uuid.UUID][]string

	// FailCreate forces CreateCompanyWithAdmin to fail after no visible writes.
	FailCreate error
}

var _ service.Repository = (*MemoryRepository)(nil)

// NewMemoryRepository returns an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		companies:    map[uuid.UUID]service.Company{},
		members:      map[uuid.UUID]service.TeamMember{},
		SeededStages: map[uuid.UUID][]string{},
	}
}

func (r *MemoryRepository) CreateCompanyWithAdmin(_ context.Context, company service.Company, admin service.TeamMember, defaultStages []string) (service.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.FailCreate != nil {
		return service.Company{}, r.FailCreate
	}
	for _, m := range r.members {
		if m.UserID == admin.UserID && m.CompanyID == company.ID {
			return service.Company{}, service.ErrConflict
		}
	}

	now := time.Now().UTC()
	if company.CreatedAt.IsZero() {
		company.CreatedAt = now
	}
	company.UpdatedAt = company.CreatedAt
	if company.Settings == nil {
		company.Settings = map[string]any{}
	}
	r.companies[company.ID] = company

	admin.CompanyID = company.ID
	admin.CreatedAt = now
	admin.UpdatedAt = now
	r.members[admin.ID] = admin

	r.SeededStages[company.ID] = append([]string(nil), defaultStages...)
	return company, nil
}

func (r *MemoryRepository) GetCompany(_ context.Context, id uuid.UUID) (service.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	company, ok := r.companies[id]
	if !ok {
		return service.Company{}, service.ErrNotFound
	}
	return company, nil
}

func (r *MemoryRepository) ListAllCompanies(_ context.Context) ([]service.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]service.Company, 0, len(r.companies))
	for _, c := range r.companies {
		out = append(out, c)
	}
	sortCompanies(out)
	return out, nil
}

func (r *MemoryRepository) ListCompaniesByIDs(_ context.Context, ids []uuid.UUID) ([]service.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]service.Company, 0, len(ids))
	for _, id := range ids {
		if c, ok := r.companies[id]; ok {
			out = append(out, c)
		}
	}
	sortCompanies(out)
	return out, nil
}

func (r *MemoryRepository) UpdateCompany(_ context.Context, id uuid.UUID, input service.UpdateInput) (service.Company, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	company, ok := r.companies[id]
	if !ok {
		return service.Company{}, service.ErrNotFound
	}
	if input.Name != nil {
		company.Name = *input.Name
	}
	if input.Settings != nil {
		company.Settings = input.Settings
	}
	if input.SubscriptionStatus != nil {
		company.SubscriptionStatus = *input.SubscriptionStatus
	}
	if input.SubscriptionEndsAt != nil {
		endsAt := *input.SubscriptionEndsAt
		company.SubscriptionEndsAt = &endsAt
	}
	company.UpdatedAt = time.Now().UTC()
	r.companies[id] = company
	return company, nil
}

func (r *MemoryRepository) AddMember(_ context.Context, member service.TeamMember) (service.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if m.UserID == member.UserID && m.CompanyID == member.CompanyID {
			return service.TeamMember{}, service.ErrConflict
		}
	}
	now := time.Now().UTC()
	member.CreatedAt = now
	member.UpdatedAt = now
	r.members[member.ID] = member
	return member, nil
}

func (r *MemoryRepository) ListMembers(_ context.Context, companyID uuid.UUID) ([]service.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]service.TeamMember, 0)
	for _, m := range r.members {
		if m.CompanyID == companyID {
			out = append(out, m)
		}
	}
	sortMembers(out)
	return out, nil
}

func (r *MemoryRepository) ListMembershipsByUser(_ context.Context, userID uuid.UUID) ([]service.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]service.TeamMember, 0)
	for _, m := range r.members {
		if m.UserID == userID {
			out = append(out, m)
		}
	}
	sortMembers(out)
	return out, nil
}

func (r *MemoryRepository) HasAdminRoleAnywhere(_ context.Context, userID uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if m.UserID == userID && m.Role == service.RoleAdmin {
			return true, nil
		}
	}
	return false, nil
}

func (r *MemoryRepository) GetMember(_ context.Context, userID, companyID uuid.UUID) (service.TeamMember, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, m := range r.members {
		if m.UserID == userID && m.CompanyID == companyID {
			return m, nil
		}
	}
	return service.TeamMember{}, service.ErrNotFound
}

func (r *MemoryRepository) RemoveMember(_ context.Context, companyID, memberID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.members[memberID]
	if !ok || m.CompanyID != companyID {
		return service.ErrNotFound
	}
	delete(r.members, memberID)
	return nil
}

func sortCompanies(companies []service.Company) {
	sort.Slice(companies, func(i, j int) bool { return companies[i].Name < companies[j].Name })
}

func sortMembers(members []service.TeamMember) {
	sort.Slice(members, func(i, j int) bool { return members[i].CreatedAt.Before(members[j].CreatedAt) })
}
