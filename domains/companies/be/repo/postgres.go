package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wundergunder/gunderats/domains/companies/be/service"
	"github.com/wundergunder/gunderats/platform/go/persistence"
)

// PostgresRepository implements service.Repository on top of the shared stores.
type PostgresRepository struct {
	pool      *pgxpool.Pool
	companies *persistence.CompanyStore
	members   *persistence.TeamMemberStore
	stages    *persistence.StageStore
}

var _ service.Repository = (*PostgresRepository)(nil)

// NewPostgresRepository constructs the repository. Panics on nil dependencies.
func NewPostgresRepository(pool *pgxpool.Pool, companies *persistence.CompanyStore, members *persistence.TeamMemberStore, stages *persistence.StageStore) *PostgresRepository {
	if pool == nil || companies == nil || members == nil || stages == nil {
		panic("pool and stores are required")
	}
	return &PostgresRepository{pool: pool, companies: companies, members: members, stages: stages}
}

// CreateCompanyWithAdmin provisions company, admin membership and default
// pipeline stages in one transaction. Nothing is visible until all succeed.
func (r *PostgresRepository) CreateCompanyWithAdmin(ctx context.Context, company service.Company, admin service.TeamMember, defaultStages []string) (service.Company, error) {
	companyRec, err := toCompanyRecord(company)
	if err != nil {
		return service.Company{}, err
	}

	var created persistence.CompanyRecord
	err = persistence.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var txErr error
		created, txErr = r.companies.CreateCompanyTx(ctx, tx, companyRec)
		if txErr != nil {
			return fmt.Errorf("create company: %w", txErr)
		}

		if _, txErr = r.members.CreateMemberTx(ctx, tx, persistence.TeamMemberRecord{
			ID:        admin.ID,
			UserID:    admin.UserID,
			CompanyID: created.ID,
			Role:      string(admin.Role),
		}); txErr != nil {
			return fmt.Errorf("create admin membership: %w", txErr)
		}

		for idx, name := range defaultStages {
			if _, txErr = r.stages.CreateStageTx(ctx, tx, persistence.StageRecord{
				ID:         uuid.New(),
				CompanyID:  created.ID,
				Name:       name,
				OrderIndex: idx,
			}); txErr != nil {
				return fmt.Errorf("seed stage %q: %w", name, txErr)
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, persistence.ErrConflict) {
			return service.Company{}, service.ErrConflict
		}
		return service.Company{}, err
	}

	return toCompany(created)
}

func (r *PostgresRepository) GetCompany(ctx context.Context, id uuid.UUID) (service.Company, error) {
	rec, err := r.companies.GetCompany(ctx, id)
	if err != nil {
		return service.Company{}, mapErr(err)
	}
	return toCompany(rec)
}

func (r *PostgresRepository) ListAllCompanies(ctx context.Context) ([]service.Company, error) {
	recs, err := r.companies.ListAllCompanies(ctx)
	if err != nil {
		return nil, err
	}
	return toCompanies(recs)
}

func (r *PostgresRepository) ListCompaniesByIDs(ctx context.Context, ids []uuid.UUID) ([]service.Company, error) {
	recs, err := r.companies.ListCompaniesByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	return toCompanies(recs)
}

func (r *PostgresRepository) UpdateCompany(ctx context.Context, id uuid.UUID, input service.UpdateInput) (service.Company, error) {
	params := persistence.UpdateCompanyParams{
		Name:               input.Name,
		SubscriptionStatus: input.SubscriptionStatus,
		SubscriptionEndsAt: input.SubscriptionEndsAt,
	}
	if input.Settings != nil {
		raw, err := json.Marshal(input.Settings)
		if err != nil {
			return service.Company{}, fmt.Errorf("encode settings: %w", err)
		}
		params.Settings = raw
	}

	rec, err := r.companies.UpdateCompany(ctx, id, params)
	if err != nil {
		return service.Company{}, mapErr(err)
	}
	return toCompany(rec)
}

func (r *PostgresRepository) AddMember(ctx context.Context, member service.TeamMember) (service.TeamMember, error) {
	rec, err := r.members.CreateMember(ctx, persistence.TeamMemberRecord{
		ID:        member.ID,
		UserID:    member.UserID,
		CompanyID: member.CompanyID,
		Role:      string(member.Role),
	})
	if err != nil {
		return service.TeamMember{}, mapErr(err)
	}
	return toTeamMember(rec), nil
}

func (r *PostgresRepository) ListMembers(ctx context.Context, companyID uuid.UUID) ([]service.TeamMember, error) {
	recs, err := r.members.ListMembersByCompany(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return toTeamMembers(recs), nil
}

func (r *PostgresRepository) ListMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]service.TeamMember, error) {
	recs, err := r.members.ListMembershipsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toTeamMembers(recs), nil
}

func (r *PostgresRepository) HasAdminRoleAnywhere(ctx context.Context, userID uuid.UUID) (bool, error) {
	return r.members.HasAdminRoleAnywhere(ctx, userID)
}

func (r *PostgresRepository) GetMember(ctx context.Context, userID, companyID uuid.UUID) (service.TeamMember, error) {
	rec, err := r.members.GetMember(ctx, userID, companyID)
	if err != nil {
		return service.TeamMember{}, mapErr(err)
	}
	return toTeamMember(rec), nil
}

func (r *PostgresRepository) RemoveMember(ctx context.Context, companyID, memberID uuid.UUID) error {
	if err := r.members.DeleteMember(ctx, companyID, memberID); err != nil {
		return mapErr(err)
	}
	return nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, persistence.ErrNotFound):
		return service.ErrNotFound
	case errors.Is(err, persistence.ErrConflict):
		return service.ErrConflict
	default:
		return err
	}
}

func toCompanyRecord(c service.Company) (persistence.CompanyRecord, error) {
	settings := []byte("{}")
	if c.Settings != nil {
		raw, err := json.Marshal(c.Settings)
		if err != nil {
			return persistence.CompanyRecord{}, fmt.Errorf("encode settings: %w", err)
		}
		settings = raw
	}
	return persistence.CompanyRecord{
		ID:                 c.ID,
		Name:               c.Name,
		Settings:           settings,
		SubscriptionStatus: c.SubscriptionStatus,
		SubscriptionEndsAt: c.SubscriptionEndsAt,
	}, nil
}

func toCompany(rec persistence.CompanyRecord) (service.Company, error) {
	settings := map[string]any{}
	if len(rec.Settings) > 0 {
		if err := json.Unmarshal(rec.Settings, &settings); err != nil {
			return service.Company{}, fmt.Errorf("decode settings: %w", err)
		}
	}
	return service.Company{
		ID:                 rec.ID,
		Name:               rec.Name,
		Settings:           settings,
		SubscriptionStatus: rec.SubscriptionStatus,
		SubscriptionEndsAt: rec.SubscriptionEndsAt,
		CreatedAt:          rec.CreatedAt,
		UpdatedAt:          rec.UpdatedAt,
	}, nil
}

func toCompanies(recs []persistence.CompanyRecord) ([]service.Company, error) {
	out := make([]service.Company, 0, len(recs))
	for _, rec := range recs {
		c, err := toCompany(rec)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func toTeamMember(rec persistence.TeamMemberRecord) service.TeamMember {
	return service.TeamMember{
		ID:        rec.ID,
		UserID:    rec.UserID,
		CompanyID: rec.CompanyID,
		Role:      service.Role(rec.Role),
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func toTeamMembers(recs []persistence.TeamMemberRecord) []service.TeamMember {
	out := make([]service.TeamMember, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toTeamMember(rec))
	}
	return out
}
