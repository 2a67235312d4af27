package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const TeamMembersTable = "team_members"

// TeamMemberRecord represents a row in the team_members table. A user may
// belong to many companies but holds at most one role per company.
type TeamMemberRecord struct {
	ID        uuid.UUID `db:"id" json:"id"`
	UserID    uuid.UUID `db:"user_id" json:"userId"`
	CompanyID uuid.UUID `db:"company_id" json:"companyId"`
	Role      string    `db:"role" json:"role"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// TeamMemberStore exposes persistence helpers for the team_members table.
type TeamMemberStore struct {
	pool *pgxpool.Pool
}

// NewTeamMemberStore returns a store instance bound to the pool.
func NewTeamMemberStore(pool *pgxpool.Pool) (*TeamMemberStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &TeamMemberStore{pool: pool}, nil
}

const teamMemberColumns = "id, user_id, company_id, role, created_at, updated_at"

// CreateMember inserts a membership row. The unique (user_id, company_id)
// constraint maps to ErrConflict.
func (s *TeamMemberStore) CreateMember(ctx context.Context, rec TeamMemberRecord) (TeamMemberRecord, error) {
	if rec.ID == uuid.Nil {
		return TeamMemberRecord{}, errors.New("member id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, user_id, company_id, role)
        VALUES ($1, $2, $3, $4)
        RETURNING %s
    `, TeamMembersTable, teamMemberColumns),
		rec.ID, rec.UserID, rec.CompanyID, rec.Role,
	)

	out, err := scanTeamMember(row)
	if err != nil {
		if isUniqueViolation(err) {
			return TeamMemberRecord{}, ErrConflict
		}
		return TeamMemberRecord{}, err
	}
	return out, nil
}

// CreateMemberTx is the transactional variant used by signup provisioning.
func (s *TeamMemberStore) CreateMemberTx(ctx context.Context, tx pgx.Tx, rec TeamMemberRecord) (TeamMemberRecord, error) {
	row := tx.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, user_id, company_id, role)
        VALUES ($1, $2, $3, $4)
        RETURNING %s
    `, TeamMembersTable, teamMemberColumns),
		rec.ID, rec.UserID, rec.CompanyID, rec.Role,
	)

	out, err := scanTeamMember(row)
	if err != nil {
		if isUniqueViolation(err) {
			return TeamMemberRecord{}, ErrConflict
		}
		return TeamMemberRecord{}, err
	}
	return out, nil
}

// ListMembersByCompany returns the memberships of one company ordered by creation time.
func (s *TeamMemberStore) ListMembersByCompany(ctx context.Context, companyID uuid.UUID) ([]TeamMemberRecord, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE company_id = $1 ORDER BY created_at ASC
    `, teamMemberColumns, TeamMembersTable), companyID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	return collectTeamMembers(rows)
}

// ListMembershipsByUser returns every membership row of one user.
func (s *TeamMemberStore) ListMembershipsByUser(ctx context.Context, userID uuid.UUID) ([]TeamMemberRecord, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE user_id = $1 ORDER BY created_at ASC
    `, teamMemberColumns, TeamMembersTable), userID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	return collectTeamMembers(rows)
}

// HasAdminRoleAnywhere reports whether the user is an admin in at least one company.
func (s *TeamMemberStore) HasAdminRoleAnywhere(ctx context.Context, userID uuid.UUID) (bool, error) {
	var count int
	err := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT COUNT(*) FROM %s WHERE user_id = $1 AND role = 'admin'
    `, TeamMembersTable), userID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count admin memberships: %w", err)
	}
	return count > 0, nil
}

// GetMember returns the membership of a user in a company.
func (s *TeamMemberStore) GetMember(ctx context.Context, userID, companyID uuid.UUID) (TeamMemberRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE user_id = $1 AND company_id = $2
    `, teamMemberColumns, TeamMembersTable), userID, companyID)

	rec, err := scanTeamMember(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return TeamMemberRecord{}, ErrNotFound
		}
		return TeamMemberRecord{}, err
	}
	return rec, nil
}

// DeleteMember removes a membership row scoped to the company.
func (s *TeamMemberStore) DeleteMember(ctx context.Context, companyID, memberID uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`
        DELETE FROM %s WHERE id = $1 AND company_id = $2
    `, TeamMembersTable), memberID, companyID)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func collectTeamMembers(rows pgx.Rows) ([]TeamMemberRecord, error) {
	members := make([]TeamMemberRecord, 0)
	for rows.Next() {
		rec, err := scanTeamMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}
	return members, nil
}

func scanTeamMember(row pgx.Row) (TeamMemberRecord, error) {
	var rec TeamMemberRecord
	if err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.CompanyID,
		&rec.Role,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return TeamMemberRecord{}, err
	}
	return rec, nil
}
