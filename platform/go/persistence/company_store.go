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

const CompaniesTable = "companies"

// CompanyRecord represents a row in the companies table. Settings is the raw
// jsonb payload; validation happens in the companies service.
type CompanyRecord struct {
	ID                 uuid.UUID  `db:"id" json:"id"`
	Name               string     `db:"name" json:"name"`
	Settings           []byte     `db:"settings" json:"settings"`
	SubscriptionStatus string     `db:"subscription_status" json:"subscriptionStatus"`
	SubscriptionEndsAt *time.Time `db:"subscription_ends_at" json:"subscriptionEndsAt"`
	CreatedAt          time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updatedAt"`
}

// CompanyStore exposes persistence helpers for the companies table.
type CompanyStore struct {
	pool *pgxpool.Pool
}

// NewCompanyStore returns a store instance bound to the pool.
func NewCompanyStore(pool *pgxpool.Pool) (*CompanyStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &CompanyStore{pool: pool}, nil
}

const companyColumns = "id, name, settings, subscription_status, subscription_ends_at, created_at, updated_at"

// CreateCompany inserts a new company and returns the persisted record.
func (s *CompanyStore) CreateCompany(ctx context.Context, rec CompanyRecord) (CompanyRecord, error) {
	if rec.ID == uuid.Nil {
		return CompanyRecord{}, errors.New("company id is required")
	}
	settings := rec.Settings
	if len(settings) == 0 {
		settings = []byte("{}")
	}
	status := rec.SubscriptionStatus
	if strings.TrimSpace(status) == "" {
		status = "trial"
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, name, settings, subscription_status, subscription_ends_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING %s
    `, CompaniesTable, companyColumns),
		rec.ID,
		strings.TrimSpace(rec.Name),
		settings,
		status,
		rec.SubscriptionEndsAt,
	)

	return scanCompany(row)
}

// CreateCompanyTx is the transactional variant used by signup provisioning.
func (s *CompanyStore) CreateCompanyTx(ctx context.Context, tx pgx.Tx, rec CompanyRecord) (CompanyRecord, error) {
	settings := rec.Settings
	if len(settings) == 0 {
		settings = []byte("{}")
	}
	status := rec.SubscriptionStatus
	if strings.TrimSpace(status) == "" {
		status = "trial"
	}

	row := tx.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, name, settings, subscription_status, subscription_ends_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING %s
    `, CompaniesTable, companyColumns),
		rec.ID,
		strings.TrimSpace(rec.Name),
		settings,
		status,
		rec.SubscriptionEndsAt,
	)

	return scanCompany(row)
}

// GetCompany returns a single company by identifier.
func (s *CompanyStore) GetCompany(ctx context.Context, id uuid.UUID) (CompanyRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE id = $1
    `, companyColumns, CompaniesTable), id)

	rec, err := scanCompany(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CompanyRecord{}, ErrNotFound
		}
		return CompanyRecord{}, err
	}

	return rec, nil
}

// ListAllCompanies returns every company ordered by name. Admin selector only.
func (s *CompanyStore) ListAllCompanies(ctx context.Context) ([]CompanyRecord, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s ORDER BY name ASC
    `, companyColumns, CompaniesTable))
	if err != nil {
		return nil, fmt.Errorf("list companies: %w", err)
	}
	defer rows.Close()

	return collectCompanies(rows)
}

// ListCompaniesByIDs returns the companies with the given ids ordered by name.
func (s *CompanyStore) ListCompaniesByIDs(ctx context.Context, ids []uuid.UUID) ([]CompanyRecord, error) {
	if len(ids) == 0 {
		return []CompanyRecord{}, nil
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE id = ANY($1) ORDER BY name ASC
    `, companyColumns, CompaniesTable), ids)
	if err != nil {
		return nil, fmt.Errorf("list companies by ids: %w", err)
	}
	defer rows.Close()

	return collectCompanies(rows)
}

// UpdateCompanyParams represents admin-editable fields.
type UpdateCompanyParams struct {
	Name               *string
	Settings           []byte
	SubscriptionStatus *string
	SubscriptionEndsAt *time.Time
}

// UpdateCompany applies the provided fields and returns the updated record.
func (s *CompanyStore) UpdateCompany(ctx context.Context, id uuid.UUID, params UpdateCompanyParams) (CompanyRecord, error) {
	setParts := []string{}
	var args []any

	if params.Name != nil {
		args = append(args, strings.TrimSpace(*params.Name))
		setParts = append(setParts, fmt.Sprintf("name = $%d", len(args)))
	}
	if params.Settings != nil {
		args = append(args, params.Settings)
		setParts = append(setParts, fmt.Sprintf("settings = $%d", len(args)))
	}
	if params.SubscriptionStatus != nil {
		args = append(args, strings.TrimSpace(*params.SubscriptionStatus))
		setParts = append(setParts, fmt.Sprintf("subscription_status = $%d", len(args)))
	}
	if params.SubscriptionEndsAt != nil {
		args = append(args, *params.SubscriptionEndsAt)
		setParts = append(setParts, fmt.Sprintf("subscription_ends_at = $%d", len(args)))
	}

	if len(setParts) == 0 {
		return CompanyRecord{}, errors.New("no fields to update")
	}

	args = append(args, id)

	query := fmt.Sprintf(`
        UPDATE %s
        SET %s, updated_at = NOW()
        WHERE id = $%d
        RETURNING %s
    `, CompaniesTable, strings.Join(setParts, ", "), len(args), companyColumns)

	rec, err := scanCompany(s.pool.QueryRow(ctx, query, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return CompanyRecord{}, ErrNotFound
		}
		return CompanyRecord{}, err
	}

	return rec, nil
}

func collectCompanies(rows pgx.Rows) ([]CompanyRecord, error) {
	companies := make([]CompanyRecord, 0)
	for rows.Next() {
		rec, err := scanCompany(rows)
		if err != nil {
			return nil, fmt.Errorf("scan company: %w", err)
		}
		companies = append(companies, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate companies: %w", err)
	}
	return companies, nil
}

func scanCompany(row pgx.Row) (CompanyRecord, error) {
	var rec CompanyRecord
	if err := row.Scan(
		&rec.ID,
		&rec.Name,
		&rec.Settings,
		&rec.SubscriptionStatus,
		&rec.SubscriptionEndsAt,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return CompanyRecord{}, err
	}
	return rec, nil
}
