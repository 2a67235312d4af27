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

const DocumentsTable = "documents"

// DocumentRecord holds metadata for one uploaded blob. The blob itself lives
// in the blob store under StoragePath.
type DocumentRecord struct {
	ID          uuid.UUID `db:"id" json:"id"`
	CandidateID uuid.UUID `db:"candidate_id" json:"candidateId"`
	Type        string    `db:"type" json:"type"`
	Name        string    `db:"name" json:"name"`
	StoragePath string    `db:"storage_path" json:"storagePath"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	CreatedBy   uuid.UUID `db:"created_by" json:"createdBy"`
}

// DocumentStore exposes persistence helpers for the documents table.
type DocumentStore struct {
	pool *pgxpool.Pool
}

// NewDocumentStore returns a store instance bound to the pool.
func NewDocumentStore(pool *pgxpool.Pool) (*DocumentStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &DocumentStore{pool: pool}, nil
}

const documentColumns = "id, candidate_id, type, name, storage_path, created_at, created_by"

// CreateDocument inserts a new document ref and returns the persisted record.
func (s *DocumentStore) CreateDocument(ctx context.Context, rec DocumentRecord) (DocumentRecord, error) {
	if rec.ID == uuid.Nil {
		return DocumentRecord{}, errors.New("document id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, candidate_id, type, name, storage_path, created_by)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING %s
    `, DocumentsTable, documentColumns),
		rec.ID, rec.CandidateID, rec.Type, strings.TrimSpace(rec.Name), rec.StoragePath, rec.CreatedBy,
	)

	out, err := scanDocument(row)
	if err != nil {
		if isUniqueViolation(err) {
			return DocumentRecord{}, ErrConflict
		}
		return DocumentRecord{}, err
	}
	return out, nil
}

// GetDocument returns a single document ref.
func (s *DocumentStore) GetDocument(ctx context.Context, id uuid.UUID) (DocumentRecord, error) {
	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE id = $1
    `, documentColumns, DocumentsTable), id)

	rec, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DocumentRecord{}, ErrNotFound
		}
		return DocumentRecord{}, err
	}
	return rec, nil
}

// ListDocumentsByCandidate returns a candidate's document refs, newest first.
func (s *DocumentStore) ListDocumentsByCandidate(ctx context.Context, candidateID uuid.UUID) ([]DocumentRecord, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT %s FROM %s WHERE candidate_id = $1
        ORDER BY created_at DESC
    `, documentColumns, DocumentsTable), candidateID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	documents := make([]DocumentRecord, 0)
	for rows.Next() {
		rec, scanErr := scanDocument(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan document: %w", scanErr)
		}
		documents = append(documents, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return documents, nil
}

// DeleteDocument removes a document ref. Callers delete the blob first.
func (s *DocumentStore) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	tag, err := s.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, DocumentsTable), id)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanDocument(row pgx.Row) (DocumentRecord, error) {
	var rec DocumentRecord
	if err := row.Scan(
		&rec.ID,
		&rec.CandidateID,
		&rec.Type,
		&rec.Name,
		&rec.StoragePath,
		&rec.CreatedAt,
		&rec.CreatedBy,
	); err != nil {
		return DocumentRecord{}, err
	}
	return rec, nil
}
