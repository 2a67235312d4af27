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

const CommentsTable = "comments"

// CommentRecord represents an immutable comments row. Comments are never
// updated or deleted once posted.
type CommentRecord struct {
	ID          uuid.UUID `db:"id" json:"id"`
	CandidateID uuid.UUID `db:"candidate_id" json:"candidateId"`
	Content     string    `db:"content" json:"content"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	CreatedBy   uuid.UUID `db:"created_by" json:"createdBy"`
}

// CommentStore exposes persistence helpers for the comments table.
type CommentStore struct {
	pool *pgxpool.Pool
}

// NewCommentStore returns a store instance bound to the pool.
func NewCommentStore(pool *pgxpool.Pool) (*CommentStore, error) {
	if pool == nil {
		return nil, errors.New("pool is required")
	}
	return &CommentStore{pool: pool}, nil
}

// CreateComment inserts a new comment and returns the persisted record.
func (s *CommentStore) CreateComment(ctx context.Context, rec CommentRecord) (CommentRecord, error) {
	if rec.ID == uuid.Nil {
		return CommentRecord{}, errors.New("comment id is required")
	}

	row := s.pool.QueryRow(ctx, fmt.Sprintf(`
        INSERT INTO %s (id, candidate_id, content, created_by)
        VALUES ($1, $2, $3, $4)
        RETURNING id, candidate_id, content, created_at, created_by
    `, CommentsTable),
		rec.ID, rec.CandidateID, strings.TrimSpace(rec.Content), rec.CreatedBy,
	)

	return scanComment(row)
}

// ListCommentsByCandidate returns a candidate's comments, newest first.
func (s *CommentStore) ListCommentsByCandidate(ctx context.Context, candidateID uuid.UUID) ([]CommentRecord, error) {
	rows, err := s.pool.Query(ctx, fmt.Sprintf(`
        SELECT id, candidate_id, content, created_at, created_by
        FROM %s WHERE candidate_id = $1
        ORDER BY created_at DESC
    `, CommentsTable), candidateID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]CommentRecord, 0)
	for rows.Next() {
		rec, scanErr := scanComment(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("scan comment: %w", scanErr)
		}
		comments = append(comments, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}

	return comments, nil
}

func scanComment(row pgx.Row) (CommentRecord, error) {
	var rec CommentRecord
	if err := row.Scan(
		&rec.ID,
		&rec.CandidateID,
		&rec.Content,
		&rec.CreatedAt,
		&rec.CreatedBy,
	); err != nil {
		return CommentRecord{}, err
	}
	return rec, nil
}
