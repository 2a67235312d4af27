package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wundergunder/gunderats/platform/go/session"
	"github.com/wundergunder/gunderats/platform/go/storage"
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
	ErrNotFound          = errors.New("document not found")
	ErrCandidateNotFound = errors.New("candidate not found")
)

// Type of an attached document.
type Type string

const (
	TypeResume      Type = "resume"
	TypeCoverLetter Type = "cover_letter"
	TypeOther       Type = "other"
)

func validType(t Type) bool {
	switch t {
	case TypeResume, TypeCoverLetter, TypeOther:
		return true
	default:
		return false
	}
}

// Document is the metadata ref for one stored blob. The ref and the blob move
// in lockstep: no ref without a blob, no orphaned blob after removal.
type Document struct {
	ID          uuid.UUID
	CandidateID uuid.UUID
	Type        Type
	Name        string
	StoragePath string
	CreatedBy   uuid.UUID
	CreatedAt   time.Time
}

// AttachInput captures a new upload.
type AttachInput struct {
	Type        Type
	FileName    string
	ContentType string
	Data        []byte
}

// Repository abstracts persistence for document refs.
type Repository interface {
	Create(ctx context.Context, doc Document) (Document, error)
	Get(ctx context.Context, id uuid.UUID) (Document, error)
	ListByCandidate(ctx context.Context, candidateID uuid.UUID) ([]Document, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CandidateGateway resolves candidates owned by the candidates domain.
type CandidateGateway interface {
	// CandidateExists reports whether the candidate belongs to the company.
	CandidateExists(ctx context.Context, companyID, candidateID uuid.UUID) (bool, error)
}

// MaxUploadSize caps document payloads at 10 MiB, matching the bucket policy.
const MaxUploadSize = 10 << 20

// Service provides document attach, download and removal operations.
type Service struct {
	repo       Repository
	blobs      storage.BlobStore
	candidates CandidateGateway
	logger     *zap.Logger
}

// New constructs a Service with required dependencies.
func New(repo Repository, blobs storage.BlobStore, candidates CandidateGateway, logger *zap.Logger) *Service {
	if repo == nil {
		panic("documents repo is required")
	}
	if blobs == nil {
		panic("blob store is required")
	}
	if candidates == nil {
		panic("candidate gateway is required")
	}
	if logger == nil {
		panic("logger is required")
	}
	return &Service{repo: repo, blobs: blobs, candidates: candidates, logger: logger}
}

// Attach uploads the blob first and inserts the ref second. If the ref insert
// fails the just-written blob is deleted again, so a failed attach leaves
// neither half behind.
func (s *Service) Attach(ctx context.Context, sess session.Context, companyID, candidateID uuid.UUID, input AttachInput) (Document, error) {
	if err := s.requireCandidate(ctx, sess, companyID, candidateID); err != nil {
		return Document{}, err
	}

	fieldErrors := FieldErrors{}
	if !validType(input.Type) {
		fieldErrors.add("type", "type must be resume, cover_letter or other")
	}
	if strings.TrimSpace(input.FileName) == "" {
		fieldErrors.add("fileName", "file name is required")
	}
	if len(input.Data) == 0 {
		fieldErrors.add("data", "file content is required")
	}
	if len(input.Data) > MaxUploadSize {
		fieldErrors.add("data", fmt.Sprintf("file exceeds the %d byte limit", MaxUploadSize))
	}
	if len(fieldErrors) > 0 {
		return Document{}, &ValidationError{Fields: fieldErrors}
	}

	key, err := storage.BuildDocumentKey(candidateID, input.FileName)
	if err != nil {
		fieldErrors.add("fileName", err.Error())
		return Document{}, &ValidationError{Fields: fieldErrors}
	}

	contentType := input.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	if err := s.blobs.Upload(ctx, key, input.Data, contentType); err != nil {
		return Document{}, fmt.Errorf("upload blob: %w", err)
	}

	doc, err := s.repo.Create(ctx, Document{
		ID:          uuid.New(),
		CandidateID: candidateID,
		Type:        input.Type,
		Name:        strings.TrimSpace(input.FileName),
		StoragePath: key,
		CreatedBy:   sess.UserID,
	})
	if err != nil {
		if delErr := s.blobs.Delete(ctx, key); delErr != nil {
			s.logger.Error("orphaned blob after failed document insert",
				zap.String("storagePath", key), zap.Error(delErr))
		}
		return Document{}, fmt.Errorf("create document ref: %w", err)
	}
	return doc, nil
}

// List returns a candidate's document refs, newest first.
func (s *Service) List(ctx context.Context, sess session.Context, companyID, candidateID uuid.UUID) ([]Document, error) {
	if err := s.requireCandidate(ctx, sess, companyID, candidateID); err != nil {
		return nil, err
	}
	return s.repo.ListByCandidate(ctx, candidateID)
}

// Download returns the document ref and its blob content.
func (s *Service) Download(ctx context.Context, sess session.Context, companyID, candidateID, documentID uuid.UUID) (Document, []byte, error) {
	doc, err := s.getScoped(ctx, sess, companyID, candidateID, documentID)
	if err != nil {
		return Document{}, nil, err
	}

	data, err := s.blobs.Download(ctx, doc.StoragePath)
	if err != nil {
		if errors.Is(err, storage.ErrBlobNotFound) {
			return Document{}, nil, ErrNotFound
		}
		return Document{}, nil, fmt.Errorf("download blob: %w", err)
	}
	return doc, data, nil
}

// Remove deletes the blob first and the ref second. A blob that is already
// gone does not block removing the ref.
func (s *Service) Remove(ctx context.Context, sess session.Context, companyID, candidateID, documentID uuid.UUID) error {
	doc, err := s.getScoped(ctx, sess, companyID, candidateID, documentID)
	if err != nil {
		return err
	}

	if err := s.blobs.Delete(ctx, doc.StoragePath); err != nil && !errors.Is(err, storage.ErrBlobNotFound) {
		return fmt.Errorf("delete blob: %w", err)
	}

	return s.repo.Delete(ctx, doc.ID)
}

func (s *Service) requireCandidate(ctx context.Context, sess session.Context, companyID, candidateID uuid.UUID) error {
	if !sess.Authorized(companyID) {
		return ErrCandidateNotFound
	}
	exists, err := s.candidates.CandidateExists(ctx, companyID, candidateID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrCandidateNotFound
	}
	return nil
}

func (s *Service) getScoped(ctx context.Context, sess session.Context, companyID, candidateID, documentID uuid.UUID) (Document, error) {
	if err := s.requireCandidate(ctx, sess, companyID, candidateID); err != nil {
		return Document{}, err
	}

	doc, err := s.repo.Get(ctx, documentID)
	if err != nil {
		return Document{}, err
	}
	if doc.CandidateID != candidateID {
		return Document{}, ErrNotFound
	}
	return doc, nil
}
