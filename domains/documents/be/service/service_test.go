package service_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/wundergunder/gunderats/domains/documents/be/repo"
	"github.com/wundergunder/gunderats/domains/documents/be/service"
	"github.com/wundergunder/gunderats/platform/go/session"
	"github.com/wundergunder/gunderats/platform/go/storage"
)

type fixture struct {
	repo        *repo.MemoryRepository
	blobs       *storage.MemoryBlobStore
	svc         *service.Service
	companyID   uuid.UUID
	candidateID uuid.UUID
	sess        session.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	memory := repo.NewMemoryRepository()
	blobs := storage.NewMemoryBlobStore()
	companyID := uuid.New()
	candidateID := uuid.New()
	memory.SeedCandidate(companyID, candidateID)

	return &fixture{
		repo:        memory,
		blobs:       blobs,
		svc:         service.New(memory, blobs, memory, zaptest.NewLogger(t)),
		companyID:   companyID,
		candidateID: candidateID,
		sess: session.Context{
			UserID:               uuid.New(),
			AuthorizedCompanyIDs: []uuid.UUID{companyID},
			SelectedCompanyID:    companyID,
		},
	}
}

func resumeInput() service.AttachInput {
	return service.AttachInput{
		Type:        service.TypeResume,
		FileName:    "resume.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4 fake"),
	}
}

func TestAttachStoresBlobAndRef(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Attach(ctx, f.sess, f.companyID, f.candidateID, resumeInput())
	require.NoError(t, err)
	require.Equal(t, service.TypeResume, doc.Type)
	require.Equal(t, "resume.pdf", doc.Name)
	require.Equal(t, f.sess.UserID, doc.CreatedBy)
	require.Equal(t, 1, f.blobs.Len())
	require.Equal(t, 1, f.repo.Len())

	fetched, data, err := f.svc.Download(ctx, f.sess, f.companyID, f.candidateID, doc.ID)
	require.NoError(t, err)
	require.Equal(t, doc.ID, fetched.ID)
	require.Equal(t, []byte("%PDF-1.4 fake"), data)
}

func TestAttachValidation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.svc.Attach(context.Background(), f.sess, f.companyID, f.candidateID, service.AttachInput{
		Type:     "spreadsheet",
		FileName: " ",
	})

	var validationErr *service.ValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Contains(t, validationErr.Fields, "type")
	require.Contains(t, validationErr.Fields, "fileName")
	require.Contains(t, validationErr.Fields, "data")
	require.Equal(t, 0, f.blobs.Len())
}

func TestAttachUploadFailureWritesNothing(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.blobs.UploadErr = errors.New("bucket unavailable")

	_, err := f.svc.Attach(context.Background(), f.sess, f.companyID, f.candidateID, resumeInput())
	require.Error(t, err)
	require.Equal(t, 0, f.blobs.Len())
	require.Equal(t, 0, f.repo.Len())
}

func TestAttachRefFailureDeletesBlob(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.repo.FailCreate = errors.New("insert failed")

	_, err := f.svc.Attach(context.Background(), f.sess, f.companyID, f.candidateID, resumeInput())
	require.Error(t, err)

	// No half-attached state: the uploaded blob was rolled back.
	require.Equal(t, 0, f.blobs.Len())
	require.Equal(t, 0, f.repo.Len())
}

func TestRemoveDeletesBlobThenRef(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Attach(ctx, f.sess, f.companyID, f.candidateID, resumeInput())
	require.NoError(t, err)

	require.NoError(t, f.svc.Remove(ctx, f.sess, f.companyID, f.candidateID, doc.ID))
	require.Equal(t, 0, f.blobs.Len())
	require.Equal(t, 0, f.repo.Len())
}

func TestRemoveKeepsRefWhenBlobDeleteFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Attach(ctx, f.sess, f.companyID, f.candidateID, resumeInput())
	require.NoError(t, err)

	f.blobs.DeleteErr = errors.New("bucket unavailable")
	require.Error(t, f.svc.Remove(ctx, f.sess, f.companyID, f.candidateID, doc.ID))

	// Blob deletion failed, so the ref must survive for a later retry.
	require.Equal(t, 1, f.repo.Len())
	require.Equal(t, 1, f.blobs.Len())
}

func TestDocumentsScopedToCandidateAndCompany(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	doc, err := f.svc.Attach(ctx, f.sess, f.companyID, f.candidateID, resumeInput())
	require.NoError(t, err)

	otherCompany := uuid.New()
	otherSess := session.Context{
		UserID:               uuid.New(),
		AuthorizedCompanyIDs: []uuid.UUID{otherCompany},
		SelectedCompanyID:    otherCompany,
	}

	_, err = f.svc.List(ctx, otherSess, f.companyID, f.candidateID)
	require.ErrorIs(t, err, service.ErrCandidateNotFound)

	// A document id fetched through a different candidate of the same
	// company is invisible too.
	otherCandidate := uuid.New()
	f.repo.SeedCandidate(f.companyID, otherCandidate)
	_, _, err = f.svc.Download(ctx, f.sess, f.companyID, otherCandidate, doc.ID)
	require.ErrorIs(t, err, service.ErrNotFound)
}

func TestListNewestFirst(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.Attach(ctx, f.sess, f.companyID, f.candidateID, resumeInput())
	require.NoError(t, err)

	second := resumeInput()
	second.Type = service.TypeCoverLetter
	second.FileName = "cover.pdf"
	_, err = f.svc.Attach(ctx, f.sess, f.companyID, f.candidateID, second)
	require.NoError(t, err)

	docs, err := f.svc.List(ctx, f.sess, f.companyID, f.candidateID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.Equal(t, "cover.pdf", docs[0].Name)
	require.Equal(t, "resume.pdf", docs[1].Name)
}
