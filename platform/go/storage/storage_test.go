package storage

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestBuildDocumentKey(t *testing.T) {
	candidateID := uuid.New()

	key, err := BuildDocumentKey(candidateID, "resume.PDF")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(key, "candidates/"+candidateID.String()+"/"))
	require.True(t, strings.HasSuffix(key, ".pdf"))

	// Same input never collides; the random segment differs per call.
	other, err := BuildDocumentKey(candidateID, "resume.PDF")
	require.NoError(t, err)
	require.NotEqual(t, key, other)
}

func TestBuildDocumentKey_validates(t *testing.T) {
	_, err := BuildDocumentKey(uuid.Nil, "resume.pdf")
	require.Error(t, err)

	_, err = BuildDocumentKey(uuid.New(), "   ")
	require.Error(t, err)
}

func TestMemoryBlobStore_roundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryBlobStore()

	require.NoError(t, store.Upload(ctx, "candidates/a/b.pdf", []byte("content"), "application/pdf"))

	data, err := store.Download(ctx, "candidates/a/b.pdf")
	require.NoError(t, err)
	require.Equal(t, []byte("content"), data)

	require.NoError(t, store.Delete(ctx, "candidates/a/b.pdf"))
	require.Equal(t, 0, store.Len())

	_, err = store.Download(ctx, "candidates/a/b.pdf")
	require.ErrorIs(t, err, ErrBlobNotFound)

	require.ErrorIs(t, store.Delete(ctx, "candidates/a/b.pdf"), ErrBlobNotFound)
}

func TestLocalBlobStore_roundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)

	key := "candidates/" + uuid.NewString() + "/cv.pdf"
	require.NoError(t, store.Upload(ctx, key, []byte("blob"), "application/pdf"))

	data, err := store.Download(ctx, key)
	require.NoError(t, err)
	require.Equal(t, []byte("blob"), data)

	require.NoError(t, store.Delete(ctx, key))

	_, err = store.Download(ctx, key)
	require.ErrorIs(t, err, ErrBlobNotFound)
	require.ErrorIs(t, store.Delete(ctx, key), ErrBlobNotFound)
}

func TestLocalBlobStore_rejectsTraversal(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocalBlobStore(t.TempDir())
	require.NoError(t, err)

	require.Error(t, store.Upload(ctx, "../outside.txt", []byte("x"), "text/plain"))
	_, err = store.Download(ctx, "../../etc/passwd")
	require.Error(t, err)

	require.Error(t, store.Upload(ctx, "  ", []byte("x"), "text/plain"))
}
