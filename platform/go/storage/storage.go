package storage

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
)

// ErrBlobNotFound indicates the requested object does not exist in the store.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore abstracts the object storage used for candidate documents.
// Implementations: GCS for deployments, local filesystem for dev, memory for tests.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	Download(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

// BuildDocumentKey produces a collision-resistant storage key scoped under the
// candidate: "candidates/<candidateID>/<random uuid><ext>". Re-uploads of the
// same file name never collide because the random segment differs.
func BuildDocumentKey(candidateID uuid.UUID, fileName string) (string, error) {
	if candidateID == uuid.Nil {
		return "", fmt.Errorf("candidate id is required")
	}
	name := strings.TrimSpace(fileName)
	if name == "" {
		return "", fmt.Errorf("file name is required")
	}

	ext := strings.ToLower(path.Ext(name))
	return fmt.Sprintf("candidates/%s/%s%s", candidateID, uuid.New(), ext), nil
}
