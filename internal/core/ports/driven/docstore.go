package driven

import (
	"context"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
)

// DocumentStore is the registry of uploaded documents and their ingestion status.
type DocumentStore interface {
	// Save stores or replaces a document.
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by file id.
	// Returns domain.ErrNotFound if it does not exist.
	Get(ctx context.Context, fileID string) (*domain.Document, error)

	// List returns all documents, newest first.
	List(ctx context.Context) ([]domain.Document, error)

	// UpdateStatus records a status transition with the counts known so far.
	// Returns domain.ErrNotFound if the document does not exist.
	UpdateStatus(ctx context.Context, fileID string, update StatusUpdate) error

	// Delete removes a document. Deleting an unknown id is not an error.
	Delete(ctx context.Context, fileID string) error

	// CountByStatus returns the number of documents in each status.
	CountByStatus(ctx context.Context) (map[domain.DocumentStatus]int, error)
}

// StatusUpdate describes a document status transition.
type StatusUpdate struct {
	Status     domain.DocumentStatus
	PageCount  int
	ChunkCount int
	Error      string
}
