package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
	}
}

// Save stores or replaces a document.
func (s *DocumentStore) Save(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.FileID == "" {
		return fmt.Errorf("%w: document requires a file id", domain.ErrValidation)
	}
	if !doc.Status.IsValid() {
		return fmt.Errorf("%w: document status %q", domain.ErrValidation, doc.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	s.documents[doc.FileID] = *doc
	return nil
}

// Get retrieves a document by file id.
func (s *DocumentStore) Get(_ context.Context, fileID string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[fileID]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", fileID, domain.ErrNotFound)
	}
	return &doc, nil
}

// List returns all documents, newest first.
func (s *DocumentStore) List(_ context.Context) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Document, 0, len(s.documents))
	for _, doc := range s.documents {
		result = append(result, doc)
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].FileID < result[j].FileID
	})
	return result, nil
}

// UpdateStatus records a status transition.
func (s *DocumentStore) UpdateStatus(_ context.Context, fileID string, update driven.StatusUpdate) error {
	if !update.Status.IsValid() {
		return fmt.Errorf("%w: document status %q", domain.ErrValidation, update.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.documents[fileID]
	if !ok {
		return fmt.Errorf("document %s: %w", fileID, domain.ErrNotFound)
	}
	doc.Status = update.Status
	doc.PageCount = update.PageCount
	doc.ChunkCount = update.ChunkCount
	doc.Error = update.Error
	doc.UpdatedAt = time.Now().UTC()
	s.documents[fileID] = doc
	return nil
}

// Delete removes a document.
func (s *DocumentStore) Delete(_ context.Context, fileID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, fileID)
	return nil
}

// CountByStatus returns the number of documents in each status.
func (s *DocumentStore) CountByStatus(_ context.Context) (map[domain.DocumentStatus]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[domain.DocumentStatus]int)
	for _, doc := range s.documents {
		counts[doc.Status]++
	}
	return counts, nil
}
