package mcp

import (
	"context"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driving"
)

// mockPipeline is a mock implementation of driving.PipelineService.
type mockPipeline struct {
	result    *domain.QueryResult
	stats     *domain.Stats
	documents []domain.Document
	deleted   int
	submit    *driving.SubmitResult
	err       error

	lastQuery  domain.QueryRequest
	lastPath   string
	lastFileID string
	lastDelete string
}

func (m *mockPipeline) Submit(_ context.Context, _ driving.Upload) (*driving.SubmitResult, error) {
	return m.submit, m.err
}

func (m *mockPipeline) SubmitFile(_ context.Context, fileID, path string) (*driving.SubmitResult, error) {
	m.lastFileID = fileID
	m.lastPath = path
	return m.submit, m.err
}

func (m *mockPipeline) WaitForDocument(ctx context.Context, fileID string) (*domain.Document, error) {
	return m.Document(ctx, fileID)
}

func (m *mockPipeline) Drain(_ context.Context) error { return nil }

func (m *mockPipeline) Query(_ context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	m.lastQuery = req
	return m.result, m.err
}

func (m *mockPipeline) QueryStream(_ context.Context, _ domain.QueryRequest) <-chan domain.StreamFrame {
	ch := make(chan domain.StreamFrame)
	close(ch)
	return ch
}

func (m *mockPipeline) Stats(_ context.Context) (*domain.Stats, error) {
	return m.stats, m.err
}

func (m *mockPipeline) Delete(_ context.Context, fileID string) (int, error) {
	m.lastDelete = fileID
	return m.deleted, m.err
}

func (m *mockPipeline) Documents(_ context.Context) ([]domain.Document, error) {
	return m.documents, m.err
}

func (m *mockPipeline) Document(_ context.Context, fileID string) (*domain.Document, error) {
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.documents {
		if m.documents[i].FileID == fileID {
			return &m.documents[i], nil
		}
	}
	return nil, domain.ErrNotFound
}
