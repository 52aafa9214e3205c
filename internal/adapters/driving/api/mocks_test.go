package api

import (
	"context"
	"io"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driving"
)

// mockPipeline is a mock implementation of driving.PipelineService.
type mockPipeline struct {
	frames    []domain.StreamFrame
	result    *domain.QueryResult
	stats     *domain.Stats
	documents []domain.Document
	deleted   int
	err       error

	uploaded  string
	uploadLen int
	lastQuery domain.QueryRequest
}

func (m *mockPipeline) Submit(_ context.Context, upload driving.Upload) (*driving.SubmitResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	data, err := io.ReadAll(upload.Reader)
	if err != nil {
		return nil, err
	}
	m.uploaded = upload.Filename
	m.uploadLen = len(data)
	return &driving.SubmitResult{
		FileID:        "f1",
		Filename:      upload.Filename,
		Size:          int64(len(data)),
		Status:        domain.StatusQueued,
		QueuePosition: 1,
	}, nil
}

func (m *mockPipeline) SubmitFile(_ context.Context, _, _ string) (*driving.SubmitResult, error) {
	return nil, m.err
}

func (m *mockPipeline) WaitForDocument(ctx context.Context, fileID string) (*domain.Document, error) {
	return m.Document(ctx, fileID)
}

func (m *mockPipeline) Drain(_ context.Context) error { return nil }

func (m *mockPipeline) Query(_ context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	m.lastQuery = req
	return m.result, m.err
}

func (m *mockPipeline) QueryStream(_ context.Context, req domain.QueryRequest) <-chan domain.StreamFrame {
	m.lastQuery = req
	ch := make(chan domain.StreamFrame, len(m.frames))
	for _, f := range m.frames {
		ch <- f
	}
	close(ch)
	return ch
}

func (m *mockPipeline) Stats(_ context.Context) (*domain.Stats, error) {
	return m.stats, m.err
}

func (m *mockPipeline) Delete(_ context.Context, _ string) (int, error) {
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
