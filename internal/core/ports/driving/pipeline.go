package driving

import (
	"context"
	"io"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
)

// PipelineService is the single entry point to ingestion and retrieval.
type PipelineService interface {
	// Submit validates and retains an upload, records it as queued and enqueues it
	// for ingestion. It returns as soon as the job is queued.
	Submit(ctx context.Context, upload Upload) (*SubmitResult, error)

	// SubmitFile submits the file at path under its base name and fileID.
	// An empty fileID behaves like Submit and generates one.
	SubmitFile(ctx context.Context, fileID, path string) (*SubmitResult, error)

	// WaitForDocument blocks until the document reaches a terminal status or ctx is done.
	WaitForDocument(ctx context.Context, fileID string) (*domain.Document, error)

	// Drain blocks until the queue is empty and the worker idle, or ctx is done.
	Drain(ctx context.Context) error

	// Query answers a query in one piece.
	Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)

	// QueryStream answers a query as answer fragments followed by a sources frame.
	// The channel is closed after the terminal frame or when ctx is cancelled.
	QueryStream(ctx context.Context, req domain.QueryRequest) <-chan domain.StreamFrame

	// Stats returns document and chunk counts with the queue state.
	Stats(ctx context.Context) (*domain.Stats, error)

	// Delete removes a document, its chunks and its retained upload.
	// It returns the number of chunks removed; unknown ids remove nothing.
	Delete(ctx context.Context, fileID string) (int, error)

	// Documents lists registered documents, newest first.
	Documents(ctx context.Context) ([]domain.Document, error)

	// Document returns one registered document or domain.ErrNotFound.
	Document(ctx context.Context, fileID string) (*domain.Document, error)
}

// Upload is a raw file handed to Submit.
type Upload struct {
	// FileID is optional. A UUID is generated when empty.
	FileID string

	// Filename is the original filename; only its base name is kept.
	Filename string

	// Reader supplies the raw bytes.
	Reader io.Reader
}

// SubmitResult is returned synchronously from Submit.
type SubmitResult struct {
	FileID        string                `json:"file_id"`
	Filename      string                `json:"filename"`
	Size          int64                 `json:"size"`
	Status        domain.DocumentStatus `json:"status"`
	QueuePosition int                   `json:"queue_position"`
}
