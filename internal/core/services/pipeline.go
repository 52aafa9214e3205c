package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driving"
	"github.com/custodia-labs/neuroquery/internal/logger"
)

// Ensure Pipeline implements the interface.
var _ driving.PipelineService = (*Pipeline)(nil)

// InterruptedMessage is recorded on documents found mid-ingestion at startup.
const InterruptedMessage = "interrupted"

// pollInterval paces WaitForDocument and Drain.
const pollInterval = 50 * time.Millisecond

// PipelineDeps are the driven ports a Pipeline orchestrates.
type PipelineDeps struct {
	Extractor driven.Extractor
	Chunker   driven.Chunker
	Embedder  driven.Embedder
	Index     driven.VectorIndex
	Documents driven.DocumentStore
	Uploads   driven.UploadStore

	// Generator synthesises answers. Nil selects the template generator.
	Generator driven.AnswerGenerator
}

// PipelineConfig holds the tunables a Pipeline reads from settings.
type PipelineConfig struct {
	MaxUploadSize     int64
	AllowedExtensions []string
	BatchSize         int
	FragmentSize      int
	StreamDelay       time.Duration
}

// PipelineConfigFromSettings extracts the pipeline tunables from settings.
func PipelineConfigFromSettings(s *domain.Settings) PipelineConfig {
	return PipelineConfig{
		MaxUploadSize:     s.Uploads.MaxSize,
		AllowedExtensions: s.Uploads.AllowedExtensions,
		BatchSize:         s.Embedding.BatchSize,
		FragmentSize:      s.Query.FragmentSize,
		StreamDelay:       s.Query.StreamDelay,
	}
}

// Pipeline is the single entry point to ingestion and retrieval.
// It wires the ingestion queue to extract, chunk, embed and index uploads,
// and serves queries through a QueryService.
type Pipeline struct {
	deps    PipelineDeps
	uploads domain.UploadSettings
	batch   int

	query *QueryService
	queue *IngestionQueue

	startOnce sync.Once
	closeOnce sync.Once
}

// NewPipeline creates a pipeline. Call Start before submitting work.
func NewPipeline(deps PipelineDeps, cfg PipelineConfig) *Pipeline {
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = domain.DefaultMaxUploadSize
	}
	if len(cfg.AllowedExtensions) == 0 {
		cfg.AllowedExtensions = []string{".pdf"}
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = domain.DefaultEmbeddingBatch
	}

	p := &Pipeline{
		deps: deps,
		uploads: domain.UploadSettings{
			MaxSize:           cfg.MaxUploadSize,
			AllowedExtensions: cfg.AllowedExtensions,
		},
		batch: cfg.BatchSize,
		query: NewQueryService(deps.Embedder, deps.Index, deps.Generator,
			WithFragmentSize(cfg.FragmentSize), WithStreamDelay(cfg.StreamDelay)),
	}
	p.queue = NewIngestionQueue(p.ingest, p.markFailed)
	return p
}

// Start marks documents left queued or processing by a previous run as
// failed, then launches the ingestion worker. Only the first call has effect.
func (p *Pipeline) Start(ctx context.Context) error {
	var err error
	p.startOnce.Do(func() {
		err = p.recoverInterrupted(ctx)
		p.queue.Start(ctx)
	})
	return err
}

// Close stops the worker after its in-flight job and releases the index and embedder.
func (p *Pipeline) Close() error {
	var errs []error
	p.closeOnce.Do(func() {
		p.queue.Stop()
		if p.deps.Index != nil {
			errs = append(errs, p.deps.Index.Close())
		}
		if p.deps.Embedder != nil {
			errs = append(errs, p.deps.Embedder.Close())
		}
	})
	return errors.Join(errs...)
}

// Submit validates and retains an upload, records it as queued and enqueues it.
func (p *Pipeline) Submit(ctx context.Context, upload driving.Upload) (*driving.SubmitResult, error) {
	filename := baseName(upload.Filename)
	if filename == "" {
		return nil, fmt.Errorf("%w: filename is required", domain.ErrValidation)
	}
	if !p.uploads.AllowsExtension(filename) {
		return nil, fmt.Errorf("%w: %s: only %s files are accepted",
			domain.ErrValidation, filename, strings.Join(p.uploads.AllowedExtensions, ", "))
	}
	if upload.Reader == nil {
		return nil, fmt.Errorf("%w: %s: no content", domain.ErrValidation, filename)
	}

	fileID := upload.FileID
	if fileID == "" {
		fileID = uuid.NewString()
	}

	path, size, err := p.deps.Uploads.Save(fileID, filename, upload.Reader, p.uploads.MaxSize)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	doc := &domain.Document{
		FileID:    fileID,
		Filename:  filename,
		ByteSize:  size,
		Status:    domain.StatusQueued,
		Path:      path,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.deps.Documents.Save(ctx, doc); err != nil {
		_ = p.deps.Uploads.Remove(path)
		return nil, fmt.Errorf("register document: %w", err)
	}

	depth, err := p.queue.Submit(domain.Job{
		FileID:      fileID,
		Filename:    filename,
		Path:        path,
		ByteSize:    size,
		SubmittedAt: now,
	})
	if err != nil {
		_ = p.deps.Documents.UpdateStatus(ctx, fileID, driven.StatusUpdate{
			Status: domain.StatusFailed,
			Error:  err.Error(),
		})
		return nil, err
	}

	logger.Info("Queued %s (%s) at position %d", filename, fileID, depth)
	return &driving.SubmitResult{
		FileID:        fileID,
		Filename:      filename,
		Size:          size,
		Status:        domain.StatusQueued,
		QueuePosition: depth,
	}, nil
}

// SubmitFile submits the file at path under its base name and fileID.
func (p *Pipeline) SubmitFile(ctx context.Context, fileID, path string) (*driving.SubmitResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrValidation, err)
	}
	defer f.Close()

	return p.Submit(ctx, driving.Upload{FileID: fileID, Filename: filepath.Base(path), Reader: f})
}

// WaitForDocument polls the registry until the document is processed or failed.
func (p *Pipeline) WaitForDocument(ctx context.Context, fileID string) (*domain.Document, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		doc, err := p.deps.Documents.Get(ctx, fileID)
		if err != nil {
			return nil, err
		}
		if doc.Status.IsTerminal() {
			return doc, nil
		}

		select {
		case <-ctx.Done():
			return doc, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Drain waits until every queued job has been processed.
func (p *Pipeline) Drain(ctx context.Context) error {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for !p.queue.Idle() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// Query answers a query in one piece.
func (p *Pipeline) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	return p.query.Query(ctx, req)
}

// QueryStream answers a query as a stream of frames.
func (p *Pipeline) QueryStream(ctx context.Context, req domain.QueryRequest) <-chan domain.StreamFrame {
	return p.query.Stream(ctx, req)
}

// Stats returns index counters with the queue state.
func (p *Pipeline) Stats(ctx context.Context) (*domain.Stats, error) {
	idx, err := p.deps.Index.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return &domain.Stats{
		DocumentCount: idx.DocumentCount,
		ChunkCount:    idx.ChunkCount,
		QueueDepth:    p.queue.Depth(),
		IsProcessing:  p.queue.IsProcessing(),
	}, nil
}

// Delete removes a document's chunks, its registry record and its retained
// upload. Unknown ids remove nothing and are not an error.
func (p *Pipeline) Delete(ctx context.Context, fileID string) (int, error) {
	if fileID == "" {
		return 0, fmt.Errorf("%w: file_id is required", domain.ErrValidation)
	}

	removed, err := p.deps.Index.DeleteByFileID(ctx, fileID)
	if err != nil {
		return 0, err
	}

	doc, err := p.deps.Documents.Get(ctx, fileID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
	case err != nil:
		return removed, err
	default:
		if doc.Path != "" {
			if err := p.deps.Uploads.Remove(doc.Path); err != nil {
				logger.Warn("remove upload %s: %v", doc.Path, err)
			}
		}
		if err := p.deps.Documents.Delete(ctx, fileID); err != nil {
			return removed, err
		}
	}

	logger.Debug("Deleted %s: %d chunks", fileID, removed)
	return removed, nil
}

// Documents lists registered documents, newest first.
func (p *Pipeline) Documents(ctx context.Context) ([]domain.Document, error) {
	return p.deps.Documents.List(ctx)
}

// Document returns one registered document.
func (p *Pipeline) Document(ctx context.Context, fileID string) (*domain.Document, error) {
	return p.deps.Documents.Get(ctx, fileID)
}

// QueueDepth returns the number of jobs waiting.
func (p *Pipeline) QueueDepth() int {
	return p.queue.Depth()
}

// ingest is the queue handler: extract, chunk, embed in batches, index.
func (p *Pipeline) ingest(ctx context.Context, job domain.Job) error {
	logger.Section("Ingest " + job.Filename)

	err := p.deps.Documents.UpdateStatus(ctx, job.FileID, driven.StatusUpdate{
		Status: domain.StatusProcessing,
	})
	if errors.Is(err, domain.ErrNotFound) {
		logger.Info("Skipped %s: deleted before ingestion", job.Filename)
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark processing: %w", err)
	}

	extracted, err := p.deps.Extractor.Extract(ctx, job.Path)
	if err != nil {
		return err
	}
	logger.Debug("Extracted %d pages", extracted.PageCount)

	chunks := p.deps.Chunker.Chunk(extracted.Text(), job.Filename, job.FileID)
	if len(chunks) == 0 {
		return fmt.Errorf("%w: %s produced no chunks", domain.ErrExtraction, job.Filename)
	}
	for i := range chunks {
		chunks[i].PageCount = extracted.PageCount
	}
	logger.Debug("Split into %d chunks with %s", len(chunks), p.deps.Chunker.Name())

	embeddings, err := p.embed(ctx, chunks)
	if err != nil {
		return err
	}

	if err := p.deps.Index.Add(ctx, chunks, embeddings); err != nil {
		return err
	}

	err = p.deps.Documents.UpdateStatus(ctx, job.FileID, driven.StatusUpdate{
		Status:     domain.StatusProcessed,
		PageCount:  extracted.PageCount,
		ChunkCount: len(chunks),
	})
	if errors.Is(err, domain.ErrNotFound) {
		// Deleted while in flight: drop what was just indexed.
		if _, err := p.deps.Index.DeleteByFileID(ctx, job.FileID); err != nil {
			return err
		}
		logger.Info("Discarded %s: deleted during ingestion", job.Filename)
		return nil
	}
	if err != nil {
		return fmt.Errorf("mark processed: %w", err)
	}

	logger.Info("Processed %s: %d pages, %d chunks", job.Filename, extracted.PageCount, len(chunks))
	return nil
}

// embed embeds chunk texts in batches and attaches the vectors to the chunks.
func (p *Pipeline) embed(ctx context.Context, chunks []domain.Chunk) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(chunks))
	for start := 0; start < len(chunks); start += p.batch {
		end := min(start+p.batch, len(chunks))

		texts := make([]string, 0, end-start)
		for _, c := range chunks[start:end] {
			texts = append(texts, c.Text)
		}

		vecs, err := p.deps.Embedder.EmbedDocuments(ctx, texts)
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(texts) {
			return nil, fmt.Errorf("%w: %d embeddings for %d chunks", domain.ErrEmbedding, len(vecs), len(texts))
		}
		embeddings = append(embeddings, vecs...)
		logger.Debug("Embedded chunks %d-%d", start, end-1)
	}

	for i := range chunks {
		chunks[i].Embedding = embeddings[i]
	}
	return embeddings, nil
}

// markFailed records a failed job on its document.
func (p *Pipeline) markFailed(ctx context.Context, job domain.Job, cause error) {
	err := p.deps.Documents.UpdateStatus(ctx, job.FileID, driven.StatusUpdate{
		Status: domain.StatusFailed,
		Error:  cause.Error(),
	})
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		logger.Warn("record failure of %s: %v", job.FileID, err)
	}
}

// recoverInterrupted fails documents that never reached a terminal status.
func (p *Pipeline) recoverInterrupted(ctx context.Context) error {
	docs, err := p.deps.Documents.List(ctx)
	if err != nil {
		return fmt.Errorf("list documents: %w", err)
	}

	for _, doc := range docs {
		if doc.Status.IsTerminal() {
			continue
		}
		if err := p.deps.Documents.UpdateStatus(ctx, doc.FileID, driven.StatusUpdate{
			Status:     domain.StatusFailed,
			PageCount:  doc.PageCount,
			ChunkCount: doc.ChunkCount,
			Error:      InterruptedMessage,
		}); err != nil {
			return fmt.Errorf("recover %s: %w", doc.FileID, err)
		}
		logger.Warn("%s (%s) was interrupted and marked failed", doc.Filename, doc.FileID)
	}
	return nil
}

// baseName strips any directory part, including Windows separators.
func baseName(filename string) string {
	name := filepath.Base(strings.ReplaceAll(strings.TrimSpace(filename), `\`, "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}
