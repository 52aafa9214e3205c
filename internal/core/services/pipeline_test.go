package services

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/neuroquery/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/neuroquery/internal/adapters/driven/storage/uploads"
	vectormem "github.com/custodia-labs/neuroquery/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/neuroquery/internal/chunker"
	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driven"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driving"
)

type pipelineFixture struct {
	pipeline  *Pipeline
	extractor *mockExtractor
	embedder  *mockEmbedder
	index     *vectormem.Index
	docs      *memory.DocumentStore
	uploadDir string
}

func newPipelineFixture(t *testing.T, cfg PipelineConfig) *pipelineFixture {
	t.Helper()

	dir := t.TempDir()
	store, err := uploads.NewStore(dir)
	require.NoError(t, err)

	f := &pipelineFixture{
		extractor: newMockExtractor(),
		embedder:  &mockEmbedder{},
		index:     vectormem.New(3),
		docs:      memory.NewDocumentStore(),
		uploadDir: dir,
	}
	f.pipeline = NewPipeline(PipelineDeps{
		Extractor: f.extractor,
		Chunker:   chunker.NewWords(chunker.WithChunkSize(40), chunker.WithOverlap(0)),
		Embedder:  f.embedder,
		Index:     f.index,
		Documents: f.docs,
		Uploads:   store,
	}, cfg)
	t.Cleanup(func() { _ = f.pipeline.Close() })
	return f
}

func (f *pipelineFixture) start(t *testing.T) {
	t.Helper()
	require.NoError(t, f.pipeline.Start(context.Background()))
}

func (f *pipelineFixture) submit(t *testing.T, filename string) *driving.SubmitResult {
	t.Helper()
	res, err := f.pipeline.Submit(context.Background(), driving.Upload{
		Filename: filename,
		Reader:   strings.NewReader("%PDF-1.4 fake"),
	})
	require.NoError(t, err)
	return res
}

func (f *pipelineFixture) wait(t *testing.T, fileID string) *domain.Document {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	doc, err := f.pipeline.WaitForDocument(ctx, fileID)
	require.NoError(t, err)
	return doc
}

func TestPipeline_IngestAndQuery(t *testing.T) {
	f := newPipelineFixture(t, PipelineConfig{})
	f.extractor.set("alpha.pdf", "alpha alpha alpha is the first letter", "", "beta follows alpha here")
	f.start(t)

	res := f.submit(t, "alpha.pdf")
	assert.Equal(t, domain.StatusQueued, res.Status)
	assert.Equal(t, "alpha.pdf", res.Filename)
	assert.Equal(t, int64(len("%PDF-1.4 fake")), res.Size)
	assert.Equal(t, 1, res.QueuePosition)

	doc := f.wait(t, res.FileID)
	assert.Equal(t, domain.StatusProcessed, doc.Status)
	assert.Equal(t, 3, doc.PageCount)
	assert.Greater(t, doc.ChunkCount, 1)
	assert.Empty(t, doc.Error)

	stats, err := f.pipeline.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.DocumentCount)
	assert.Equal(t, doc.ChunkCount, stats.ChunkCount)
	assert.Equal(t, 0, stats.QueueDepth)

	result, err := f.pipeline.Query(context.Background(), domain.QueryRequest{Text: "alpha"})
	require.NoError(t, err)
	require.NotEmpty(t, result.Sources)
	src := result.Sources[0]
	assert.Equal(t, res.FileID, src.FileID())
	assert.Equal(t, "alpha.pdf", src.Filename())
	assert.Equal(t, "3", src.Metadata[domain.MetaPageCount])
	assert.Equal(t, fmt.Sprint(doc.ChunkCount), src.Metadata[domain.MetaTotalChunks])
	assert.Positive(t, src.Page())
}

func TestPipeline_QueryStream(t *testing.T) {
	f := newPipelineFixture(t, PipelineConfig{StreamDelay: time.Millisecond})
	f.extractor.set("doc.pdf", "alpha beta")
	f.start(t)
	f.wait(t, f.submit(t, "doc.pdf").FileID)

	frames := collect(t, f.pipeline.QueryStream(context.Background(), domain.QueryRequest{Text: "alpha"}))

	require.NotEmpty(t, frames)
	assert.Equal(t, domain.FrameSources, frames[len(frames)-1].Type)
}

func TestPipeline_Submit_Validation(t *testing.T) {
	f := newPipelineFixture(t, PipelineConfig{MaxUploadSize: 16})
	f.start(t)

	tests := []struct {
		name   string
		upload driving.Upload
	}{
		{"wrong extension", driving.Upload{Filename: "notes.txt", Reader: strings.NewReader("x")}},
		{"no filename", driving.Upload{Filename: "", Reader: strings.NewReader("x")}},
		{"no reader", driving.Upload{Filename: "a.pdf"}},
		{"empty payload", driving.Upload{Filename: "a.pdf", Reader: strings.NewReader("")}},
		{"too large", driving.Upload{Filename: "a.pdf", Reader: bytes.NewReader(make([]byte, 17))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.pipeline.Submit(context.Background(), tt.upload)
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}

	docs, err := f.pipeline.Documents(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
	entries, err := os.ReadDir(f.uploadDir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPipeline_Submit_UppercaseExtensionAndPathStripped(t *testing.T) {
	f := newPipelineFixture(t, PipelineConfig{})
	f.extractor.set("REPORT.PDF", "alpha")
	f.start(t)

	res, err := f.pipeline.Submit(context.Background(), driving.Upload{
		FileID:   "fixed-id",
		Filename: `C:\Users\me\REPORT.PDF`,
		Reader:   strings.NewReader("data"),
	})

	require.NoError(t, err)
	assert.Equal(t, "fixed-id", res.FileID)
	assert.Equal(t, "REPORT.PDF", res.Filename)
	assert.FileExists(t, filepath.Join(f.uploadDir, "fixed-id_REPORT.PDF"))
	assert.Equal(t, domain.StatusProcessed, f.wait(t, "fixed-id").Status)
}

func TestPipeline_SubmitFile(t *testing.T) {
	f := newPipelineFixture(t, PipelineConfig{})
	f.extractor.set("local.pdf", "alpha")
	f.start(t)

	path := filepath.Join(t.TempDir(), "local.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF"), 0600))

	res, err := f.pipeline.SubmitFile(context.Background(), "stable-id", path)
	require.NoError(t, err)
	assert.Equal(t, "local.pdf", res.Filename)
	assert.Equal(t, "stable-id", res.FileID)

	generated, err := f.pipeline.SubmitFile(context.Background(), "", path)
	require.NoError(t, err)
	assert.NotEmpty(t, generated.FileID)
	assert.NotEqual(t, "stable-id", generated.FileID)

	_, err = f.pipeline.SubmitFile(context.Background(), "", filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPipeline_ExtractionFailureMarksFailed(t *testing.T) {
	f := newPipelineFixture(t, PipelineConfig{})
	f.start(t)

	res := f.submit(t, "scanned.pdf")
	doc := f.wait(t, res.FileID)

	assert.Equal(t, domain.StatusFailed, doc.Status)
	assert.Contains(t, doc.Error, domain.ErrExtraction.Error())

	stats, err := f.pipeline.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.ChunkCount)
}

func TestPipeline_EmbeddingFailureMarksFailed(t *testing.T) {
	f := newPipelineFixture(t, PipelineConfig{})
	f.extractor.set("doc.pdf", "alpha")
	f.embedder.err = fmt.Errorf("%w: ollama: connection refused", domain.ErrEmbedding)
	f.start(t)

	doc := f.wait(t, f.submit(t, "doc.pdf").FileID)

	assert.Equal(t, domain.StatusFailed, doc.Status)
	assert.Contains(t, doc.Error, "connection refused")
}

func TestPipeline_PanicMarksFailedAndWorkerSurvives(t *testing.T) {
	f := newPipelineFixture(t, PipelineConfig{})
	f.extractor.panic = true
	f.start(t)

	doc := f.wait(t, f.submit(t, "boom.pdf").FileID)
	assert.Equal(t, domain.StatusFailed, doc.Status)
	assert.Contains(t, doc.Error, "extractor exploded")

	f.extractor.mu.Lock()
	f.extractor.panic = false
	f.extractor.mu.Unlock()
	f.extractor.set("ok.pdf", "alpha")

	assert.Equal(t, domain.StatusProcessed, f.wait(t, f.submit(t, "ok.pdf").FileID).Status)
}

func TestPipeline_EmbedsInBatches(t *testing.T) {
	f := newPipelineFixture(t, PipelineConfig{BatchSize: 2})
	pages := make([]string, 5)
	for i := range pages {
		pages[i] = strings.Repeat("alpha ", 8)
	}
	f.extractor.set("big.pdf", pages...)
	f.start(t)

	doc := f.wait(t, f.submit(t, "big.pdf").FileID)
	require.Equal(t, domain.StatusProcessed, doc.Status)

	sizes := f.embedder.batchSizes()
	total := 0
	for _, n := range sizes {
		assert.LessOrEqual(t, n, 2)
		total += n
	}
	assert.Equal(t, doc.ChunkCount, total)
	assert.Len(t, sizes, (doc.ChunkCount+1)/2)
}

func TestPipeline_ReingestLeavesNoStaleTail(t *testing.T) {
	f := newPipelineFixture(t, PipelineConfig{})
	f.extractor.set("doc.pdf", strings.Repeat("alpha beta ", 20))
	f.start(t)

	submit := func() *domain.Document {
		res, err := f.pipeline.Submit(context.Background(), driving.Upload{
			FileID: "same", Filename: "doc.pdf", Reader: strings.NewReader("v"),
		})
		require.NoError(t, err)
		return f.wait(t, res.FileID)
	}

	first := submit()
	require.Greater(t, first.ChunkCount, 1)

	f.extractor.set("doc.pdf", "alpha")
	second := submit()
	require.Equal(t, domain.StatusProcessed, second.Status)
	assert.Equal(t, 1, second.ChunkCount)

	stats, err := f.pipeline.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ChunkCount)
}

func TestPipeline_Delete(t *testing.T) {
	f := newPipelineFixture(t, PipelineConfig{})
	f.extractor.set("doc.pdf", strings.Repeat("alpha ", 30))
	f.start(t)

	doc := f.wait(t, f.submit(t, "doc.pdf").FileID)
	require.Equal(t, domain.StatusProcessed, doc.Status)
	require.FileExists(t, doc.Path)

	removed, err := f.pipeline.Delete(context.Background(), doc.FileID)
	require.NoError(t, err)
	assert.Equal(t, doc.ChunkCount, removed)
	assert.NoFileExists(t, doc.Path)

	_, err = f.pipeline.Document(context.Background(), doc.FileID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	stats, err := f.pipeline.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.DocumentCount)

	again, err := f.pipeline.Delete(context.Background(), doc.FileID)
	require.NoError(t, err)
	assert.Equal(t, 0, again)

	unknown, err := f.pipeline.Delete(context.Background(), "never-existed")
	require.NoError(t, err)
	assert.Equal(t, 0, unknown)

	_, err = f.pipeline.Delete(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestPipeline_StartMarksInterruptedDocuments(t *testing.T) {
	f := newPipelineFixture(t, PipelineConfig{})
	ctx := context.Background()
	now := time.Now()
	for id, status := range map[string]domain.DocumentStatus{
		"queued":     domain.StatusQueued,
		"processing": domain.StatusProcessing,
		"done":       domain.StatusProcessed,
	} {
		require.NoError(t, f.docs.Save(ctx, &domain.Document{
			FileID: id, Filename: id + ".pdf", Status: status, CreatedAt: now, UpdatedAt: now,
		}))
	}

	f.start(t)

	for id, want := range map[string]domain.DocumentStatus{
		"queued":     domain.StatusFailed,
		"processing": domain.StatusFailed,
		"done":       domain.StatusProcessed,
	} {
		doc, err := f.pipeline.Document(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, doc.Status, id)
		if want == domain.StatusFailed {
			assert.Equal(t, InterruptedMessage, doc.Error)
		}
	}
}

func TestPipeline_SubmitAfterClose(t *testing.T) {
	f := newPipelineFixture(t, PipelineConfig{})
	f.start(t)
	require.NoError(t, f.pipeline.Close())
	assert.True(t, f.embedder.closed)

	_, err := f.pipeline.Submit(context.Background(), driving.Upload{
		FileID: "late", Filename: "late.pdf", Reader: strings.NewReader("x"),
	})
	assert.ErrorIs(t, err, domain.ErrQueueStopped)

	doc, err := f.pipeline.Document(context.Background(), "late")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFailed, doc.Status)
}

func TestPipeline_Drain(t *testing.T) {
	f := newPipelineFixture(t, PipelineConfig{})
	for i := 0; i < 3; i++ {
		f.extractor.set(fmt.Sprintf("d%d.pdf", i), "alpha")
	}
	f.start(t)
	for i := 0; i < 3; i++ {
		f.submit(t, fmt.Sprintf("d%d.pdf", i))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.pipeline.Drain(ctx))

	docs, err := f.pipeline.Documents(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 3)
	for _, d := range docs {
		assert.Equal(t, domain.StatusProcessed, d.Status)
	}
}

func TestPipelineConfigFromSettings(t *testing.T) {
	s := domain.DefaultSettings(t.TempDir())

	cfg := PipelineConfigFromSettings(&s)

	assert.Equal(t, int64(domain.DefaultMaxUploadSize), cfg.MaxUploadSize)
	assert.Equal(t, []string{".pdf"}, cfg.AllowedExtensions)
	assert.Equal(t, domain.DefaultEmbeddingBatch, cfg.BatchSize)
	assert.Equal(t, domain.DefaultFragmentSize, cfg.FragmentSize)
	assert.Equal(t, domain.DefaultStreamDelay, cfg.StreamDelay)
}

// Compile-time check that the fixture's stores satisfy the ports.
var (
	_ driven.DocumentStore = (*memory.DocumentStore)(nil)
	_ driven.UploadStore   = (*uploads.Store)(nil)
)
