package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DocumentStatus is the ingestion state of an uploaded document.
type DocumentStatus string

// Document lifecycle: queued -> processing -> processed | failed.
const (
	StatusQueued     DocumentStatus = "queued"
	StatusProcessing DocumentStatus = "processing"
	StatusProcessed  DocumentStatus = "processed"
	StatusFailed     DocumentStatus = "failed"
)

// IsValid returns true if the status is recognised.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusProcessed, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true once a document will not change state again.
func (s DocumentStatus) IsTerminal() bool {
	return s == StatusProcessed || s == StatusFailed
}

// String returns the string representation.
func (s DocumentStatus) String() string {
	return string(s)
}

// Document is an uploaded file tracked through ingestion.
type Document struct {
	// FileID is the opaque unique identifier assigned at submission.
	FileID string `json:"file_id"`

	// Filename is the original upload filename.
	Filename string `json:"filename"`

	// ByteSize is the size of the raw upload.
	ByteSize int64 `json:"byte_size"`

	// PageCount is populated after extraction.
	PageCount int `json:"page_count"`

	// ChunkCount is the number of chunks indexed for this document.
	ChunkCount int `json:"chunk_count"`

	// Status is the ingestion state.
	Status DocumentStatus `json:"status"`

	// Error holds the failure message when Status is failed.
	Error string `json:"error,omitempty"`

	// Path is where the raw upload is retained.
	Path string `json:"-"`

	// CreatedAt is the submission time.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is the time of the last status change.
	UpdatedAt time.Time `json:"updated_at"`
}

// Metadata keys attached to every chunk.
const (
	MetaSource      = "source"
	MetaFileID      = "file_id"
	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"
	MetaPageCount   = "page_count"
	MetaPage        = "page"
)

// Chunk is a bounded slice of a document's text, the unit of embedding and retrieval.
type Chunk struct {
	// ID is derived from (SourceFileID, ChunkIndex), see ChunkID.
	ID string

	// Text is the chunk content. Never empty.
	Text string

	// SourceFileID links to the owning Document.
	SourceFileID string

	// SourceFilename is the original filename of the owning Document.
	SourceFilename string

	// ChunkIndex is the 0-based position within the document.
	ChunkIndex int

	// TotalChunks is the final chunk count of the document.
	TotalChunks int

	// PageCount is the page count of the source document.
	PageCount int

	// Embedding is set once the embedder has run.
	Embedding []float32

	// Metadata holds provenance key-value pairs. See the Meta* keys.
	Metadata map[string]string
}

// ChunkID returns the stable id of a document's chunk.
// Re-ingesting a document produces the same ids, so index writes overwrite
// instead of duplicating.
func ChunkID(fileID string, index int) string {
	return fileID + ":" + strconv.Itoa(index)
}

// BuildMetadata returns the chunk's metadata with the provenance keys filled in.
func (c *Chunk) BuildMetadata() map[string]string {
	meta := make(map[string]string, len(c.Metadata)+5)
	for k, v := range c.Metadata {
		meta[k] = v
	}
	meta[MetaSource] = c.SourceFilename
	meta[MetaFileID] = c.SourceFileID
	meta[MetaChunkIndex] = strconv.Itoa(c.ChunkIndex)
	meta[MetaTotalChunks] = strconv.Itoa(c.TotalChunks)
	meta[MetaPageCount] = strconv.Itoa(c.PageCount)
	return meta
}

// Job is a request to ingest one uploaded file.
type Job struct {
	// FileID identifies the Document being ingested.
	FileID string

	// Filename is the original upload filename.
	Filename string

	// Path is the location of the retained raw bytes.
	Path string

	// ByteSize is the size of the raw upload.
	ByteSize int64

	// SubmittedAt is when the job entered the queue.
	SubmittedAt time.Time
}

// ExtractedText is the page-segmented text of a document.
type ExtractedText struct {
	// Pages holds the text of each page. Pages without text are empty strings.
	Pages []string

	// PageCount is the number of pages in the document, including empty ones.
	PageCount int
}

// Text joins the non-empty pages, each prefixed with a page marker.
func (e *ExtractedText) Text() string {
	var b strings.Builder
	for i, page := range e.Pages {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "%s\n%s", PageMarker(i+1), page)
	}
	return b.String()
}

// IsEmpty returns true if no page produced any text.
func (e *ExtractedText) IsEmpty() bool {
	for _, page := range e.Pages {
		if strings.TrimSpace(page) != "" {
			return false
		}
	}
	return true
}

// PageMarker returns the marker line that precedes page n (1-based) in extracted text.
func PageMarker(n int) string {
	return fmt.Sprintf("--- Page %d ---", n)
}
