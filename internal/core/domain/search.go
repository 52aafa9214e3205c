package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Query bounds.
const (
	MinQueryLength = 1
	MaxQueryLength = 1000
	DefaultTopK    = 3
	MinTopK        = 1
	MaxTopK        = 10
)

// Fixed answers for a query that retrieved nothing.
const (
	NoResultsAnswer  = "No relevant documents found in the database."
	NoResultsMessage = "No relevant documents found"
)

// QueryRequest is a free-text query against the index.
type QueryRequest struct {
	// Text is the natural-language query, 1..1000 characters.
	Text string `json:"query"`

	// TopK is the number of chunks to retrieve, 1..10. Zero means DefaultTopK.
	TopK int `json:"top_k"`
}

// Normalise applies defaults and validates bounds.
// Errors wrap ErrValidation.
func (r QueryRequest) Normalise() (QueryRequest, error) {
	r.Text = strings.TrimSpace(r.Text)
	if r.TopK == 0 {
		r.TopK = DefaultTopK
	}

	n := utf8.RuneCountInString(r.Text)
	if n < MinQueryLength || n > MaxQueryLength {
		return r, fmt.Errorf("%w: query must be %d to %d characters, got %d",
			ErrValidation, MinQueryLength, MaxQueryLength, n)
	}
	if r.TopK < MinTopK || r.TopK > MaxTopK {
		return r, fmt.Errorf("%w: top_k must be between %d and %d, got %d",
			ErrValidation, MinTopK, MaxTopK, r.TopK)
	}
	return r, nil
}

// SearchFilter restricts a vector search by metadata equality.
type SearchFilter map[string]string

// RetrievedChunk is one result of a vector search.
type RetrievedChunk struct {
	// ID is the chunk id.
	ID string

	// Content is the chunk text.
	Content string

	// Metadata is the chunk's provenance metadata.
	Metadata map[string]string

	// Score is the cosine similarity, 1 - cosine distance.
	Score float64
}

// FileID returns the source document id from metadata.
func (c RetrievedChunk) FileID() string {
	return c.Metadata[MetaFileID]
}

// Filename returns the source filename from metadata.
func (c RetrievedChunk) Filename() string {
	return c.Metadata[MetaSource]
}

// ChunkIndex returns the chunk position from metadata, or -1 if absent.
func (c RetrievedChunk) ChunkIndex() int {
	return metaInt(c.Metadata, MetaChunkIndex, -1)
}

// Page returns the page the chunk starts on, or 0 if unknown.
func (c RetrievedChunk) Page() int {
	return metaInt(c.Metadata, MetaPage, 0)
}

// sourceJSON is the wire form of a retrieved chunk.
type sourceJSON struct {
	ID         string            `json:"id"`
	FileID     string            `json:"file_id"`
	Filename   string            `json:"filename"`
	Content    string            `json:"content"`
	Page       *int              `json:"page"`
	ChunkIndex int               `json:"chunk_index"`
	Score      float64           `json:"score"`
	Metadata   map[string]string `json:"metadata"`
}

// MarshalJSON renders the chunk as a source document with provenance lifted out of metadata.
func (c RetrievedChunk) MarshalJSON() ([]byte, error) {
	out := sourceJSON{
		ID:         c.ID,
		FileID:     c.FileID(),
		Filename:   c.Filename(),
		Content:    c.Content,
		ChunkIndex: c.ChunkIndex(),
		Score:      c.Score,
		Metadata:   c.Metadata,
	}
	if p := c.Page(); p > 0 {
		out.Page = &p
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the wire form written by MarshalJSON.
func (c *RetrievedChunk) UnmarshalJSON(data []byte) error {
	var in sourceJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	c.ID = in.ID
	c.Content = in.Content
	c.Score = in.Score
	c.Metadata = in.Metadata
	if c.Metadata == nil {
		c.Metadata = map[string]string{}
	}
	if _, ok := c.Metadata[MetaFileID]; !ok && in.FileID != "" {
		c.Metadata[MetaFileID] = in.FileID
	}
	if _, ok := c.Metadata[MetaSource]; !ok && in.Filename != "" {
		c.Metadata[MetaSource] = in.Filename
	}
	return nil
}

func metaInt(meta map[string]string, key string, fallback int) int {
	v, ok := meta[key]
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// QueryResult is the non-streaming answer to a query.
type QueryResult struct {
	// Answer is the synthesised text.
	Answer string `json:"answer"`

	// Sources are the retrieved chunks in index order.
	Sources []RetrievedChunk `json:"sources"`

	// Query echoes the query text.
	Query string `json:"query"`

	// ProcessingTime is the wall time in seconds.
	ProcessingTime float64 `json:"processing_time"`
}

// IndexStats are the counters exposed by a vector index.
type IndexStats struct {
	DocumentCount int `json:"document_count"`
	ChunkCount    int `json:"chunk_count"`
}

// Stats is the read-only pipeline summary.
type Stats struct {
	DocumentCount int  `json:"document_count"`
	ChunkCount    int  `json:"chunk_count"`
	QueueDepth    int  `json:"queue_depth"`
	IsProcessing  bool `json:"is_processing"`
}
