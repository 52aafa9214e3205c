package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/neuroquery/internal/connectors/filesystem"
	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driving"
)

// QueryInput is the input schema for the query tool.
type QueryInput struct {
	Query string `json:"query" jsonschema:"the question to answer from the uploaded documents"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve, 1 to 10 (default 3)"`
}

// QueryOutput is the output schema for the query tool.
type QueryOutput struct {
	Answer         string         `json:"answer"`
	Sources        []SourceOutput `json:"sources"`
	ProcessingTime float64        `json:"processing_time"`
}

// SourceOutput is one retrieved chunk.
type SourceOutput struct {
	ID         string  `json:"id"`
	FileID     string  `json:"file_id"`
	Filename   string  `json:"filename"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// StatsInput is the empty input of the stats tool.
type StatsInput struct{}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct {
	Status string `json:"status,omitempty" jsonschema:"only list documents with this status"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []domain.Document `json:"documents"`
	Count     int               `json:"count"`
}

// DeleteDocumentInput is the input schema for the delete_document tool.
type DeleteDocumentInput struct {
	FileID string `json:"file_id" jsonschema:"id of the document to delete"`
}

// DeleteDocumentOutput is the output schema for the delete_document tool.
type DeleteDocumentOutput struct {
	FileID        string `json:"file_id"`
	DeletedChunks int    `json:"deleted_chunks"`
}

// IngestFileInput is the input schema for the ingest_file tool.
type IngestFileInput struct {
	Path string `json:"path" jsonschema:"absolute path or file:// URI of a PDF on the server's filesystem"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.sdk, &mcp.Tool{
		Name:        "query",
		Description: "Answer a question from the uploaded documents, with ranked sources",
	}, s.handleQuery)

	mcp.AddTool(s.sdk, &mcp.Tool{
		Name:        "stats",
		Description: "Document and chunk counts with the ingestion queue state",
	}, s.handleStats)

	mcp.AddTool(s.sdk, &mcp.Tool{
		Name:        "list_documents",
		Description: "List uploaded documents and their ingestion status",
	}, s.handleListDocuments)

	mcp.AddTool(s.sdk, &mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a document and all of its indexed chunks",
	}, s.handleDeleteDocument)

	mcp.AddTool(s.sdk, &mcp.Tool{
		Name:        "ingest_file",
		Description: "Queue a local PDF for ingestion",
	}, s.handleIngestFile)
}

// handleQuery handles the query tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	result, err := s.ports.Pipeline.Query(ctx, domain.QueryRequest{Text: input.Query, TopK: input.TopK})
	if err != nil {
		return nil, QueryOutput{}, err
	}

	output := QueryOutput{
		Answer:         result.Answer,
		Sources:        make([]SourceOutput, len(result.Sources)),
		ProcessingTime: result.ProcessingTime,
	}
	for i, src := range result.Sources {
		output.Sources[i] = SourceOutput{
			ID:         src.ID,
			FileID:     src.FileID(),
			Filename:   src.Filename(),
			ChunkIndex: src.ChunkIndex(),
			Score:      src.Score,
			Content:    src.Content,
		}
	}

	return nil, output, nil
}

// handleStats handles the stats tool invocation.
func (s *Server) handleStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ StatsInput,
) (*mcp.CallToolResult, domain.Stats, error) {
	stats, err := s.ports.Pipeline.Stats(ctx)
	if err != nil {
		return nil, domain.Stats{}, err
	}
	return nil, *stats, nil
}

// handleListDocuments handles the list_documents tool invocation.
func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	docs, err := s.ports.Pipeline.Documents(ctx)
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{Documents: make([]domain.Document, 0, len(docs))}
	for i := range docs {
		if input.Status != "" && docs[i].Status.String() != input.Status {
			continue
		}
		output.Documents = append(output.Documents, docs[i])
	}
	output.Count = len(output.Documents)

	return nil, output, nil
}

// handleDeleteDocument handles the delete_document tool invocation.
func (s *Server) handleDeleteDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DeleteDocumentInput,
) (*mcp.CallToolResult, DeleteDocumentOutput, error) {
	deleted, err := s.ports.Pipeline.Delete(ctx, input.FileID)
	if err != nil {
		return nil, DeleteDocumentOutput{}, err
	}
	return nil, DeleteDocumentOutput{FileID: input.FileID, DeletedChunks: deleted}, nil
}

// handleIngestFile handles the ingest_file tool invocation.
func (s *Server) handleIngestFile(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestFileInput,
) (*mcp.CallToolResult, driving.SubmitResult, error) {
	if input.Path == "" {
		return nil, driving.SubmitResult{}, fmt.Errorf("%w: path is required", domain.ErrValidation)
	}
	path := filesystem.ResolvePath(input.Path)
	result, err := s.ports.Pipeline.SubmitFile(ctx, filesystem.FileID(path), path)
	if err != nil {
		return nil, driving.SubmitResult{}, err
	}
	return nil, *result, nil
}
