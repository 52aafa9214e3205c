package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driving"
	"github.com/custodia-labs/neuroquery/internal/logger"
)

// uploadField is the multipart form field carrying the file.
const uploadField = "file"

// Handler serves the HTTP routes on top of a pipeline.
type Handler struct {
	pipeline driving.PipelineService
	cfg      Config
	now      func() time.Time
}

// NewHandler creates a handler for the given pipeline.
func NewHandler(pipeline driving.PipelineService, cfg Config) *Handler {
	return &Handler{pipeline: pipeline, cfg: cfg, now: time.Now}
}

// HealthResponse is the body of GET /api/health.
type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Documents int       `json:"documents"`
	Chunks    int       `json:"chunks"`
	Queue     int       `json:"queue"`
}

// Health reports liveness with the index counters.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", Timestamp: h.now().UTC(), Version: h.cfg.Version}

	stats, err := h.pipeline.Stats(r.Context())
	if err != nil {
		logger.Warn("health: %v", err)
		resp.Status = "degraded"
		writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	resp.Documents = stats.DocumentCount
	resp.Chunks = stats.ChunkCount
	resp.Queue = stats.QueueDepth
	writeJSON(w, http.StatusOK, resp)
}

// Upload accepts a multipart file and queues it for ingestion.
// The file part is streamed to the pipeline without buffering the body.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, fmt.Errorf("%w: expected multipart form data: %w", domain.ErrValidation, err))
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			writeError(w, fmt.Errorf("%w: reading form: %w", domain.ErrValidation, err))
			return
		}
		if part.FormName() != uploadField {
			part.Close()
			continue
		}

		result, err := h.pipeline.Submit(r.Context(), driving.Upload{
			Filename: part.FileName(),
			Reader:   part,
		})
		part.Close()
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, result)
		return
	}

	writeError(w, fmt.Errorf("%w: form field %q is required", domain.ErrValidation, uploadField))
}

// decodeQuery reads a JSON query request body.
func decodeQuery(r *http.Request) (domain.QueryRequest, error) {
	var req domain.QueryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, fmt.Errorf("%w: invalid request body: %w", domain.ErrValidation, err)
	}
	return req, nil
}

// Query streams an answer as server-sent events.
func (h *Handler) Query(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	stream := newSSEWriter(w)
	for frame := range h.pipeline.QueryStream(r.Context(), req) {
		if err := stream.Send(frame); err != nil {
			logger.Debug("query stream: client gone: %v", err)
			return
		}
	}
}

// Search answers a query in a single JSON response.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	req, err := decodeQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	result, err := h.pipeline.Query(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// DocumentsResponse is the body of GET /api/documents.
type DocumentsResponse struct {
	Documents []domain.Document `json:"documents"`
	Total     int               `json:"total"`
}

// ListDocuments returns every registered document, newest first.
func (h *Handler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.pipeline.Documents(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if docs == nil {
		docs = []domain.Document{}
	}
	writeJSON(w, http.StatusOK, DocumentsResponse{Documents: docs, Total: len(docs)})
}

// GetDocument returns one document.
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.pipeline.Document(r.Context(), mux.Vars(r)["file_id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// DeleteResponse is the body of DELETE /api/documents/{file_id}.
type DeleteResponse struct {
	Message       string `json:"message"`
	FileID        string `json:"file_id"`
	DeletedChunks int    `json:"deleted_chunks"`
}

// DeleteDocument removes a document and its chunks. Unknown ids succeed with zero chunks.
func (h *Handler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	fileID := mux.Vars(r)["file_id"]
	deleted, err := h.pipeline.Delete(r.Context(), fileID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{
		Message:       "Document deleted",
		FileID:        fileID,
		DeletedChunks: deleted,
	})
}

// StatsResponse is the body of GET /api/stats.
type StatsResponse struct {
	domain.Stats
	Config ConfigEcho `json:"config"`
}

// Stats returns pipeline counters with the active configuration.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.pipeline.Stats(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, StatsResponse{Stats: *stats, Config: h.cfg.Echo})
}
