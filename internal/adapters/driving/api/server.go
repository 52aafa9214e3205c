// Package api serves the pipeline over HTTP: uploads, streamed and blocking
// queries, document management and stats under the /api prefix.
package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"

	"github.com/custodia-labs/neuroquery/internal/core/domain"
	"github.com/custodia-labs/neuroquery/internal/core/ports/driving"
	"github.com/custodia-labs/neuroquery/internal/logger"
)

// Prefix is the path prefix of every route.
const Prefix = "/api"

// Config configures the HTTP surface.
type Config struct {
	// Version is reported by the health endpoint.
	Version string

	// CORSOrigins lists origins allowed to call the API. "*" allows any.
	CORSOrigins []string

	// Echo is returned under "config" by the stats endpoint.
	Echo ConfigEcho

	// RequestLog enables negroni's per-request access log.
	RequestLog bool
}

// ConfigEcho is the subset of settings exposed by the stats endpoint.
type ConfigEcho struct {
	VectorStorePath string `json:"vector_store_path"`
	Collection      string `json:"collection"`
	EmbeddingModel  string `json:"embedding_model"`
	ChunkSize       int    `json:"chunk_size"`
	ChunkOverlap    int    `json:"chunk_overlap"`
}

// ConfigFromSettings builds the HTTP configuration from application settings.
func ConfigFromSettings(s *domain.Settings, version string) Config {
	return Config{
		Version:     version,
		CORSOrigins: s.Server.CORSOrigins,
		Echo: ConfigEcho{
			VectorStorePath: s.VectorStore.Path,
			Collection:      s.VectorStore.Collection,
			EmbeddingModel:  s.Embedding.Model,
			ChunkSize:       s.Chunking.Size,
			ChunkOverlap:    s.Chunking.Overlap,
		},
		RequestLog: true,
	}
}

// NewRouter registers every route on a new mux router.
func NewRouter(pipeline driving.PipelineService, cfg Config) *mux.Router {
	h := NewHandler(pipeline, cfg)

	r := mux.NewRouter()
	api := r.PathPrefix(Prefix).Subrouter()
	api.HandleFunc("/health", h.Health).Methods(http.MethodGet)
	api.HandleFunc("/upload", h.Upload).Methods(http.MethodPost)
	api.HandleFunc("/query", h.Query).Methods(http.MethodPost)
	api.HandleFunc("/search", h.Search).Methods(http.MethodPost)
	api.HandleFunc("/documents", h.ListDocuments).Methods(http.MethodGet)
	api.HandleFunc("/documents/{file_id}", h.GetDocument).Methods(http.MethodGet)
	api.HandleFunc("/documents/{file_id}", h.DeleteDocument).Methods(http.MethodDelete)
	api.HandleFunc("/stats", h.Stats).Methods(http.MethodGet)

	return r
}

// NewServer wraps the router in the middleware stack.
func NewServer(pipeline driving.PipelineService, cfg Config) *negroni.Negroni {
	n := negroni.New()
	n.Use(negroni.NewRecovery())
	if cfg.RequestLog {
		l := negroni.NewLogger()
		l.ALogger = log.New(logger.Output(), "[http] ", 0)
		n.Use(l)
	}
	n.Use(NewCORS(cfg.CORSOrigins))
	n.UseHandler(NewRouter(pipeline, cfg))
	return n
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts down gracefully.
func ListenAndServe(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown: %v", err)
		}
	}()

	logger.Info("listening on %s", addr)
	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
