// Package server exposes the upload, history, and export endpoints over HTTP.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nmurali/billfiler/internal/export"
	"github.com/nmurali/billfiler/internal/extract"
	"github.com/nmurali/billfiler/internal/history"
	"github.com/nmurali/billfiler/internal/pipeline"
)

// Server wires the extraction pipeline to the HTTP surface.
type Server struct {
	logger      *slog.Logger
	extractor   extract.TextExtractor
	orch        *pipeline.Orchestrator
	store       *history.Store
	export      *export.Service
	storageRoot string
	tempDir     string
}

func New(
	logger *slog.Logger,
	extractor extract.TextExtractor,
	orch *pipeline.Orchestrator,
	store *history.Store,
	exportSvc *export.Service,
	storageRoot, tempDir string,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger:      logger,
		extractor:   extractor,
		orch:        orch,
		store:       store,
		export:      exportSvc,
		storageRoot: storageRoot,
		tempDir:     tempDir,
	}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	r.Post("/upload", s.handleUpload)
	r.Get("/history", s.handleHistory)
	r.Get("/history/export", s.handleHistoryExport)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
