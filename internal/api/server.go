package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wheelops/wheelhouse/internal/contracts"
	"github.com/wheelops/wheelhouse/pkg/logger"
)

// Server exposes the read-only HTTP API over the stored runs, candidates,
// and picks.
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
}

// Deps are the repositories the handlers read from
type Deps struct {
	Runs       contracts.RunRepository
	Candidates contracts.CandidateRepository
	Picks      contracts.PickRepository
}

// NewServer creates the API server on the given port
func NewServer(port string, deps Deps, log *logger.Logger) *Server {
	h := &handlers{deps: deps, logger: log}

	r := mux.NewRouter()
	r.Use(recoveryMiddleware(log))
	r.Use(loggingMiddleware(log))

	r.HandleFunc("/health", h.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/runs", h.listRuns).Methods(http.MethodGet)
	api.HandleFunc("/runs/latest", h.latestRun).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}", h.getRun).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}/candidates", h.listCandidates).Methods(http.MethodGet)
	api.HandleFunc("/runs/{id}/picks", h.listPicks).Methods(http.MethodGet)

	return &Server{
		httpServer: &http.Server{
			Addr:         ":" + port,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: log,
	}
}

// Start begins serving; blocks until the server stops
func (s *Server) Start() error {
	s.logger.Infof("API server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown stops the server gracefully
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler returns the underlying handler, for tests
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}
