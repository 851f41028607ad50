package api

import (
	"context"
	"net/http"
	"time"

	"github.com/framewell/renderfarm/pkg/audit"
	"github.com/framewell/renderfarm/pkg/farm"
	"github.com/framewell/renderfarm/pkg/log"
	"github.com/framewell/renderfarm/pkg/metrics"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
)

// Server exposes the farm over HTTP.
type Server struct {
	manager *farm.Manager
	audit   *audit.Log
	httpSrv *http.Server
	logger  zerolog.Logger
}

// NewServer creates an API server for the given farm. audit may be nil.
func NewServer(manager *farm.Manager, auditLog *audit.Log) *Server {
	s := &Server{
		manager: manager,
		audit:   auditLog,
		logger:  log.WithComponent("api"),
	}

	r := mux.NewRouter()
	s.routes(r)
	s.httpSrv = &http.Server{
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s
}

func (s *Server) routes(r *mux.Router) {
	api := r.PathPrefix("/v1").Subrouter()

	api.HandleFunc("/jobs", s.handleSubmitJob).Methods("POST")
	api.HandleFunc("/jobs", s.handleListJobs).Methods("GET")
	api.HandleFunc("/jobs/{id}", s.handleGetJob).Methods("GET")
	api.HandleFunc("/jobs/{id}/progress", s.handleJobProgress).Methods("PUT")
	api.HandleFunc("/jobs/{id}/complete", s.handleCompleteJob).Methods("POST")
	api.HandleFunc("/jobs/{id}/cancel", s.handleCancelJob).Methods("POST")
	api.HandleFunc("/jobs/{id}/priority", s.handleJobPriority).Methods("PUT")

	api.HandleFunc("/nodes", s.handleListNodes).Methods("GET")
	api.HandleFunc("/nodes/{id}/failure", s.handleNodeFailure).Methods("POST")
	api.HandleFunc("/nodes/{id}/online", s.handleNodeOnline).Methods("POST")
	api.HandleFunc("/nodes/{id}/offline", s.handleNodeOffline).Methods("POST")

	api.HandleFunc("/clients/{id}", s.handleGetClient).Methods("GET")
	api.HandleFunc("/status", s.handleFarmStatus).Methods("GET")
	api.HandleFunc("/audit", s.handleAudit).Methods("GET")

	r.HandleFunc("/healthz", s.handleHealthz).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
}

// Start begins serving on addr. Blocks until the server stops.
func (s *Server) Start(addr string) error {
	s.httpSrv.Addr = addr
	s.logger.Info().Str("addr", addr).Msg("API server listening")
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

// Handler returns the routed handler, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}
