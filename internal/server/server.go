// Package server provides the local capture HTTP API consumed by the
// presentation layer.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/oscarchatwin1/microsearch-driver-capture/internal/config"
	"github.com/oscarchatwin1/microsearch-driver-capture/internal/connectivity"
	"github.com/oscarchatwin1/microsearch-driver-capture/internal/lookup"
	"github.com/oscarchatwin1/microsearch-driver-capture/internal/store"
	syncer "github.com/oscarchatwin1/microsearch-driver-capture/internal/sync"
)

// Server wraps HTTP routes and dependencies.
type Server struct {
	store    store.Store
	syncer   *syncer.Syncer
	gate     *connectivity.Gate
	provider connectivity.Provider
	lookup   *lookup.Provider
	cfg      config.Config
	log      zerolog.Logger
	version  string
	router   chi.Router
}

// New constructs a capture API server.
func New(
	st store.Store,
	sy *syncer.Syncer,
	gate *connectivity.Gate,
	provider connectivity.Provider,
	lk *lookup.Provider,
	cfg config.Config,
	logger zerolog.Logger,
	version string,
) *Server {
	s := &Server{
		store:    st,
		syncer:   sy,
		gate:     gate,
		provider: provider,
		lookup:   lk,
		cfg:      cfg,
		log:      logger,
		version:  version,
	}
	s.router = s.buildRouter()
	return s
}

// Router returns the configured router.
func (s *Server) Router() chi.Router {
	return s.router
}

func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/version", s.handleVersion)

	r.Route("/capture/v1", func(r chi.Router) {
		r.Route("/samples", func(r chi.Router) {
			r.Get("/", s.handleListSamples)
			r.Post("/", s.handleCreateSample)
			r.Get("/counts", s.handleSampleCounts)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetSample)
				r.Put("/", s.handleUpdateSample)
				r.Delete("/", s.handleDeleteSample)
			})
		})

		r.Post("/sync/run", s.handleRunSync)
		r.Get("/sync/status", s.handleSyncStatus)

		r.Get("/lookup/{field}", s.handleLookup)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		respondProblem(w, http.StatusServiceUnavailable, "local storage is not reachable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"service": "driver-capture",
		"version": s.version,
	})
}

func requestLogger(logger zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("request")
		})
	}
}
