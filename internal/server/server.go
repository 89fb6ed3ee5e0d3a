// Package server provides the HTTP API for CDE search.
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"cdesearch/config"
	"cdesearch/internal/port"
	"cdesearch/internal/usecase"
)

// Server is the HTTP server for the search API.
type Server struct {
	searcher   *usecase.Searcher
	queryEmbed *usecase.QueryEmbedUseCase
	records    port.RecordStore
	cfg        *config.Config
	authToken  string
	logger     *zap.Logger
	server     *http.Server
}

// NewServer creates a server with the given dependencies. authToken
// enables bearer authentication when non-empty.
func NewServer(
	searcher *usecase.Searcher,
	queryEmbed *usecase.QueryEmbedUseCase,
	records port.RecordStore,
	cfg *config.Config,
	authToken string,
	logger *zap.Logger,
) *Server {
	return &Server{
		searcher:   searcher,
		queryEmbed: queryEmbed,
		records:    records,
		cfg:        cfg,
		authToken:  authToken,
		logger:     logger,
	}
}

// Router builds the HTTP routes. Split out of Start for tests.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Group(func(r chi.Router) {
		if s.authToken != "" {
			r.Use(s.requireAuth)
		}
		r.Post("/api/v1/search", s.handleSearch)
		r.Get("/api/v1/records/{id}", s.handleGetRecord)
		r.Get("/api/v1/status", s.handleStatus)
	})

	return r
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)
	s.server = &http.Server{
		Addr:    addr,
		Handler: s.Router(),
	}
	s.logger.Info("starting server", zap.String("addr", addr))
	return s.server.ListenAndServe()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+s.authToken {
			s.respondError(w, http.StatusUnauthorized, "invalid or missing bearer token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
