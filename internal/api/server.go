// Package api serves bk's JSON HTTP API.
package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/evcraddock/bukkaku/internal/logging"
	"github.com/evcraddock/bukkaku/internal/property"
	"github.com/evcraddock/bukkaku/internal/verify"
)

// DefaultMaxUploadBytes bounds a multipart flyer upload.
const DefaultMaxUploadBytes = 50 << 20

// Deps are the services the API is built on.
type Deps struct {
	Repo           *property.Repository
	Service        *property.Service
	Orchestrator   *verify.Orchestrator
	MaxUploadBytes int64
	// AllowedOrigins enables CORS for browser clients on these origins.
	AllowedOrigins []string
}

// Server is the HTTP API server.
type Server struct {
	deps       Deps
	router     chi.Router
	httpServer *http.Server
}

// NewServer creates an API server listening on addr.
func NewServer(addr string, deps Deps) *Server {
	if deps.MaxUploadBytes <= 0 {
		deps.MaxUploadBytes = DefaultMaxUploadBytes
	}

	s := &Server{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger)
	r.Use(middleware.Recoverer)
	if len(deps.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: deps.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type"},
			MaxAge:         300,
		}))
	}

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/extract", s.handleExtract)
		r.Post("/verify", s.handleVerify)

		r.Route("/properties", func(r chi.Router) {
			r.Get("/", s.handleListProperties)
			r.Get("/{id}", s.handleGetProperty)
			r.Delete("/{id}", s.handleDeleteProperty)
		})

		r.Route("/followups", func(r chi.Router) {
			r.Get("/", s.handleListFollowUps)
			r.Post("/{id}/called", s.handleMarkCalled)
		})
	})

	s.router = r
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Start listens until Stop is called.
func (s *Server) Start() error {
	slog.Info("starting API server", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

// Stop shuts the server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	slog.Info("stopping API server")
	return s.httpServer.Shutdown(ctx)
}
