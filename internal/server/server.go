// Package server provides the local HTTP JSON API over a recipe store.
package server

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/raphaelgruber/recipebox/internal/metrics"
	"github.com/raphaelgruber/recipebox/internal/service"
)

// maxUploadSize bounds a multipart save request, images included.
const maxUploadSize = 64 << 20

// Server routes HTTP requests to the store and save flow.
type Server struct {
	store   *service.RecipeStore
	saver   *service.Saver
	metrics *metrics.Collector
	logger  *slog.Logger
	router  chi.Router
}

// New creates a server. logger may be nil.
func New(store *service.RecipeStore, saver *service.Saver, m *metrics.Collector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		store:   store,
		saver:   saver,
		metrics: m,
		logger:  logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(LoggingMiddleware(s.logger))

	r.Get("/health", s.handleHealth)
	r.Get("/stats", s.handleStats)

	r.Route("/recipes", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Post("/", s.handleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGet)
			r.Put("/", s.handleUpdate)
			r.Delete("/", s.handleDelete)
			r.Post("/cooked", s.handleCooked)
		})
	})

	s.router = r
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler {
	return s.router
}
