package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"blogsmith/internal/config"
	"blogsmith/internal/core"
	"blogsmith/internal/enrich"
	"blogsmith/internal/llm"
	"blogsmith/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Service is the article workflow exposed over HTTP.
type Service interface {
	Scrape(ctx context.Context) (*core.Article, error)
	Search(ctx context.Context, articleID string) ([]core.Candidate, error)
	Approve(ctx context.Context, articleID, url string) error
	Reject(ctx context.Context, articleID, url string) error
	Configure(ctx context.Context, articleID string, cfg core.GenerationConfig) error
	Enrich(ctx context.Context, articleID string, opts enrich.Options) (*core.Article, error)
	Restore(ctx context.Context, articleID string, timestamp int64) (*core.Article, error)
	Reset(ctx context.Context, articleID string) (*core.Article, error)
	Chat(ctx context.Context, articleID string, history []llm.ChatMessage, message string) (string, error)
	ListModels(ctx context.Context) ([]llm.ModelInfo, error)
}

// ArticleStore is the read and delete access the API needs.
type ArticleStore interface {
	Get(ctx context.Context, id string) (*core.Article, error)
	List(ctx context.Context) ([]*core.Article, error)
	ListByStatus(ctx context.Context, status core.Status) ([]*core.Article, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	service    Service
	store      ArticleStore
	auth       *Auth
	config     config.Server
	started    time.Time
}

// New creates a new HTTP server instance
func New(service Service, store ArticleStore, cfg config.Server) *Server {
	s := &Server{
		router:  chi.NewRouter(),
		service: service,
		store:   store,
		config:  cfg,
		started: time.Now(),
	}
	if cfg.JWTSecret != "" {
		s.auth = NewAuth(cfg.JWTSecret)
	}

	s.setupMiddleware()
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  config.Duration(cfg.ReadTimeout, 15*time.Second),
		WriteTimeout: config.Duration(cfg.WriteTimeout, 180*time.Second),
	}

	return s
}

// setupMiddleware configures middleware for the server
func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(securityHeaders)

	// enrichment waits on the model, so the request budget follows the write timeout
	s.router.Use(middleware.Timeout(config.Duration(s.config.WriteTimeout, 180*time.Second)))

	if s.config.CORS.Enabled {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.config.CORS.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"Link"},
			AllowCredentials: false,
			MaxAge:           300, // Maximum value not ignored by any major browsers
		}))
	}
}

// setupRoutes configures routes for the server
func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/status", s.handleStatus)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/models", s.handleListModels)
		r.Post("/chat", s.handleChat)

		r.Route("/articles", func(r chi.Router) {
			r.Get("/", s.handleListArticles)
			r.Get("/public", s.handlePublicArticles)
			r.Get("/{id}", s.handleGetArticle)

			r.Group(func(r chi.Router) {
				r.Use(s.requireAuth)
				r.Post("/scrape", s.handleScrape)
				r.Delete("/{id}", s.handleDeleteArticle)
				r.Post("/{id}/research", s.handleResearch)
				r.Post("/{id}/candidates/approve", s.handleCandidate(true))
				r.Post("/{id}/candidates/reject", s.handleCandidate(false))
				r.Put("/{id}/config", s.handleConfigure)
				r.Post("/{id}/enrich", s.handleEnrich)
				r.Post("/{id}/restore", s.handleRestore)
				r.Post("/{id}/reset", s.handleReset)
			})
		})
	})
}

// Start starts the HTTP server
func (s *Server) Start() error {
	logger.Info("Starting HTTP server",
		"addr", s.httpServer.Addr,
		"read_timeout", s.httpServer.ReadTimeout.String(),
		"write_timeout", s.httpServer.WriteTimeout.String(),
		"auth", s.auth != nil,
	)

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server failed to start: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down HTTP server gracefully...")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	logger.Info("HTTP server stopped")
	return nil
}

// Router returns the chi router instance (useful for testing)
func (s *Server) Router() *chi.Mux {
	return s.router
}
