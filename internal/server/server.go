// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer — it connects handlers, middleware, and routes.
// Think of it as the control centre that decides:
// - Which URL patterns map to which handler functions
// - What middleware runs on which routes
// - How the server starts and stops gracefully
//
// DEPENDENCY INJECTION FLOW:
// main.go opens the database, connects the cache and builds the auth pieces,
// then hands them to New, which creates:
//
//	sqlite.DB → LinkService / CategoryService → LinkHandler / CategoryHandler / PageHandler
//	TokenService + Gate → AuthService → AuthHandler, auth middleware
//
// This is the "composition root" pattern — all dependencies are wired
// in one place (New/setupRoutes), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/linkshelf/internal/access"
	"github.com/sakif/linkshelf/internal/auth"
	"github.com/sakif/linkshelf/internal/cache"
	"github.com/sakif/linkshelf/internal/handler"
	"github.com/sakif/linkshelf/internal/middleware"
	sqliteRepo "github.com/sakif/linkshelf/internal/repository/sqlite"
	"github.com/sakif/linkshelf/internal/service"
)

// Config holds server configuration.
type Config struct {
	Port          int
	SecureCookies bool
}

// Deps are the long-lived resources the server is built from. The server
// takes ownership: DB and Cache are closed on shutdown.
type Deps struct {
	DB     *sqliteRepo.DB
	Cache  cache.ListCache // nil disables caching
	Tokens *auth.TokenService
	Gate   *access.Gate
	GitHub handler.GitHubAuthenticator
}

// Server represents the HTTP server and all its dependencies.
type Server struct {
	router *chi.Mux
	config Config
	deps   Deps
	logger *slog.Logger
}

// New wires services, handlers and routes.
//
// Each layer only receives what it needs:
// - Services get repository interfaces (not the concrete sqlite.DB)
// - Handlers get services (not the repository or DB)
func New(cfg Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if deps.DB == nil || deps.Tokens == nil || deps.Gate == nil || deps.GitHub == nil {
		return nil, errors.New("server: DB, Tokens, Gate and GitHub are required")
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		deps:   deps,
		logger: logger,
	}
	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
// GET    /healthz                   → DB (and cache) ping
// GET    /                          → Gallery page (HTML, anyone)
// GET    /sign-in                   → Sign-in page
// GET    /auth/github/login         → Redirect to GitHub
// GET    /auth/github/callback      → OAuth callback, sets session cookie
// POST   /auth/logout               → Clear session cookie
// GET    /admin                     → Admin page            [signed in + allow-listed]
// POST   /admin/links               → Create (form)         [signed in + allow-listed]
// POST   /admin/links/{id}          → Update (form)         [signed in + allow-listed]
// POST   /admin/links/{id}/delete   → Delete (form)         [signed in + allow-listed]
// GET    /api/links                 → Paged listing (JSON)
// GET    /api/links/{id}            → Single link (JSON)
// GET    /api/categories            → Categories (JSON)
// GET    /api/me                    → Current identity      [signed in]
// POST   /api/links                 → Create (JSON)         [signed in + allow-listed]
// PATCH  /api/links/{id}            → Update (JSON)         [signed in + allow-listed]
// PUT    /api/links/{id}            → Update (JSON)         [signed in + allow-listed]
// DELETE /api/links/{id}            → Delete (JSON)         [signed in + allow-listed]
// POST   /api/categories            → Create category       [signed in + allow-listed]
//
// MIDDLEWARE ORDER MATTERS:
// 1. RequestID — assigns unique ID to each request (for tracing)
// 2. RealIP — extracts real client IP from proxy headers
// 3. Logger — logs each request with its request ID
// 4. Recoverer — catches panics and returns 500 instead of crashing
func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	// === Services ===
	linkService := service.NewLinkService(s.deps.DB, s.deps.Cache, s.logger)
	categoryService := service.NewCategoryService(s.deps.DB, s.deps.Cache, s.logger)
	authService := service.NewAuthService(s.deps.Tokens, s.deps.Gate, s.logger)

	// === Handlers ===
	linkHandler := handler.NewLinkHandler(linkService, s.logger)
	categoryHandler := handler.NewCategoryHandler(categoryService, s.logger)
	authHandler := handler.NewAuthHandler(s.deps.GitHub, authService, s.config.SecureCookies, s.logger)
	pageHandler, err := handler.NewPageHandler(linkService, categoryService, authService, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}

	checks := map[string]handler.Pinger{"database": s.deps.DB}
	if p, ok := s.deps.Cache.(handler.Pinger); ok {
		checks["cache"] = p
	}
	healthHandler := handler.NewHealthHandler(checks, s.logger)

	tokens := s.deps.Tokens
	gate := s.deps.Gate

	s.router.Get("/healthz", healthHandler.HandleHealth)

	// === Auth Routes ===
	s.router.Get("/auth/github/login", authHandler.HandleGitHubLogin)
	s.router.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
	s.router.Post("/auth/logout", authHandler.HandleLogout)

	// === Page Routes ===
	s.router.Group(func(r chi.Router) {
		r.Use(auth.OptionalAuth(tokens))
		r.Get("/", pageHandler.HandleGallery)
		r.Get("/sign-in", pageHandler.HandleSignIn)
	})

	s.router.Route("/admin", func(r chi.Router) {
		r.Use(auth.RequireSignIn(tokens))
		r.Use(auth.RequireAllowed(gate, http.HandlerFunc(pageHandler.HandleForbidden)))
		r.Get("/", pageHandler.HandleAdmin)
		r.Post("/links", pageHandler.HandleAdminCreate)
		r.Post("/links/{id}", pageHandler.HandleAdminUpdate)
		r.Post("/links/{id}/delete", pageHandler.HandleAdminDelete)
	})

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		// Public reads
		r.Get("/links", linkHandler.HandleList)
		r.Get("/links/{id}", linkHandler.HandleGet)
		r.Get("/categories", categoryHandler.HandleList)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))
			r.Get("/me", authHandler.HandleMe)

			// Writes need the allow-list as well
			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAllowed(gate, http.HandlerFunc(handler.HandleAPIForbidden)))
				r.Post("/links", linkHandler.HandleCreate)
				r.Patch("/links/{id}", linkHandler.HandleUpdate)
				r.Put("/links/{id}", linkHandler.HandleUpdate)
				r.Delete("/links/{id}", linkHandler.HandleDelete)
				r.Post("/categories", categoryHandler.HandleCreate)
			})
		})
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
// 1. Stop accepting new HTTP connections
// 2. Wait for in-flight requests to finish (30s timeout)
// 3. Close the database connection and the cache client
func (s *Server) Start() error {
	defer s.closeResources()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.Bool("remoteDatabase", s.deps.DB.Remote()),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}

func (s *Server) closeResources() {
	if err := s.deps.DB.Close(); err != nil {
		s.logger.Warn("closing database", slog.String("error", err.Error()))
	}
	if c, ok := s.deps.Cache.(io.Closer); ok {
		if err := c.Close(); err != nil {
			s.logger.Warn("closing cache", slog.String("error", err.Error()))
		}
	}
}
