// Package server wires handlers, middleware and routes together and runs
// the HTTP server. It is the composition root: every dependency chain is
// assembled in New, and main.go stays minimal.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/chrisBrookes93/events-management/internal/auth"
	"github.com/chrisBrookes93/events-management/internal/config"
	"github.com/chrisBrookes93/events-management/internal/handler"
	"github.com/chrisBrookes93/events-management/internal/middleware"
	sqliteRepo "github.com/chrisBrookes93/events-management/internal/repository/sqlite"
	"github.com/chrisBrookes93/events-management/internal/service"
)

// Server holds the router and the resources it owns. The database
// connection is closed during shutdown, after in-flight requests drain.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New opens the database and assembles the full dependency chain:
// repositories → services → handlers → routes. Each layer receives only
// the interface it needs; handlers never see the database.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}

	if err := s.setupRoutes(); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}

	return s, nil
}

// setupRoutes configures middleware and both surfaces.
//
// Pages:
//
//	GET  /                            → welcome (or redirect to /events/)
//	GET  /static/*                    → static assets
//	GET/POST /users/register          → registration form
//	GET/POST /users/login             → login form (honours ?next=)
//	GET  /users/logout                → clear session, back to /
//	GET  /events/                     → filtered, paginated list   [auth]
//	GET/POST /events/create              → create form                [auth]
//	GET  /events/{id}                 → detail                     [auth]
//	GET/POST /events/{id}/edit        → edit form (organiser only) [auth]
//	POST /events/{id}/attend          → attend, redirect to detail [auth]
//	POST /events/{id}/unattend        → unattend                   [auth]
//
// API (all JSON, all [auth], 401 instead of redirect):
//
//	GET  /api/                        → endpoint index
//	GET  /api/me                      → authenticated account
//	GET  /api/event/                  → paginated envelope, ?filter=&page=
//	POST /api/event/                  → create, 201
//	GET  /api/event/{id}/             → annotated detail
//	PUT/PATCH /api/event/{id}/        → organiser-only update
//	POST /api/event/{id}/attend/      → 202
//	POST /api/event/{id}/unattend/    → 202
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.SessionSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	// StripSlashes lets the trailing-slash URLs the API emits resolve
	// against the slash-less route patterns below.
	s.router.Use(chimiddleware.StripSlashes)
	s.router.Use(middleware.Logger(s.logger))

	fileServer := http.FileServer(http.Dir(s.config.StaticDir))
	s.router.Handle("/static/*", http.StripPrefix("/static/", fileServer))

	eventService := service.NewEventService(s.db, s.logger)
	accountService := service.NewAccountService(s.db, auth.NewPasswordService(), s.logger)

	pageHandler, err := handler.NewPageHandler(s.config.TemplateDir, eventService, s.config.PageSize, s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}
	accountHandler, err := handler.NewAccountHandler(s.config.TemplateDir, accountService, tokens, s.logger)
	if err != nil {
		return fmt.Errorf("creating account handler: %w", err)
	}
	eventHandler := handler.NewEventHandler(eventService, s.config.APIPageSize, s.logger)

	s.router.With(auth.OptionalAuth(tokens)).Get("/", pageHandler.HandleIndex)

	s.router.Route("/users", func(r chi.Router) {
		r.Get("/register", accountHandler.HandleRegisterForm)
		r.Post("/register", accountHandler.HandleRegister)
		r.Get("/login", accountHandler.HandleLoginForm)
		r.Post("/login", accountHandler.HandleLogin)
		r.Get("/logout", accountHandler.HandleLogout)
	})

	s.router.Route("/events", func(r chi.Router) {
		r.Use(auth.RequirePageAuth(tokens, "/users/login"))

		r.Get("/", pageHandler.HandleEventList)
		r.Get("/create", pageHandler.HandleCreateForm)
		r.Post("/create", pageHandler.HandleCreate)
		r.Get("/{id}", pageHandler.HandleEventDetail)
		r.Get("/{id}/edit", pageHandler.HandleEditForm)
		r.Post("/{id}/edit", pageHandler.HandleEdit)
		r.Post("/{id}/attend", pageHandler.HandleAttend)
		r.Post("/{id}/unattend", pageHandler.HandleUnattend)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Get("/", eventHandler.HandleAPIRoot)
		r.Get("/me", accountHandler.HandleMe)

		r.Route("/event", func(r chi.Router) {
			r.Get("/", eventHandler.HandleList)
			r.Post("/", eventHandler.HandleCreate)
			r.Get("/{id}", eventHandler.HandleGet)
			r.Put("/{id}", eventHandler.HandleUpdate)
			r.Patch("/{id}", eventHandler.HandleUpdate)
			r.Post("/{id}/attend", eventHandler.HandleAttend)
			r.Post("/{id}/unattend", eventHandler.HandleUnattend)
		})
	})

	return nil
}

// Start runs the server until SIGINT/SIGTERM, then drains in-flight
// requests and closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:         s.config.Listen,
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
			slog.String("addr", s.config.Listen),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
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
