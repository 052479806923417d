// Package server wires the store, the auth components, the services and
// the handlers into one HTTP server.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config → New() opens:  sqlite.DB, auth.TokenService, auth.FacebookProvider
//	NewWithDependencies() builds: services → handlers → chi router
//
// This is the composition root; no other package constructs its own
// dependencies.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rodionaltshuler/smart-reminder-server/internal/auth"
	"github.com/rodionaltshuler/smart-reminder-server/internal/config"
	"github.com/rodionaltshuler/smart-reminder-server/internal/handler"
	"github.com/rodionaltshuler/smart-reminder-server/internal/metrics"
	"github.com/rodionaltshuler/smart-reminder-server/internal/middleware"
	sqliteRepo "github.com/rodionaltshuler/smart-reminder-server/internal/repository/sqlite"
	"github.com/rodionaltshuler/smart-reminder-server/internal/service"
)

// Dependencies are the external resources the server is built on. Tests
// pass an in-memory database and a provider pointed at a fake Graph API.
type Dependencies struct {
	DB       *sqliteRepo.DB
	Tokens   *auth.TokenService
	Provider *auth.FacebookProvider
}

// Server represents the HTTP server and all its dependencies. It owns the
// database connection and closes it on shutdown.
type Server struct {
	router   *chi.Mux
	config   config.Config
	logger   *slog.Logger
	db       *sqliteRepo.DB
	registry *prometheus.Registry
}

// New opens the database, loads the signing keys and builds the server.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	tokens, err := auth.LoadTokenService(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("loading signing keys: %w", err)
	}
	if !tokens.CanIssue() {
		logger.Warn("no private key configured; logins will fail until JWT_PRIVATE_KEY_PATH is set")
	}

	provider := auth.NewFacebookProvider(auth.FacebookConfig{
		ClientID:     cfg.FacebookClientID,
		ClientSecret: cfg.FacebookClientSecret,
		CallbackURL:  cfg.FacebookCallbackURL,
		GraphURL:     cfg.FacebookGraphURL,
		Timeout:      cfg.ProviderTimeout,
	})

	s, err := NewWithDependencies(cfg, logger, Dependencies{DB: db, Tokens: tokens, Provider: provider})
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewWithDependencies builds the server on already opened resources.
func NewWithDependencies(cfg config.Config, logger *slog.Logger, deps Dependencies) (*Server, error) {
	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		db:       deps.DB,
		registry: prometheus.NewRegistry(),
	}

	if err := s.setupRoutes(deps); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// setupRoutes configures all middleware and route handlers.
//
// ROUTE STRUCTURE:
//
//	POST   /login                    → sign in with a Facebook access token
//	GET    /auth/facebook            → web login redirect (when configured)
//	GET    /auth/facebook/callback   → web login completion (when configured)
//	GET    /me                       → current user
//	GET    /users?name=              → user search
//	GET    /users/{userId}           → one user
//	POST   /subscribe                → store push device id
//	POST   /invite/{listId}/{userId} → add a collaborator
//	POST   /itemLists                → create list
//	GET    /itemLists                → lists of the caller
//	DELETE /itemLists/{listId}       → soft-delete list
//	GET    /item?listId=             → active items of a list
//	GET    /item/{itemId}            → one item
//	POST   /item                     → create item
//	DELETE /item/{itemId}            → soft-delete item
//	GET    /healthz                  → liveness
//	GET    /metrics                  → Prometheus scrape
//
// The auth gate runs on every route and lets the exempt paths through, so
// a new route is protected unless it is added to AUTH_EXEMPT_PATHS.
func (s *Server) setupRoutes(deps Dependencies) error {
	collector := metrics.NewCollector(s.registry)

	// DEPENDENCY CHAIN:
	//   s.db implements every repository interface
	//   services receive the interfaces, handlers receive the services
	//   the gate resolves principals through the auth service
	notifier := service.NewLogNotifier(s.logger, collector)
	authService := service.NewAuthService(deps.DB, deps.Provider, deps.Tokens, s.logger, collector)
	userService := service.NewUserService(deps.DB, s.logger)
	collabService := service.NewCollaborationService(deps.DB, deps.DB, deps.DB, notifier, s.logger, collector)

	gate, err := auth.NewGate(deps.Tokens, authService, s.config.AuthExemptPaths, s.logger, collector)
	if err != nil {
		return err
	}

	// === Global Middleware ===
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger, collector))
	s.router.Use(gate.Middleware())

	var consent handler.ConsentURLer
	if s.config.WebLoginEnabled() {
		consent = deps.Provider
	}
	authHandler := handler.NewAuthHandler(authService, consent, s.logger)
	userHandler := handler.NewUserHandler(userService, s.logger)
	listHandler := handler.NewListHandler(collabService, s.logger)
	itemHandler := handler.NewItemHandler(collabService, s.logger)
	healthHandler := handler.NewHealthHandler(deps.DB, s.logger)

	s.router.Post("/login", authHandler.HandleLogin)
	if consent != nil {
		s.router.Get("/auth/facebook", authHandler.HandleFacebookLogin)
		s.router.Get("/auth/facebook/callback", authHandler.HandleFacebookCallback)
	} else {
		s.logger.Info("Facebook web login disabled; set FACEBOOK_CLIENT_ID and FACEBOOK_CLIENT_SECRET to enable it")
	}
	s.router.Get("/me", authHandler.HandleMe)

	s.router.Get("/users", userHandler.HandleSearch)
	s.router.Get("/users/{userId}", userHandler.HandleGet)
	s.router.Post("/subscribe", userHandler.HandleSubscribe)

	s.router.Post("/invite/{listId}/{userId}", listHandler.HandleInvite)
	s.router.Route("/itemLists", func(r chi.Router) {
		r.Get("/", listHandler.HandleList)
		r.Post("/", listHandler.HandleCreate)
		r.Delete("/{listId}", listHandler.HandleDelete)
	})
	s.router.Route("/item", func(r chi.Router) {
		r.Get("/", itemHandler.HandleList)
		r.Post("/", itemHandler.HandleCreate)
		r.Get("/{itemId}", itemHandler.HandleGet)
		r.Delete("/{itemId}", itemHandler.HandleDelete)
	})

	s.router.Get("/healthz", healthHandler.HandleHealth)
	s.router.Handle("/metrics", metrics.Handler(s.registry))

	return nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database connection.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and releases its resources.
func (s *Server) Start() error {
	defer s.Close()

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
			slog.String("database", s.config.DBPath),
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
