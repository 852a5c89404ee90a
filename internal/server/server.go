// Package server is the composition root: it opens the store, builds the
// services and handlers, mounts the routes and runs the HTTP server with
// graceful shutdown.
//
// Keeping this out of main.go lets tests build the whole stack on an
// in-memory database and drive it through Handler().
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sakif/moodmap/internal/auth"
	"github.com/sakif/moodmap/internal/config"
	"github.com/sakif/moodmap/internal/handler"
	"github.com/sakif/moodmap/internal/middleware"
	"github.com/sakif/moodmap/internal/repository"
	"github.com/sakif/moodmap/internal/repository/postgres"
	sqliteRepo "github.com/sakif/moodmap/internal/repository/sqlite"
	"github.com/sakif/moodmap/internal/service"
	"github.com/sakif/moodmap/web"
)

// Server owns the store and the router. The store is closed when Start returns.
type Server struct {
	router *chi.Mux
	config config.Config
	logger *slog.Logger
	store  repository.Store
}

// New opens the store selected by cfg.DBDriver and wires the server on it.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s, err := NewWithStore(cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, err
	}
	return s, nil
}

// NewWithStore wires the server on an already opened store.
func NewWithStore(cfg config.Config, store repository.Store, logger *slog.Logger) (*Server, error) {
	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		store:  store,
	}

	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func openStore(ctx context.Context, cfg config.Config) (repository.Store, error) {
	switch cfg.DBDriver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("opening postgres: %w", err)
		}
		return db, nil

	default:
		if cfg.DBPath != ":memory:" {
			// mkdir -p for the database file's directory.
			if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
				return nil, fmt.Errorf("creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite: %w", err)
		}
		return db, nil
	}
}

// setupRoutes mounts every route.
//
//	GET  /                          map page (HTML)
//	GET  /static/*                  embedded assets
//	GET  /health                    store ping
//	POST /api/auth/register         create account
//	POST /api/auth/login            sign in
//	POST /api/auth/logout           clear cookie
//	GET  /api/auth/me               current user          [auth]
//	GET  /api/auth/google           Google consent        [if configured]
//	GET  /api/auth/google/callback  Google redirect back  [if configured]
//	GET  /api/moods                 district rollup
//	POST /api/moods                 submit mood           [auth]
//
// Middleware order: RequestID → RealIP → Logger → Recoverer → CORS.
// Logger reads the request ID, and Recoverer sits inside it so a panic is
// still logged as a 500.
func (s *Server) setupRoutes() error {
	cfg := s.config

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Origins(),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// === Dependencies ===
	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}
	passwords := auth.NewPasswordServiceWithCost(cfg.BcryptCost)

	// A nil *GoogleProvider stored in an interface would not compare equal to
	// nil, so the interfaces are only assigned when Google is configured.
	var (
		exchanger  service.ProfileExchanger
		redirector handler.GoogleRedirector
	)
	if cfg.GoogleEnabled() {
		google := auth.NewGoogleProvider(auth.GoogleConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			CallbackURL:  cfg.CallbackURL(),
		})
		exchanger, redirector = google, google
	} else {
		s.logger.Info("google sign-in disabled: GOOGLE_CLIENT_ID/GOOGLE_CLIENT_SECRET not set")
	}

	authService := service.NewAuthService(s.store, tokens, passwords, exchanger, s.logger)
	moodService := service.NewMoodService(s.store, s.logger)

	authHandler := handler.NewAuthHandler(authService, redirector, handler.AuthOptions{
		ClientURL:    cfg.ClientURL,
		CookieSecure: cfg.CookieSecure,
	}, s.logger)
	moodHandler := handler.NewMoodHandler(moodService, s.logger)

	pageHandler, err := handler.NewPageHandler(web.Templates(), cfg.GoogleEnabled(), s.logger)
	if err != nil {
		return fmt.Errorf("creating page handler: %w", err)
	}

	requireAuth := auth.RequireAuth(tokens)

	// === Pages & assets ===
	s.router.Get("/", pageHandler.HandleMap)
	s.router.Handle("/static/*", http.StripPrefix("/static/", http.FileServerFS(web.Static())))
	s.router.Get("/health", handler.HandleHealth(s.store, s.logger))

	// === API ===
	s.router.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/logout", authHandler.HandleLogout)
			r.With(requireAuth).Get("/me", authHandler.HandleMe)

			if cfg.GoogleEnabled() {
				r.Get("/google", authHandler.HandleGoogleLogin)
				r.Get("/google/callback", authHandler.HandleGoogleCallback)
			}
		})

		r.Route("/moods", func(r chi.Router) {
			r.Get("/", moodHandler.HandleList)
			r.With(requireAuth).Post("/", moodHandler.HandleSubmit)
		})
	})

	return nil
}

// Handler exposes the router, for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the store.
func (s *Server) Close() error {
	return s.store.Close()
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests for up
// to 30 seconds and closes the store.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d", s.config.Port)),
			slog.String("driver", s.config.DBDriver),
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
