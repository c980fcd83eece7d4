package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unbrain/admin-apiserver/config"
	"github.com/unbrain/admin-apiserver/internal/auth"
	"github.com/unbrain/admin-apiserver/internal/db"
	"github.com/unbrain/admin-apiserver/internal/handlers"
	"github.com/unbrain/admin-apiserver/internal/services"
	"github.com/unbrain/admin-apiserver/internal/store"
)

const rateLimitWindow = 15 * time.Minute

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	database   *db.Database
	logger     *slog.Logger
}

// New constructs a Server: opens the persistence backend (with fallback),
// runs bootstrap, and wires routes and middleware.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	database, err := db.Open(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := db.Bootstrap(ctx, database, cfg, logger); err != nil {
		_ = database.Close()
		return nil, fmt.Errorf("bootstrap database: %w", err)
	}

	userRepo := store.NewUserRepository(database)
	tokenService := auth.NewTokenService(cfg.JWTSecret, cfg.JWTExpires)
	authService := services.NewAuthService(userRepo, tokenService)
	accountService := services.NewAccountService(userRepo)

	authenticate := handlers.Authenticate(tokenService, userRepo)

	port := cfg.ServerPort
	if port == 0 {
		port = 3001
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Use(cors.Handler(corsOptions(cfg)))
	if cfg.GlobalRateLimit > 0 {
		router.Use(httprate.LimitByIP(cfg.GlobalRateLimit, rateLimitWindow))
	}

	router.Get("/health", handlers.Health(port))
	router.Route("/api/auth", func(r chi.Router) {
		if cfg.AuthRateLimit > 0 {
			r.Use(httprate.LimitByIP(cfg.AuthRateLimit, rateLimitWindow))
		}
		handlers.AuthRouter(r, authService, authenticate)
	})
	router.Route("/api/admin", func(r chi.Router) {
		handlers.AdminRouter(r, accountService, authenticate)
	})
	router.NotFound(handlers.NotFound)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		database:   database,
		logger:     logger,
	}, nil
}

func corsOptions(cfg config.Config) cors.Options {
	origins := []string{"http://localhost:3000", "http://localhost:3001", "http://127.0.0.1:3000"}
	if cfg.Environment == "production" && cfg.CORSOrigin != "" {
		origins = []string{cfg.CORSOrigin}
	}
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// Router exposes the chi router for route registration and tests.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("server listening", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.database != nil {
		_ = s.database.Close()
	}
	return s.httpServer.Close()
}
