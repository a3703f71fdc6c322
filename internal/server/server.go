// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the wiring layer. It connects storage, services, handlers
// and middleware, and decides which URL patterns map to which handler and
// which routes need a logged-in user.
//
// DEPENDENCY INJECTION FLOW:
//
//	config.Config
//	  → sqlite.DB (implements every repository interface)
//	  → imagestore.Store (local disk or MinIO)
//	  → Presenter → Recipe/Membership/ShoppingList/Subscription/Catalog/Auth services
//	  → Recipe/User/Catalog/Auth handlers
//	  → chi routes
//
// Everything is assembled in New, the composition root.
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
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sakif/foodgram/internal/auth"
	"github.com/sakif/foodgram/internal/config"
	"github.com/sakif/foodgram/internal/handler"
	"github.com/sakif/foodgram/internal/imagestore"
	"github.com/sakif/foodgram/internal/middleware"
	"github.com/sakif/foodgram/internal/model"
	sqliteRepo "github.com/sakif/foodgram/internal/repository/sqlite"
	"github.com/sakif/foodgram/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the database connection and the rate limiter's cleanup
// goroutine. Close releases both; Start calls it on the way out.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	limiter *middleware.RateLimiter
	media   *imagestore.LocalStore // nil when images live in S3
}

// New opens storage and builds the router. The caller must Close the
// server (or run Start, which closes it).
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*Server, error) {
	if err := cfg.RequireServe(); err != nil {
		return nil, err
	}

	// === CREATE DATABASE ===
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		limiter: middleware.NewRateLimiter(cfg.LoginRatePerMinute, time.Minute),
	}

	if err := s.setupRoutes(ctx); err != nil {
		s.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler { return s.router }

// Close stops background work and closes the database.
func (s *Server) Close() error {
	s.limiter.Stop()
	return s.db.Close()
}

// newImageStore picks MinIO when an S3 endpoint is configured and local
// disk otherwise.
func (s *Server) newImageStore(ctx context.Context) (imagestore.Store, error) {
	if s.config.S3.Enabled() {
		store, err := imagestore.NewMinIOStore(ctx, imagestore.S3Config{
			Endpoint:  s.config.S3.Endpoint,
			AccessKey: s.config.S3.AccessKey,
			SecretKey: s.config.S3.SecretKey,
			Bucket:    s.config.S3.Bucket,
			UseSSL:    s.config.S3.UseSSL,
			PublicURL: s.config.S3.PublicURL,
		})
		if err != nil {
			return nil, fmt.Errorf("connecting to object storage: %w", err)
		}
		s.logger.Info("image store: s3", slog.String("bucket", s.config.S3.Bucket))
		return store, nil
	}

	local, err := imagestore.NewLocalStore(s.config.MediaDir, s.config.MediaURL)
	if err != nil {
		return nil, err
	}
	s.media = local
	s.logger.Info("image store: local disk", slog.String("dir", local.BaseDir()))
	return local, nil
}

// setupRoutes configures all middleware and route handlers.
//
// MIDDLEWARE ORDER MATTERS:
//  1. RequestID: unique id per request, picked up by the logger
//  2. RealIP: client IP from proxy headers, used by the login rate limiter
//  3. Logger and Metrics: one log line and one sample per request
//  4. Recoverer: a panic becomes a 500 instead of killing the process
//
// AUTH LEVELS:
// Routes sit in one of two groups. OptionalAuth reads a token if present so
// public reads can show per-viewer flags. RequireAuth answers 401 without one.
// Ownership (author-only edits) is checked in the service layer.
func (s *Server) setupRoutes(ctx context.Context) error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(middleware.Metrics)
	s.router.Use(chimiddleware.Recoverer)

	// === Core dependencies ===
	tokens, err := auth.NewTokenService(s.config.JWTSecret, 0)
	if err != nil {
		return err
	}
	images, err := s.newImageStore(ctx)
	if err != nil {
		return err
	}

	// s.db implements every repository interface; each service only sees
	// the ones it needs.
	presenter := service.NewPresenter(s.db, s.db)
	recipes := service.NewRecipeService(s.db, images, presenter, s.logger)
	memberships := service.NewMembershipService(s.db, s.db, s.logger)
	shopping := service.NewShoppingListService(s.db, s.logger)
	subscriptions := service.NewSubscriptionService(s.db, s.db, s.db, presenter, s.logger)
	catalog := service.NewCatalogService(s.db, s.db, s.logger)
	accounts := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), presenter, s.logger)

	var github *auth.GitHubProvider
	if s.config.GitHub.Enabled() {
		github = auth.NewGitHubProvider(s.config.GitHub.ClientID, s.config.GitHub.ClientSecret, s.config.GitHub.CallbackURL)
	} else {
		s.logger.Info("GitHub sign-in disabled (GITHUB_CLIENT_ID not set)")
	}

	recipeHandler := handler.NewRecipeHandler(recipes, memberships, shopping, s.logger)
	userHandler := handler.NewUserHandler(accounts, subscriptions)
	catalogHandler := handler.NewCatalogHandler(catalog)
	authHandler := handler.NewAuthHandler(accounts, github, tokens, s.config.SecureCookies, s.logger)
	addFavorite, removeFavorite := recipeHandler.Membership(model.Favorite)
	addToCart, removeFromCart := recipeHandler.Membership(model.ShoppingCart)

	// === Operational endpoints ===
	s.router.Handle("/metrics", promhttp.Handler())
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := s.db.Ping(r.Context()); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	// === Uploaded images ===
	// GET /media/recipes/<key>.png → {MediaDir}/recipes/<key>.png
	if s.media != nil {
		fileServer := http.FileServer(http.Dir(s.media.BaseDir()))
		s.router.Handle(s.media.URLPrefix()+"*", http.StripPrefix(s.media.URLPrefix(), fileServer))
	}

	// === API Routes ===
	s.router.Route("/api", func(r chi.Router) {
		// Public, no identity needed.
		r.Group(func(r chi.Router) {
			r.With(s.limiter.Middleware("login")).Post("/auth/token/login", authHandler.HandleLogin)
			r.Post("/users", userHandler.HandleRegister)

			r.Get("/tags", catalogHandler.HandleListTags)
			r.Get("/tags/{id}", catalogHandler.HandleGetTag)
			r.Get("/ingredients", catalogHandler.HandleListIngredients)
			r.Get("/ingredients/{id}", catalogHandler.HandleGetIngredient)

			if github != nil {
				r.Get("/auth/github/login", authHandler.HandleGitHubLogin)
				r.Get("/auth/github/callback", authHandler.HandleGitHubCallback)
			}
		})

		// Public reads that show per-viewer flags when a token is sent.
		r.Group(func(r chi.Router) {
			r.Use(auth.OptionalAuth(tokens))

			r.Get("/users", userHandler.HandleList)
			r.Get("/users/{id}", userHandler.HandleGet)
			r.Get("/recipes", recipeHandler.HandleList)
			r.Get("/recipes/{id}", recipeHandler.HandleGet)
		})

		// Everything else needs a logged-in user.
		r.Group(func(r chi.Router) {
			r.Use(auth.RequireAuth(tokens))

			r.Post("/auth/token/logout", authHandler.HandleLogout)

			r.Get("/users/me", userHandler.HandleMe)
			r.Post("/users/set_password", userHandler.HandleSetPassword)
			r.Get("/users/subscriptions", userHandler.HandleSubscriptions)
			r.Post("/users/{id}/subscribe", userHandler.HandleSubscribe)
			r.Delete("/users/{id}/subscribe", userHandler.HandleUnsubscribe)

			r.Post("/recipes", recipeHandler.HandleCreate)
			r.Get("/recipes/download_shopping_cart", recipeHandler.HandleDownloadShoppingCart)
			r.Patch("/recipes/{id}", recipeHandler.HandleUpdate)
			r.Delete("/recipes/{id}", recipeHandler.HandleDelete)
			r.Post("/recipes/{id}/favorite", addFavorite)
			r.Delete("/recipes/{id}/favorite", removeFavorite)
			r.Post("/recipes/{id}/shopping_cart", addToCart)
			r.Delete("/recipes/{id}/shopping_cart", removeFromCart)
		})
	})

	return nil
}

// Start starts the HTTP server and handles graceful shutdown.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (30s timeout)
//  3. Close the database connection (flushes WAL, releases file lock)
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
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("url", fmt.Sprintf("http://localhost:%d/api/", s.config.Port)),
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
