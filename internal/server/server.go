// Package server wires the application together: store backend, service,
// guard, handlers, middleware, routes, and graceful shutdown. It is the
// composition root — every dependency is assembled here and nowhere else.
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
	"github.com/rs/cors"

	"github.com/wyun/codeshare/internal/config"
	"github.com/wyun/codeshare/internal/guard"
	"github.com/wyun/codeshare/internal/handler"
	"github.com/wyun/codeshare/internal/middleware"
	"github.com/wyun/codeshare/internal/repository"
	"github.com/wyun/codeshare/internal/repository/jsondoc"
	sqliteRepo "github.com/wyun/codeshare/internal/repository/sqlite"
	"github.com/wyun/codeshare/internal/service"
)

// Server owns the router and the store it serves from. The store is
// closed during graceful shutdown so pending writes reach disk before
// the process exits.
type Server struct {
	router *chi.Mux
	cfg    *config.Config
	logger *slog.Logger
	store  repository.ShareRepository
}

// New assembles the full dependency chain: store → guard + service →
// handlers → routes. The service only ever sees the repository
// interface; which backend sits behind it is decided right here from
// config and nowhere else.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("opening store: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
	s.setupRoutes()
	return s, nil
}

func openStore(cfg *config.Config) (repository.ShareRepository, error) {
	switch cfg.StoreBackend {
	case config.BackendSQLite:
		return sqliteRepo.New(cfg.DBPath)
	default:
		return jsondoc.New(cfg.DataFile)
	}
}

func (s *Server) setupRoutes() {
	// Middleware order: request ID and real IP first so the logger sees
	// them, recoverer before anything that can panic.
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	s.router.Use(cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)

	shareService := service.NewShareService(s.store, guard.New(), s.logger)
	shareHandler := handler.NewShareHandler(shareService, s.logger)
	exportHandler := handler.NewExportHandler(shareService, s.logger)

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	s.router.Route("/api/shares", func(r chi.Router) {
		r.Get("/", shareHandler.HandleList)
		r.Post("/", shareHandler.HandleCreate)

		r.Get("/{id}", shareHandler.HandleGet)
		r.Put("/{id}", shareHandler.HandleUpdate)
		r.Delete("/{id}", shareHandler.HandleDelete)

		r.Put("/{id}/visibility", shareHandler.HandleSetVisibility)
		r.Put("/{id}/expiration", shareHandler.HandleSetExpiration)

		r.Post("/{id}/snippets", shareHandler.HandleAddSnippet)
		r.Put("/{id}/snippets/{key}", shareHandler.HandleUpdateSnippet)
		r.Delete("/{id}/snippets/{key}", shareHandler.HandleRemoveSnippet)

		r.Get("/{id}/download", exportHandler.HandleDownload)
	})
}

// Router exposes the assembled handler, mainly for tests that drive the
// full stack through httptest without binding a port.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests and closes the store.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         ":" + s.cfg.Port,
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
			slog.String("addr", srv.Addr),
			slog.String("backend", s.cfg.StoreBackend),
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
