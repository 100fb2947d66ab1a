package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"tradejournal/internal/journal"
	"tradejournal/internal/ports"
)

// Server exposes the journal over a JSON HTTP API for the browser front end.
type Server struct {
	router    *chi.Mux
	server    *http.Server
	journal   *journal.Service
	market    ports.MarketDataClient // nil when no exchange is configured
	snapshots ports.SnapshotRepository
	logger    ports.Logger
}

// NewServer creates the HTTP server and wires up all routes.
func NewServer(
	port int,
	journalSvc *journal.Service,
	market ports.MarketDataClient,
	snapshots ports.SnapshotRepository,
	logger ports.Logger,
) *Server {
	s := &Server{
		router:    chi.NewRouter(),
		journal:   journalSvc,
		market:    market,
		snapshots: snapshots,
		logger:    logger,
	}
	s.routes()
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(30 * time.Second))

	s.router.Get("/health", s.handleHealth)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/trades", s.handleListTrades)
		r.Post("/trades", s.handleOpenTrade)
		r.Get("/trades/{id}", s.handleGetTrade)
		r.Post("/trades/{id}/close", s.handleCloseTrade)
		r.Delete("/trades/{id}", s.handleDeleteTrade)

		r.Post("/plan", s.handlePlan)
		r.Get("/stats", s.handleStats)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)

		r.Get("/price", s.handlePrice)
		r.Get("/balance/history", s.handleBalanceHistory)
	})
}

// Start runs the HTTP server until it is shut down.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "HTTP server starting", map[string]interface{}{"addr": s.server.Addr})
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "HTTP server shutting down")
	return s.server.Shutdown(ctx)
}

// Handler returns the underlying router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.router
}
