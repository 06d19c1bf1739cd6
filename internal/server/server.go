// Package server exposes the diary services over HTTP. Handlers stay
// thin: header parsing, JSON codec, and error-to-status mapping; all
// accounting lives in the app services.
package server

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"marginDiary/internal/app"
	"marginDiary/internal/ports"
	"marginDiary/internal/quotes"
)

// Config holds server configuration and the services to expose.
type Config struct {
	Port          int
	Logger        ports.Logger
	Trades        *app.TradeService
	Stats         *app.StatsService
	Spot          *app.SpotService
	Portfolios    *app.PortfolioService
	Quotes        *quotes.Cache
	QuoteTTL      time.Duration
	DefaultUserID int64
}

// Server is the HTTP front of the diary.
type Server struct {
	router *chi.Mux
	server *http.Server
	logger ports.Logger

	trades     *app.TradeService
	stats      *app.StatsService
	spot       *app.SpotService
	portfolios *app.PortfolioService
	quotes     *quotes.Cache
	quoteTTL   time.Duration
	defaultUID int64
}

// New creates the HTTP server over the given services.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil || cfg.Trades == nil || cfg.Stats == nil || cfg.Spot == nil || cfg.Portfolios == nil {
		return nil, fmt.Errorf("missing required dependencies for Server")
	}
	if cfg.QuoteTTL <= 0 {
		cfg.QuoteTTL = 10 * time.Minute
	}
	if cfg.DefaultUserID == 0 {
		cfg.DefaultUserID = 1
	}

	s := &Server{
		router:     chi.NewRouter(),
		logger:     cfg.Logger,
		trades:     cfg.Trades,
		stats:      cfg.Stats,
		spot:       cfg.Spot,
		portfolios: cfg.Portfolios,
		quotes:     cfg.Quotes,
		quoteTTL:   cfg.QuoteTTL,
		defaultUID: cfg.DefaultUserID,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Portfolio-ID", "X-User-ID"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Route("/trades", func(r chi.Router) {
		r.Get("/", s.handleListTrades)
		r.Post("/buy", s.handleBuyTrade)
		r.Post("/bulk-import", s.handleBulkImport)
		r.Post("/fifo-close", s.handleFIFOClose)
		r.Get("/stats", s.handleTradeStats)
		r.Get("/positions/open", s.handleOpenPositions)
		r.Get("/analytics/summary", s.handleAnalyticsSummary)
		r.Get("/analytics/monthly", s.handleAnalyticsMonthly)
		r.Get("/analytics/symbols", s.handleAnalyticsSymbols)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetTrade)
			r.Put("/", s.handleUpdateTrade)
			r.Delete("/", s.handleDeleteTrade)
			r.Post("/close-part", s.handleClosePart)
			r.Get("/financing-events", s.handleListFinancingEvents)
			r.Post("/financing-events", s.handleAddFinancingEvent)
			r.Get("/daily-interest", s.handleDailyInterest)
		})
	})

	s.router.Route("/spot-transactions", func(r chi.Router) {
		r.Get("/", s.handleListSpot)
		r.Post("/", s.handleCreateSpot)
		r.Get("/stats", s.handleSpotStats)
		r.Get("/positions/open", s.handleSpotHoldings)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.handleGetSpot)
			r.Put("/", s.handleUpdateSpot)
			r.Delete("/", s.handleDeleteSpot)
		})
	})

	s.router.Route("/portfolios", func(r chi.Router) {
		r.Get("/", s.handleListPortfolios)
		r.Post("/", s.handleCreatePortfolio)
		r.Delete("/{id}", s.handleDeletePortfolio)
	})

	s.router.Get("/prices", s.handlePrices)
}

// Start begins serving. Blocks until the listener stops.
func (s *Server) Start() error {
	s.logger.Info(context.Background(), "Starting HTTP server", map[string]interface{}{"addr": s.server.Addr})
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests and stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info(ctx, "Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// userID reads the X-User-ID header, falling back to the configured
// default. Authentication proper lives in front of this service.
func (s *Server) userID(r *http.Request) int64 {
	if raw := r.Header.Get("X-User-ID"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			return id
		}
	}
	return s.defaultUID
}

// portfolioID reads the X-Portfolio-ID header; zero means unscoped.
func (s *Server) portfolioID(r *http.Request) int64 {
	if raw := r.Header.Get("X-Portfolio-ID"); raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil && id > 0 {
			return id
		}
	}
	return 0
}

func pathID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}
