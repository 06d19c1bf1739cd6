package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"marginDiary/config"
	"marginDiary/internal/adapters/alphavantage"
	"marginDiary/internal/adapters/binanceclient"
	"marginDiary/internal/adapters/moex"
	"marginDiary/internal/adapters/sqlite"
	"marginDiary/internal/adapters/zlog"
	"marginDiary/internal/app"
	"marginDiary/internal/ports"
	"marginDiary/internal/quotes"
	"marginDiary/internal/server"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger := zlog.New(cfg.LogLevel)
	appLogger.Info(context.Background(), "Logger initialized", map[string]interface{}{"level": cfg.LogLevel})

	// 3. Initialize Repository (Database Adapter)
	repo, err := sqlite.NewRepository(sqlite.Config{
		DBPath: cfg.DBPath,
		Logger: appLogger,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize database repository")
		log.Fatalf("FATAL: Failed to initialize database repository: %v", err)
	}
	defer func() {
		if err := repo.Close(); err != nil {
			appLogger.Error(context.Background(), err, "Error closing database repository")
		}
	}()
	appLogger.Info(context.Background(), "Database repository initialized")

	// 4. Initialize Quote Providers and Cache
	moexClient, err := moex.New(moex.Config{BaseURL: cfg.MOEXBaseURL, Logger: appLogger})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize MOEX client")
		log.Fatalf("FATAL: Failed to initialize MOEX client: %v", err)
	}

	var fallback ports.QuoteProvider
	if len(cfg.AlphaVantageKeys) > 0 {
		alphaClient, err := alphavantage.New(alphavantage.Config{
			APIKeys: cfg.AlphaVantageKeys,
			BaseURL: cfg.AlphaBaseURL,
			Logger:  appLogger,
		})
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Alpha Vantage client")
			log.Fatalf("FATAL: Failed to initialize Alpha Vantage client: %v", err)
		}
		fallback = alphaClient
	} else {
		appLogger.Warn(context.Background(), "No Alpha Vantage API keys configured, foreign quotes disabled")
	}

	var crypto ports.QuoteProvider
	if cfg.BinanceEnabled {
		binanceClient, err := binanceclient.New(binanceclient.Config{
			APIKey:     cfg.BinanceAPIKey,
			SecretKey:  cfg.BinanceSecret,
			UseTestnet: cfg.BinanceTestnet,
			Logger:     appLogger,
		})
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
			log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
		}
		crypto = binanceClient
	}

	quoteCache := quotes.New(quotes.Config{
		Domestic: moexClient,
		Fallback: fallback,
		Crypto:   crypto,
		Logger:   appLogger,
	})
	appLogger.Info(context.Background(), "Quote cache initialized")

	// 5. Initialize Application Services
	tradeService, err := app.NewTradeService(repo, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize trade service: %v", err)
	}
	statsService, err := app.NewStatsService(repo, quoteCache, cfg.QuoteTTL, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize stats service: %v", err)
	}
	spotService, err := app.NewSpotService(repo, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize spot service: %v", err)
	}
	portfolioService, err := app.NewPortfolioService(repo, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize portfolio service: %v", err)
	}

	// 6. Initialize HTTP Server
	srv, err := server.New(server.Config{
		Port:          cfg.HTTPPort,
		Logger:        appLogger,
		Trades:        tradeService,
		Stats:         statsService,
		Spot:          spotService,
		Portfolios:    portfolioService,
		Quotes:        quoteCache,
		QuoteTTL:      cfg.QuoteTTL,
		DefaultUserID: cfg.DefaultUserID,
	})
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize HTTP server")
		log.Fatalf("FATAL: Failed to initialize HTTP server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 7. Start Quote Cache Warmer
	var warmer *cron.Cron
	if cfg.QuoteWarmInterval != "" {
		warmer = cron.New()
		_, err := warmer.AddFunc(cfg.QuoteWarmInterval, func() {
			warmQuotes(ctx, repo, quoteCache, cfg.QuoteTTL, appLogger)
		})
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Invalid QUOTE_WARM_INTERVAL")
			log.Fatalf("FATAL: Invalid QUOTE_WARM_INTERVAL: %v", err)
		}
		warmer.Start()
		appLogger.Info(ctx, "Quote warmer started", map[string]interface{}{"interval": cfg.QuoteWarmInterval})
	}

	// 8. Serve until interrupted
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case <-ctx.Done():
		appLogger.Info(context.Background(), "Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			appLogger.Error(context.Background(), err, "HTTP server failed")
		}
	}

	if warmer != nil {
		warmer.Stop()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(context.Background(), err, "Error during server shutdown")
	}
	appLogger.Info(context.Background(), "Shutdown complete")
}

// warmQuotes pre-fetches prices for every symbol with an open lot so
// dashboard reads hit a fresh cache.
func warmQuotes(ctx context.Context, store ports.Store, cache *quotes.Cache, ttl time.Duration, logger ports.Logger) {
	symbols, err := store.ListOpenSymbols(ctx)
	if err != nil {
		logger.Warn(ctx, "Quote warmer failed to list open symbols", map[string]interface{}{"error": err.Error()})
		return
	}
	if len(symbols) == 0 {
		return
	}
	priced := cache.GetPrices(ctx, symbols, ttl)
	logger.Debug(ctx, "Quote warmer pass finished", map[string]interface{}{
		"symbols": len(symbols),
		"priced":  len(priced),
	})
}
