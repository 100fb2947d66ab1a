package main

import (
	"context"
	"log" // Use standard log only for initial fatal errors before logger is set up
	"os"
	"os/signal"
	"syscall"
	"time"

	"tradejournal/config"
	"tradejournal/internal/adapters/binanceclient"
	"tradejournal/internal/adapters/logger"
	"tradejournal/internal/adapters/sqlite"
	"tradejournal/internal/domain"
	"tradejournal/internal/journal"
	"tradejournal/internal/ports"
	"tradejournal/internal/scheduler"
	"tradejournal/internal/web"
)

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	// 2. Initialize Logger
	appLogger, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()
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

	// 4. Seed account settings on first run
	if err := seedSettings(context.Background(), repo, cfg); err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to seed account settings")
		log.Fatalf("FATAL: Failed to seed account settings: %v", err)
	}

	// 5. Initialize Journal Service
	journalSvc, err := journal.NewService(appLogger, repo, repo)
	if err != nil {
		appLogger.Error(context.Background(), err, "FATAL: Failed to initialize journal service")
		log.Fatalf("FATAL: Failed to initialize journal service: %v", err)
	}

	// 6. Initialize Market Data Client (optional)
	var market ports.MarketDataClient
	if cfg.MarketDataOn {
		client, err := binanceclient.New(binanceclient.Config{
			APIKey:     cfg.BinanceAPIKey,
			SecretKey:  cfg.BinanceSecretKey,
			UseTestnet: cfg.UseTestnet,
			Logger:     appLogger,
		})
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to initialize Binance client")
			log.Fatalf("FATAL: Failed to initialize Binance client: %v", err)
		}
		market = client
	}

	// 7. Start the Scheduler
	if cfg.SnapshotsOn {
		sched, err := scheduler.New(journalSvc, repo, appLogger)
		if err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to initialize scheduler")
			log.Fatalf("FATAL: Failed to initialize scheduler: %v", err)
		}
		if err := sched.Start(); err != nil {
			appLogger.Error(context.Background(), err, "FATAL: Failed to start scheduler")
			log.Fatalf("FATAL: Failed to start scheduler: %v", err)
		}
		defer sched.Stop()
	}

	// 8. Start the HTTP Server
	server := web.NewServer(cfg.Port, journalSvc, market, repo, appLogger)
	go func() {
		if err := server.Start(); err != nil {
			appLogger.Error(context.Background(), err, "HTTP server exited with error")
			os.Exit(1)
		}
	}()

	// 9. Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	appLogger.Info(context.Background(), "Received shutdown signal", map[string]interface{}{"signal": sig.String()})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		appLogger.Error(shutdownCtx, err, "Error during HTTP server shutdown")
	}
	appLogger.Info(context.Background(), "Application finished gracefully")
}

// seedSettings writes the configured account defaults when no settings have
// been stored yet. Existing settings are never overwritten.
func seedSettings(ctx context.Context, repo ports.SettingsRepository, cfg *config.Config) error {
	settings, err := repo.GetSettings(ctx)
	if err != nil {
		return err
	}
	if settings != nil {
		return nil
	}
	return repo.SaveSettings(ctx, &domain.AccountSettings{
		Balance:       cfg.DefaultBalance,
		UnitRiskValue: cfg.DefaultUnitRiskValue,
	})
}
