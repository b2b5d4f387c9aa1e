package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"spendwise/internal/config"
	"spendwise/internal/database"
	"spendwise/internal/ledger"
	"spendwise/internal/logger"
	"spendwise/internal/prediction"
	"spendwise/internal/server"
	"spendwise/internal/validator"
)

// @title           Spendwise API
// @version         1.0
// @description     Wallet-backed expense tracker: expenses debit a wallet, budgets plan spending against it and reports summarise a date range.

// @host      localhost:8080
// @BasePath  /api/v1

// @securityDefinitions.apikey AdminKey
// @in header
// @name X-API-Key
// @description Admin key required for cross-user listings.

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Create database manager
	dbConfig := database.NewConfig(appConfig)
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			log.Warnf("database close error: %v", err)
		}
	}()

	// Run migrations
	if err := dbManager.RunMigrations(database.DefaultMigrationsSource); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	locker, closeLocker, err := newLocker(appConfig)
	if err != nil {
		return err
	}
	defer closeLocker()

	validator.Register()

	router := server.NewRouter(server.Deps{
		DB:     dbManager.DB(),
		Ledger: ledger.New(locker, appConfig.LockWait),
		Predictor: prediction.NewClient(
			prediction.WithBaseURL(appConfig.AIServiceURL),
			prediction.WithTimeout(appConfig.AITimeout),
			prediction.WithRateLimit(appConfig.AIRateLimit),
		),
		ConnString:  dbConfig.ConnString(),
		AdminAPIKey: appConfig.AdminAPIKey,
		RequestLog:  true,
	})

	srv := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting Spendwise server on port %s", appConfig.Port)
		log.Infof("Swagger documentation available at http://localhost:%s/swagger/index.html", appConfig.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newLocker picks the Redis locker when REDIS_URL is set so that replicas
// share per-user locks, and the in-process locker otherwise.
func newLocker(cfg *config.Config) (ledger.Locker, func(), error) {
	if cfg.RedisURL == "" {
		logger.Get().Info("Using in-process wallet locks")
		return ledger.NewMemoryLocker(), func() {}, nil
	}

	client, err := ledger.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Get().Infow("Using Redis wallet locks", "ttl", cfg.LockTTL.String())
	closeFn := func() {
		if err := client.Close(); err != nil {
			logger.Get().Warnf("redis close error: %v", err)
		}
	}
	return ledger.NewRedisLocker(client, cfg.LockTTL), closeFn, nil
}
