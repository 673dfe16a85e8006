/**
 * @description
 * Entry point for the settlement service HTTP API.
 */
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/mojoplatform/settlement-service/internal/api"
	"github.com/mojoplatform/settlement-service/internal/app"
	"github.com/mojoplatform/settlement-service/internal/config"
	"github.com/mojoplatform/settlement-service/internal/store"
	settlementrabbit "github.com/mojoplatform/settlement-service/pkg/rabbitmq"
	"github.com/mojoplatform/settlement-service/pkg/transferclient"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	pgConfig, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		logger.Error("unable to parse database URL", "error", err)
		os.Exit(1)
	}
	pgConfig.MaxConns = 100
	pgConfig.MinConns = 20
	pgConfig.MaxConnLifetime = 30 * time.Minute
	pgConfig.MaxConnIdleTime = 5 * time.Minute
	pgConfig.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	dbpool, err := pgxpool.NewWithConfig(ctx, pgConfig)
	if err != nil {
		logger.Error("unable to connect to database", "error", err)
		os.Exit(1)
	}
	defer dbpool.Close()
	logger.Info("database connection established")

	repository := store.NewPostgresRepository(dbpool)

	var publisher app.EventPublisher = &settlementrabbit.EventProducerFallback{}
	if cfg.RabbitMQURL != "" {
		if producer, err := settlementrabbit.NewEventProducer(cfg.RabbitMQURL); err == nil {
			publisher = producer
			defer producer.Close()
		} else {
			logger.Warn("failed to connect to RabbitMQ, using fallback publisher", "error", err)
		}
	}

	var limiter app.RateLimiter
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Warn("invalid redis URL, attribution rate limiting disabled", "error", err)
		} else {
			redisClient := redis.NewClient(opts)
			defer redisClient.Close()
			limiter = app.NewRedisRateLimiter(redisClient, "", cfg.AttributionRateLimit, time.Minute)
			logger.Info("redis rate limiter enabled", "limit_per_minute", cfg.AttributionRateLimit)
		}
	}

	rates := cfg.Rates()
	transfers := transferclient.NewClient(cfg.TransferAPIURL, cfg.TransferAPIKey)
	auditor := app.NewAuditor(repository)
	calculator := app.NewCalculator(repository, rates)

	ledger := app.NewLedgerService(repository, calculator, publisher, auditor, rates)
	payouts := app.NewPayoutService(repository, transfers, publisher, auditor, rates)
	revenue := app.NewRevenueService(repository, publisher, auditor, rates)
	agreements := app.NewAgreementService(repository, publisher, auditor)
	attributions := app.NewAttributionService(repository, limiter, publisher, auditor, rates)

	handler := api.NewHandler(ledger, payouts, revenue, agreements, attributions)
	router := api.NewRouter(handler, cfg.JWKSURL, cfg.InternalAPIKey)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.ServerPort),
		Handler: router,
	}

	go func() {
		logger.Info("starting server", "port", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-sigCh
	logger.Info("shutdown signal received, gracefully shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}

	logger.Info("server stopped")
}
