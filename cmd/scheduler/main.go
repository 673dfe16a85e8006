/**
 * @description
 * This is the main entry point for the settlement scheduler.
 * It is a non-HTTP, long-running process that executes scheduled tasks:
 * the commission approval sweep, the monthly regional payout run, and the
 * eligible recipient report.
 */
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mojoplatform/settlement-service/internal/app"
	"github.com/mojoplatform/settlement-service/internal/config"
	"github.com/mojoplatform/settlement-service/internal/jobs"
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

	ctx := context.Background()

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

	rates := cfg.Rates()
	transfers := transferclient.NewClient(cfg.TransferAPIURL, cfg.TransferAPIKey)
	auditor := app.NewAuditor(repository)
	calculator := app.NewCalculator(repository, rates)

	ledger := app.NewLedgerService(repository, calculator, publisher, auditor, rates)
	payouts := app.NewPayoutService(repository, transfers, publisher, auditor, rates)
	revenue := app.NewRevenueService(repository, publisher, auditor, rates)

	runner := jobs.NewJobs(ledger, revenue, payouts, logger)
	scheduler := jobs.NewScheduler(runner, logger, cfg)

	scheduler.Start()
	logger.Info("scheduler started")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Info("shutdown signal received, stopping scheduler")
	stopCtx := scheduler.Stop()
	<-stopCtx.Done()
	logger.Info("scheduler stopped gracefully")
}
