package main

import (
	"context"
	"errors"
	"os"
	"time"

	"github.com/raven-rwho/rem-expenses/internal/amqp"
	"github.com/raven-rwho/rem-expenses/internal/cache"
	"github.com/raven-rwho/rem-expenses/internal/cli"
	"github.com/raven-rwho/rem-expenses/internal/currency"
	"github.com/raven-rwho/rem-expenses/internal/log"
	"github.com/raven-rwho/rem-expenses/internal/services"
	"github.com/raven-rwho/rem-expenses/internal/storage"
	"github.com/raven-rwho/rem-expenses/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)
	logger.Info("Starting rem-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the conversion worker")
		os.Exit(1)
	}
	if cfg.DataBackend != "sqlite" {
		logger.Error("The conversion worker needs the shared SQLite store", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath, logger.WithComponent(log.ComponentStorage))
	if err != nil {
		logger.Error("Failed to initialize SQLite store", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer store.Close()

	rateCache := cache.NewLRUCache[currency.Quote](256, cfg.RateCacheTTL)
	converter := currency.NewClient(cfg.FrankfurterURL,
		currency.WithCache(rateCache),
		currency.WithLogger(logger.WithComponent(log.ComponentCurrency)))
	conversions := services.NewConversionService(store, converter, logger.WithComponent(log.ComponentConversion))

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger.WithComponent(log.ComponentAMQP))
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	caches := cache.NewManager(logger.WithComponent(log.ComponentCache))
	caches.Register("exchange_rates", rateCache)

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, func(context.Context) {
		caches.Stop()
	})
	caches.StartCleanup(ctx, 10*time.Minute)

	w := worker.NewConversionWorker(conversions, cfg.ConversionTimeout, logger)
	logger.Info("Consuming conversion requests",
		"exchange", cfg.AMQPExchange,
		"queue", cfg.AMQPQueue)
	if err := w.Run(ctx, client); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
