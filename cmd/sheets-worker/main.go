package main

import (
	"context"
	"errors"
	"time"

	"spesacasa/internal/amqp"
	"spesacasa/internal/backend"
	"spesacasa/internal/cache"
	"spesacasa/internal/cli"
	"spesacasa/internal/log"
	gsheet "spesacasa/internal/sheets/google"
	"spesacasa/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	base := cli.SetupLogger(cfg)
	logger := log.WithComponent(base, log.ComponentWorker)

	logger.Info("Starting sheets-worker")

	if !cfg.AMQPEnabled() {
		cli.Fatal(logger, "AMQP_URL is required", errors.New("change events disabled"))
	}
	loc, err := cfg.Location()
	if err != nil {
		cli.Fatal(logger, "Invalid timezone", err, "timezone", cfg.Timezone)
	}

	// Profiles are read straight from the store; the worker never publishes.
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	bcfg.AMQPURL = ""
	be, err := backend.NewFactory(base).Create(context.Background(), bcfg)
	if err != nil {
		cli.Fatal(logger, "Failed to create backend", err, "backend", cfg.DataBackend)
	}

	creds := gsheet.Credentials{JSON: cfg.GoogleServiceAccountJSON, File: cfg.GoogleServiceAccountFile}
	if creds.JSON == "" && creds.File == "" {
		creds = gsheet.CredentialsFromEnv()
	}
	sheetsClient, err := gsheet.New(context.Background(), creds, cfg.GoogleSheetName, loc, base)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, base)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}

	w := worker.NewSheetsWorker(be.Gateway, sheetsClient, base)
	caches := cache.NewManager(base)
	caches.Register(w.Cache())
	caches.StartCleanup(5 * time.Minute)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		caches.Stop()
		if err := consumer.Close(); err != nil {
			logger.Warn("AMQP close error", log.FieldError, err)
		}
		if err := be.Close(); err != nil {
			logger.Warn("Backend close error", log.FieldError, err)
		}
	})

	go func() {
		for {
			err := consumer.Consume(ctx, w.HandleChange)
			if ctx.Err() != nil {
				return
			}
			logger.Error("Message consumption stopped, reconnecting", log.FieldError, err)
			if err := consumer.Reconnect(ctx); err != nil && ctx.Err() == nil {
				logger.Error("AMQP reconnect failed", log.FieldError, err)
			}
		}
	}()

	logger.Info("Consuming change events", "queue", cfg.AMQPQueue, "sheet", cfg.GoogleSheetName)
	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
