// Package backend assembles the gateway the household state mirrors to.
package backend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"spesacasa/internal/adapters"
	"spesacasa/internal/amqp"
	"spesacasa/internal/gateway"
	"spesacasa/internal/gateway/memory"
	"spesacasa/internal/log"
	"spesacasa/internal/storage"
)

// Result owns everything Create opened.
type Result struct {
	Gateway gateway.Gateway
	AMQP    *amqp.Client // nil when change events are disabled
}

// Close releases the gateway and the broker connection.
func (r *Result) Close() error {
	var errs []error
	if r.AMQP != nil {
		errs = append(errs, r.AMQP.Close())
	}
	if r.Gateway != nil {
		errs = append(errs, r.Gateway.Close())
	}
	return errors.Join(errs...)
}

type Factory struct {
	logger *slog.Logger
}

func NewFactory(logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &Factory{logger: logger}
}

// Create opens the configured gateway and, when AMQP is configured, wraps
// it so every successful write publishes a change event.
func (f *Factory) Create(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	l := log.WithComponent(f.logger, log.ComponentBackend)

	var gw gateway.Gateway
	switch cfg.Type {
	case SQLiteBackend:
		g, err := storage.Open(cfg.SQLiteDBPath, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite gateway: %w", err)
		}
		gw = g
	case MemoryBackend:
		gw = memory.New()
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}

	res := &Result{Gateway: gw}
	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, f.logger)
		if err != nil {
			_ = gw.Close()
			return nil, fmt.Errorf("failed to initialize AMQP client: %w", err)
		}
		res.AMQP = client
		res.Gateway = adapters.NewNotifyingGateway(gw, client, f.logger)
	}

	l.InfoContext(ctx, "Backend ready",
		"type", cfg.Type,
		"amqp", res.AMQP != nil)
	return res, nil
}
