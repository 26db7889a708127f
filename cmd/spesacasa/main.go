package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"spesacasa/internal/ai"
	"spesacasa/internal/ai/gemini"
	"spesacasa/internal/backend"
	"spesacasa/internal/cache"
	"spesacasa/internal/cli"
	"spesacasa/internal/core"
	"spesacasa/internal/device"
	"spesacasa/internal/events"
	apphttp "spesacasa/internal/http"
	"spesacasa/internal/log"
	"spesacasa/internal/middleware/ratelimit"
	"spesacasa/internal/offers"
	"spesacasa/internal/snapshot"
	"spesacasa/internal/state"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	base := cli.SetupLogger(cfg)
	logger := log.WithComponent(base, log.ComponentApp)

	loc, err := cfg.Location()
	if err != nil {
		cli.Fatal(logger, "Invalid timezone", err, "timezone", cfg.Timezone)
	}

	startCtx, startCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startCancel()

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	be, err := backend.NewFactory(base).Create(startCtx, bcfg)
	if err != nil {
		cli.Fatal(logger, "Failed to create backend", err, "backend", cfg.DataBackend)
	}

	dev, err := device.Open(cfg.DeviceDataDir, base)
	if err != nil {
		cli.Fatal(logger, "Failed to open device storage", err, "dir", cfg.DeviceDataDir)
	}

	hub := events.NewHub(base)
	store := state.New(be.Gateway,
		state.WithLogger(base),
		state.WithLocation(loc),
		state.WithProfileCache(dev),
		state.WithChangeListener(hub.OnChange))

	// The device remembers which household it belongs to.
	profile, ok, err := dev.LoadProfile()
	if err != nil {
		logger.Warn("Cached profile unreadable", log.FieldError, err)
	}
	if !ok {
		profile = core.FamilyProfile{ID: cfg.FamilyID, FamilyName: cfg.FamilyName}
	}
	profile, err = store.EnsureProfile(startCtx, profile)
	if err != nil {
		cli.Fatal(logger, "Failed to set up family profile", err)
	}
	if err := store.Hydrate(startCtx, profile.ID); err != nil {
		var herr *state.HydrationError
		if !errors.As(err, &herr) {
			cli.Fatal(logger, "Failed to load household data", err, log.FieldTenant, profile.ID)
		}
		logger.Warn("Household data partially loaded", log.FieldTenant, profile.ID, log.FieldError, err)
	}

	caches := cache.NewManager(base)
	var (
		aiService ai.Service
		finder    offers.Finder
	)
	model, err := gemini.New(startCtx, cfg.GeminiAPIKey, cfg.GeminiModel, base)
	switch {
	case err == nil:
		aiService, finder = model, model
	case errors.Is(err, ai.ErrUnavailable):
		logger.Info("AI features disabled - no GEMINI_API_KEY provided")
	default:
		logger.Error("Failed to initialize Gemini client", log.FieldError, err)
	}
	answers := cache.NewLRUCache[string](512, cfg.AICacheTTL)
	caches.Register(answers)
	safe := ai.NewSafe(aiService, ai.WithCache(answers), ai.WithLogger(base))

	var checker *offers.Checker
	if finder != nil {
		checker, err = offers.NewChecker(finder, dev, offers.WithLogger(base))
		if err != nil {
			logger.Error("Offer checker disabled", log.FieldError, err)
		} else if err := checker.Start(context.Background(), cfg.OfferCheckInterval); err != nil {
			logger.Error("Failed to start offer checker", log.FieldError, err)
		}
	}
	caches.StartCleanup(10 * time.Minute)

	limiter := ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.AIRatePerMinute})

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		State:   store,
		AI:      safe,
		Offers:  checker,
		Events:  hub,
		Limiter: limiter,
		Codec:   snapshot.Codec{},
		Locale:  cfg.Locale,
		Logger:  base,
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		if checker != nil {
			if err := checker.Stop(ctx); err != nil {
				logger.Warn("Offer checker stop", log.FieldError, err)
			}
		}
		caches.Stop()
		if err := store.Flush(ctx); err != nil {
			logger.Warn("Pending writes did not finish", log.FieldError, err)
		}
		if err := be.Close(); err != nil {
			logger.Error("Backend close error", log.FieldError, err)
		}
	})

	logger.Info("Starting spesacasa server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		log.FieldTenant, profile.ID,
		"ai", safe.Available(),
		"amqp", be.AMQP != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		cli.Fatal(logger, "Server error", err, "port", cfg.Port)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
