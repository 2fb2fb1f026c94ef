package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"wanderlust/internal/infra/config"
	ginserver "wanderlust/internal/infra/http/gin"
	"wanderlust/internal/infra/obs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		obs.NewLogger(os.Getenv("APP_ENV"), "info").Error("configuration invalid", "error", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env, cfg.LogLevel)

	app, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("application init failed", "error", err)
		os.Exit(1)
	}
	defer app.close(logger)

	if cfg.ListingFixtures != "" {
		if n, err := loadListingFixtures(ctx, app.core.Catalog, cfg.ListingFixtures); err != nil {
			logger.Warn("listing fixtures load failed", "error", err, "path", cfg.ListingFixtures)
		} else {
			logger.Info("listing fixtures loaded", "count", n, "path", cfg.ListingFixtures)
		}
	}

	app.startBackground(ctx, cfg, logger)

	limiter := ginserver.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{Checks: app.checks}, app.core.HTTPHandlers(limiter.Middleware()))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageDriver)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	app.wait()
	logger.Info("HTTP server stopped")
}
