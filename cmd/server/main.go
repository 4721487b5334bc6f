package main

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/dukerupert/sif/internal"
	"github.com/dukerupert/sif/internal/catalog"
	"github.com/dukerupert/sif/internal/handler"
	"github.com/dukerupert/sif/internal/middleware"
	"github.com/dukerupert/sif/internal/router"
	"github.com/dukerupert/sif/internal/service"
	"github.com/dukerupert/sif/internal/telemetry"
)

func run() error {
	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)

	// Initialize the catalog gateway. The gateway is caller-owned and passed
	// into every service that needs it; there is no ambient shared client.
	logger.Info("Initializing catalog gateway...", "shop", cfg.Gateway.ShopDomain)
	gateway, err := catalog.NewShopifyGateway(
		cfg.Gateway.ShopDomain,
		cfg.Gateway.AccessToken,
		cfg.Gateway.APIVersion,
		time.Duration(cfg.Gateway.TimeoutSeconds)*time.Second,
	)
	if err != nil {
		return fmt.Errorf("failed to initialize catalog gateway: %w", err)
	}

	// Initialize metrics
	httpMetrics := middleware.NewMetrics("sif")
	reconcileMetrics := telemetry.NewMetrics("sif")

	// Initialize services
	matcherService := service.NewMatcherService(gateway, cfg.Reconcile.LookupBatchSize, reconcileMetrics, logger)
	commitService := service.NewCommitService(gateway, cfg.Reconcile.ProgressBatchSize, cfg.Reconcile.WriteBatchSize, reconcileMetrics, logger)
	reconciliationService := service.NewReconciliationService(matcherService, commitService, service.SessionConfig{
		DefaultThreshold:     cfg.Reconcile.DefaultMarginThreshold,
		DefaultLocationID:    cfg.Reconcile.DefaultLocationID,
		RequireStockResolved: cfg.Reconcile.RequireStockResolved,
	}, logger)
	logger.Info("Services initialized")

	// Build the router
	r := router.New(
		middleware.RequestID,
		middleware.WithRequestLogger(logger),
		middleware.Recover,
		httpMetrics.Middleware,
	)

	reconcileHandler := handler.NewReconcileHandler(reconciliationService, gateway, logger)
	reconcileHandler.Routes(r)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle(http.MethodGet, "/metrics", httpMetrics.Handler())

	addr := fmt.Sprintf(":%d", cfg.Port)
	logger.Info("Starting server", "addr", addr, "env", cfg.Env)
	if err := http.ListenAndServe(addr, r); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
