package internal

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Env      string `validate:"oneof=dev prod"`
	LogLevel string
	Port     uint16

	Gateway   GatewayConfig
	Reconcile ReconcileConfig
}

// GatewayConfig holds credentials and tuning for the remote catalog platform.
type GatewayConfig struct {
	// ShopDomain is the myshopify-style store domain, e.g. "acme-roasters.myshopify.com".
	ShopDomain string `validate:"required"`

	// AccessToken is the Admin API access token.
	AccessToken string `validate:"required"`

	// APIVersion selects the Admin API version path segment.
	APIVersion string

	// TimeoutSeconds bounds each gateway HTTP call.
	TimeoutSeconds int `validate:"gte=1"`
}

// ReconcileConfig holds defaults for the reconciliation workflow.
type ReconcileConfig struct {
	// DefaultLocationID scopes inventory reads/writes when set. Empty means
	// aggregate quantities across locations.
	DefaultLocationID string

	// DefaultMarginThreshold is the percent below which a positive margin is
	// flagged medium instead of good.
	DefaultMarginThreshold float64 `validate:"gte=0"`

	// LookupBatchSize caps SKUs per product-lookup query. The gateway's
	// query-string length limit caps this in practice around 50.
	LookupBatchSize int `validate:"gte=1,lte=100"`

	// WriteBatchSize caps variants/changes per write call (gateway limit 100).
	WriteBatchSize int `validate:"gte=1,lte=100"`

	// ProgressBatchSize is the user-visible chunk of included items processed
	// as one step of a commit run.
	ProgressBatchSize int `validate:"gte=1"`

	// RequireStockResolved gates workflow advancement on the stock column
	// being mapped to either an index or an explicit "none".
	RequireStockResolved bool
}

func NewConfig() (*Config, error) {
	// Try to load .env from current directory, then walk up to find it (max 2 levels)
	err := godotenv.Load()
	if err != nil {
		dir, _ := os.Getwd()
		found := false
		for i := 0; i < 2; i++ {
			dir = filepath.Join(dir, "..")
			if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
				found = true
				break
			}
		}
		if !found {
			slog.Default().Warn("Warning: .env file not found, using environment variables and defaults")
		}
	}

	cfg := &Config{
		Env:      getEnv("ENV", "dev"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Port:     getEnvInt("PORT", 3000),
		Gateway: GatewayConfig{
			ShopDomain:     getEnv("SHOP_DOMAIN", ""),
			AccessToken:    getEnv("SHOP_ACCESS_TOKEN", ""),
			APIVersion:     getEnv("SHOP_API_VERSION", "2024-10"),
			TimeoutSeconds: int(getEnvInt("GATEWAY_TIMEOUT_SECONDS", 30)),
		},
		Reconcile: ReconcileConfig{
			DefaultLocationID:      getEnv("DEFAULT_LOCATION_ID", ""),
			DefaultMarginThreshold: getEnvFloat("DEFAULT_MARGIN_THRESHOLD", 15.0),
			LookupBatchSize:        int(getEnvInt("LOOKUP_BATCH_SIZE", 50)),
			WriteBatchSize:         int(getEnvInt("WRITE_BATCH_SIZE", 100)),
			ProgressBatchSize:      int(getEnvInt("PROGRESS_BATCH_SIZE", 50)),
			RequireStockResolved:   getEnvBool("REQUIRE_STOCK_RESOLVED", false),
		},
	}

	// Validate log level
	validLevel := cfg.LogLevel == "info" || cfg.LogLevel == "debug" || cfg.LogLevel == "warn" || cfg.LogLevel == "error"
	if !validLevel {
		slog.Default().Warn("Invalid log level. Using default: info", slog.String("value", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue uint16) uint16 {
	if value := os.Getenv(key); value != "" {
		var intValue uint16
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		var floatValue float64
		if _, err := fmt.Sscanf(value, "%f", &floatValue); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
