// Package config loads service configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds everything the billing service needs at startup.
type Config struct {
	Environment string
	HTTPAddr    string
	DatabaseDSN string

	SnowflakeNode int64

	// SettlementCacheTTL controls how long settled past-day reports are cached.
	// Zero disables the cache.
	SettlementCacheTTL time.Duration

	// RateLimitPerMinute caps mutating requests per client IP.
	RateLimitPerMinute int

	// TerminalBridgeURL points at the card terminal bridge. Empty means
	// transaction numbers are trusted as presented.
	TerminalBridgeURL string

	Tracing TracingConfig
}

// TracingConfig configures the OTLP trace exporter.
type TracingConfig struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	SamplingRatio    float64
}

// IsProduction reports whether the service runs in production mode.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

// Load reads configuration from the environment, consulting .env when present.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		Environment:        envString("MEDIFLOW_ENV", "development"),
		HTTPAddr:           envString("MEDIFLOW_HTTP_ADDR", ":8080"),
		DatabaseDSN:        envString("MEDIFLOW_DATABASE_DSN", "host=localhost user=mediflow dbname=mediflow sslmode=disable"),
		SnowflakeNode:      envInt64("MEDIFLOW_SNOWFLAKE_NODE", 1),
		SettlementCacheTTL: envDuration("MEDIFLOW_SETTLEMENT_CACHE_TTL", 10*time.Minute),
		RateLimitPerMinute: int(envInt64("MEDIFLOW_RATE_LIMIT_PER_MINUTE", 120)),
		TerminalBridgeURL:  envString("MEDIFLOW_TERMINAL_BRIDGE_URL", ""),
		Tracing: TracingConfig{
			Enabled:          envBool("MEDIFLOW_TRACING_ENABLED", false),
			ExporterEndpoint: envString("MEDIFLOW_TRACING_ENDPOINT", ""),
			ExporterProtocol: envString("MEDIFLOW_TRACING_PROTOCOL", "grpc"),
			SamplingRatio:    envFloat("MEDIFLOW_TRACING_SAMPLING_RATIO", 0.1),
		},
	}
	return cfg, nil
}

// Module provides Config to the fx graph.
var Module = fx.Module("config",
	fx.Provide(Load),
)

func envString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return fallback
	}
	return value
}

func envFloat(key string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return value
}

func envBool(key string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return fallback
	}
	return value
}

func envDuration(key string, fallback time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}
	return value
}
