// Package config aggregates the process-wide configuration for both the
// API server and the scheduler binary: database and redis connection
// settings, weather provider credentials, and the scorer/scheduler tuning
// that internal/kernel, internal/confidence, internal/scorer and
// internal/scheduler each already default sensibly via their own
// DefaultConfig, but which an operator may still need to override per
// environment (connection strings, API keys, batch sizes).
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/alpinerisk/alpinerisk/internal/database"
	"github.com/alpinerisk/alpinerisk/internal/scheduler"
)

// RedisConfig holds redis connection configuration.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// WeatherConfig holds the weather provider (C3) credentials and base URLs.
type WeatherConfig struct {
	// CommercialArchiveBaseURL and CommercialArchiveAPIKey configure the
	// paid archive provider. When APIKey is empty the scorer falls back
	// to openmeteo alone for both forecast and archive windows.
	CommercialArchiveBaseURL string
	CommercialArchiveAPIKey  string
}

// Config is the full process configuration, loaded once at startup and
// treated as immutable for the process lifetime.
type Config struct {
	Database  database.Config
	Redis     RedisConfig
	Weather   WeatherConfig
	Scheduler scheduler.Config

	// APIPort is the HTTP listen port for cmd/server.
	APIPort string
	// AppEnv is the deployment environment name ("development",
	// "staging", "production"), used in telemetry resource attributes.
	AppEnv string
	// OTLPEndpoint is the OpenTelemetry collector endpoint.
	OTLPEndpoint string
	// OTELEnabled toggles telemetry export.
	OTELEnabled bool
}

// FromEnv loads Config from environment variables, falling back to
// development-friendly defaults for anything unset.
func FromEnv() Config {
	schedulerCfg := scheduler.DefaultConfig()
	if v := os.Getenv("SCHEDULER_CRON_SPEC"); v != "" {
		schedulerCfg.CronSpec = v
	}
	if v, err := strconv.Atoi(os.Getenv("SCHEDULER_CONCURRENCY")); err == nil && v > 0 {
		schedulerCfg.Concurrency = v
	}
	if v, err := strconv.Atoi(os.Getenv("SCHEDULER_BATCH_SIZE")); err == nil && v > 0 {
		schedulerCfg.BatchSize = v
	}
	if v, err := time.ParseDuration(os.Getenv("SCHEDULER_ROUTE_TIMEOUT")); err == nil && v > 0 {
		schedulerCfg.RouteTimeout = v
	}
	schedulerCfg.ProjectID = getEnvOrDefault("GCP_PROJECT_ID", schedulerCfg.ProjectID)
	schedulerCfg.RecomputeTopic = getEnvOrDefault("RECOMPUTE_TOPIC", schedulerCfg.RecomputeTopic)
	schedulerCfg.RecomputeSubscription = getEnvOrDefault("RECOMPUTE_SUBSCRIPTION", schedulerCfg.RecomputeSubscription)

	redisDB, _ := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))

	return Config{
		Database: database.ConfigFromEnv(),
		Redis: RedisConfig{
			Addr:     getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Weather: WeatherConfig{
			CommercialArchiveBaseURL: getEnvOrDefault("COMMERCIAL_ARCHIVE_BASE_URL", "https://archive.example.com"),
			CommercialArchiveAPIKey:  os.Getenv("COMMERCIAL_ARCHIVE_API_KEY"),
		},
		Scheduler:    schedulerCfg,
		APIPort:      getEnvOrDefault("APP_PORT", "8080"),
		AppEnv:       getEnvOrDefault("APP_ENV", "development"),
		OTLPEndpoint: getEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		OTELEnabled:  os.Getenv("OTEL_ENABLED") == "true",
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
