// Package main provides the entrypoint for the AlpineRisk query API
// server, exposing predict_one, map_bulk, and recompute (C10) over HTTP.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/alpinerisk/alpinerisk/internal/api"
	"github.com/alpinerisk/alpinerisk/internal/api/middleware"
	"github.com/alpinerisk/alpinerisk/internal/config"
	"github.com/alpinerisk/alpinerisk/internal/confidence"
	"github.com/alpinerisk/alpinerisk/internal/database"
	"github.com/alpinerisk/alpinerisk/internal/kernel"
	"github.com/alpinerisk/alpinerisk/internal/locationstats"
	"github.com/alpinerisk/alpinerisk/internal/query"
	"github.com/alpinerisk/alpinerisk/internal/resultcache"
	"github.com/alpinerisk/alpinerisk/internal/scheduler"
	"github.com/alpinerisk/alpinerisk/internal/scorer"
	"github.com/alpinerisk/alpinerisk/internal/spatialstore/postgres"
	"github.com/alpinerisk/alpinerisk/internal/telemetry"
	"github.com/alpinerisk/alpinerisk/internal/weatherprovider"
	"github.com/alpinerisk/alpinerisk/internal/weatherprovider/commercialarchive"
	"github.com/alpinerisk/alpinerisk/internal/weatherprovider/openmeteo"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "alpinerisk-api"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().Str("build_time", BuildTime).Msg("starting alpinerisk api")

	cfg := config.FromEnv()

	ctx := context.Background()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    serviceName,
		ServiceVersion: Version,
		Environment:    cfg.AppEnv,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		Enabled:        cfg.OTELEnabled,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	metrics, err := middleware.NewMetrics()
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize metrics")
		os.Exit(1)
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	log.Info().
		Str("host", cfg.Database.Host).
		Int("port", cfg.Database.Port).
		Str("database", cfg.Database.Database).
		Msg("database connected")

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()
	log.Info().Str("addr", cfg.Redis.Addr).Msg("redis connected")

	store := postgres.New(pool)
	cache := resultcache.New(rdb)

	primary := openmeteo.NewClient()
	var weatherPrimary weatherprovider.Provider = primary
	var weatherSecondary weatherprovider.Provider = primary
	if cfg.Weather.CommercialArchiveAPIKey != "" {
		weatherPrimary = commercialarchive.NewClient(cfg.Weather.CommercialArchiveBaseURL, cfg.Weather.CommercialArchiveAPIKey)
		weatherSecondary = primary
		log.Info().Msg("commercial archive provider configured, openmeteo as fallback")
	} else {
		log.Warn().Msg("commercial archive not configured, using openmeteo for both forecast and archive")
	}
	weather := weatherprovider.Fallback{Primary: weatherPrimary, Secondary: weatherSecondary, Logger: log}

	locStats := locationstats.NewService(primary, cache, locationstats.DefaultConfig())

	riskScorer := scorer.New(store, weather, locStats, kernel.DefaultConfig(), confidence.DefaultConfig(), scorer.DefaultConfig())

	var recomputePublisher query.RecomputePublisher = nullPublisher{}
	if cfg.Scheduler.ProjectID != "" {
		psClient, err := pubsub.NewClient(ctx, cfg.Scheduler.ProjectID)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub client")
		}
		defer psClient.Close()
		recomputePublisher = scheduler.NewPublisher(ctx, psClient, cfg.Scheduler)
		log.Info().Str("topic", cfg.Scheduler.RecomputeTopic).Msg("recompute publisher configured")
	} else {
		log.Warn().Msg("GCP_PROJECT_ID not set, recompute requests will be accepted but not delivered")
	}

	querySvc := query.New(cache, store, riskScorer, recomputePublisher, log)

	router := api.NewRouter(api.RouterConfig{
		Version:      Version,
		BuildTime:    BuildTime,
		Logger:       log,
		ServiceName:  serviceName,
		Metrics:      metrics,
		QueryService: querySvc,
	})

	server := &http.Server{
		Addr:         ":" + cfg.APIPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
		os.Exit(1)
	}

	log.Info().Msg("server stopped")
}

// nullPublisher is used when the API server is deployed without a
// configured Pub/Sub project: recompute requests are accepted and logged
// but not delivered anywhere. Production deployments set GCP_PROJECT_ID
// and wire a real scheduler.Publisher instead (see cmd/scheduler).
type nullPublisher struct{}

func (nullPublisher) PublishRecompute(_ context.Context, _ time.Time) error {
	return nil
}
