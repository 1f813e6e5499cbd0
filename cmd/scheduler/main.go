// Package main provides the entrypoint for the AlpineRisk scheduler (C9):
// a nightly cron fan-out over every route plus a Pub/Sub listener for
// operator-triggered on-demand recomputes.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/alpinerisk/alpinerisk/internal/config"
	"github.com/alpinerisk/alpinerisk/internal/confidence"
	"github.com/alpinerisk/alpinerisk/internal/database"
	"github.com/alpinerisk/alpinerisk/internal/kernel"
	"github.com/alpinerisk/alpinerisk/internal/locationstats"
	"github.com/alpinerisk/alpinerisk/internal/resultcache"
	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
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
	const serviceName = "alpinerisk-scheduler"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().Str("build_time", BuildTime).Msg("starting alpinerisk scheduler")

	cfg := config.FromEnv()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer rdb.Close()

	store := postgres.New(pool)
	cache := resultcache.New(rdb)

	primary := openmeteo.NewClient()
	var weatherPrimary weatherprovider.Provider = primary
	var weatherSecondary weatherprovider.Provider = primary
	if cfg.Weather.CommercialArchiveAPIKey != "" {
		weatherPrimary = commercialarchive.NewClient(cfg.Weather.CommercialArchiveBaseURL, cfg.Weather.CommercialArchiveAPIKey)
		weatherSecondary = primary
	}
	weather := weatherprovider.Fallback{Primary: weatherPrimary, Secondary: weatherSecondary, Logger: log}

	locStats := locationstats.NewService(primary, cache, locationstats.DefaultConfig())
	riskScorer := scorer.New(store, weather, locStats, kernel.DefaultConfig(), confidence.DefaultConfig(), scorer.DefaultConfig())

	job := scheduler.NewJob(store, riskScorer, weather, locStats, cache, resultcache.BulkPredictionTTL, cfg.Scheduler, log)

	filter := riskmodel.RouteFilter{}

	cronRunner, err := scheduler.NewCronRunner(job, cfg.Scheduler.CronSpec, filter, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build cron runner")
	}
	cronRunner.Start()
	defer cronRunner.Stop(context.Background())

	var psClient *pubsub.Client
	if cfg.Scheduler.ProjectID != "" {
		psClient, err = pubsub.NewClient(ctx, cfg.Scheduler.ProjectID)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to create pubsub client")
		}
		defer psClient.Close()

		handler := scheduler.NewPubSubHandler(ctx, psClient, job, filter, cfg.Scheduler, log)
		go func() {
			if err := handler.Start(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("pubsub recompute handler stopped unexpectedly")
			}
		}()
	} else {
		log.Warn().Msg("GCP_PROJECT_ID not set, operator recompute triggers will not be processed")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down scheduler")
	cancel()
}
