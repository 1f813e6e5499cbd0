// Package query is the read-facing façade (C10) the API handlers call:
// predict_one (cache-through on-demand scoring), map_bulk (cache-only bulk
// read, no compute-on-miss), and recompute (operator-triggered nightly
// recompute for a given date, published to the scheduler).
package query

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/alpinerisk/alpinerisk/internal/resultcache"
	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
)

// PredictionCache is the subset of resultcache.Client the service depends
// on, narrowed to an interface so tests run against an in-memory fake
// instead of a live redis instance.
type PredictionCache interface {
	GetOne(ctx context.Context, routeID string, date time.Time) (riskmodel.RiskPrediction, bool, error)
	SetOne(ctx context.Context, pred riskmodel.RiskPrediction, ttl time.Duration) error
	GetMany(ctx context.Context, keys []resultcache.RouteDate) (map[resultcache.RouteDate]riskmodel.RiskPrediction, error)
}

// RouteSource resolves a single route by ID for the predict_one compute
// path. internal/spatialstore.Store satisfies this.
type RouteSource interface {
	RouteByID(ctx context.Context, id string) (riskmodel.Route, error)
}

// Scorer computes a fresh RiskPrediction. internal/scorer.Scorer satisfies
// this.
type Scorer interface {
	Score(ctx context.Context, route riskmodel.Route, date time.Time) (riskmodel.RiskPrediction, error)
}

// RecomputePublisher notifies the scheduler that a date's bulk predictions
// should be recomputed out of band. internal/scheduler's pubsub-backed
// trigger satisfies this.
type RecomputePublisher interface {
	PublishRecompute(ctx context.Context, date time.Time) error
}

// Service implements predict_one, map_bulk, and recompute against an
// injected cache, route source, scorer, and recompute publisher, mirroring
// the dependency-injected service-over-interfaces shape used everywhere
// else in this module.
type Service struct {
	cache     PredictionCache
	routes    RouteSource
	scorer    Scorer
	publisher RecomputePublisher
	logger    zerolog.Logger
}

// New constructs a Service.
func New(cache PredictionCache, routes RouteSource, scorer Scorer, publisher RecomputePublisher, logger zerolog.Logger) *Service {
	return &Service{cache: cache, routes: routes, scorer: scorer, publisher: publisher, logger: logger}
}

// PredictOne returns the cached prediction for (routeID, date) if present,
// otherwise computes it on demand, caches it at the shorter on-demand TTL,
// and returns it.
func (s *Service) PredictOne(ctx context.Context, routeID string, date time.Time) (riskmodel.RiskPrediction, error) {
	if pred, ok, err := s.cache.GetOne(ctx, routeID, date); err != nil {
		s.logger.Warn().Err(err).Str("route_id", routeID).Msg("prediction cache read failed, falling through to compute")
	} else if ok {
		return pred, nil
	}

	route, err := s.routes.RouteByID(ctx, routeID)
	if err != nil {
		return riskmodel.RiskPrediction{}, fmt.Errorf("query: resolve route %s: %w", routeID, err)
	}

	pred, err := s.scorer.Score(ctx, route, date)
	if err != nil {
		return riskmodel.RiskPrediction{}, fmt.Errorf("query: score route %s: %w", routeID, err)
	}

	if err := s.cache.SetOne(ctx, pred, resultcache.OnDemandPredictionTTL); err != nil {
		s.logger.Warn().Err(err).Str("route_id", routeID).Msg("prediction cache write failed")
	}
	return pred, nil
}

// MapBulk returns whatever subset of the requested (route, date) pairs is
// currently cached. It never computes on a miss — map_bulk is meant to
// render the nightly scheduler's output, not drive on-demand compute for a
// potentially large route set.
func (s *Service) MapBulk(ctx context.Context, keys []resultcache.RouteDate) (map[resultcache.RouteDate]riskmodel.RiskPrediction, error) {
	preds, err := s.cache.GetMany(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("query: bulk read: %w", err)
	}
	return preds, nil
}

// Recompute publishes an operator-triggered recompute request for date.
// The scheduler consumes it and re-runs its nightly fan-out for that date
// out of band; Recompute itself does not block on the result.
func (s *Service) Recompute(ctx context.Context, date time.Time) error {
	if err := s.publisher.PublishRecompute(ctx, date); err != nil {
		return fmt.Errorf("query: publish recompute for %s: %w", date.Format("2006-01-02"), err)
	}
	s.logger.Info().Time("date", date).Msg("recompute requested")
	return nil
}
