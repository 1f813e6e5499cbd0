package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/alpinerisk/alpinerisk/internal/geo"
	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
)

// RouteSource streams every route the nightly job should score.
// internal/spatialstore.Store satisfies this.
type RouteSource interface {
	RoutesBulk(ctx context.Context, filter riskmodel.RouteFilter, each func(riskmodel.Route) error) error
}

// Scorer computes predictions, either fetching weather/climatology itself
// (Score) or accepting it prefetched for a whole coordinate bucket
// (ScoreWithWeather). internal/scorer.Scorer satisfies this.
type Scorer interface {
	Score(ctx context.Context, route riskmodel.Route, date time.Time) (riskmodel.RiskPrediction, error)
	ScoreWithWeather(ctx context.Context, route riskmodel.Route, date time.Time, planningWindow riskmodel.WeatherWindow, locStats riskmodel.LocationStats) (riskmodel.RiskPrediction, error)
}

// WeatherSource fetches the planning weather window for a coordinate.
// internal/weatherprovider.Provider and .Fallback satisfy this.
type WeatherSource interface {
	ForecastWindow(ctx context.Context, coord riskmodel.Coordinate, date time.Time) (riskmodel.WeatherWindow, error)
}

// LocationStatsSource fetches location climatology. internal/locationstats.Service
// satisfies this.
type LocationStatsSource interface {
	Get(ctx context.Context, coord riskmodel.Coordinate, elevationMeters float64, date time.Time) (riskmodel.LocationStats, error)
}

// PredictionWriter bulk-writes computed predictions at the bulk TTL.
// internal/resultcache.Client satisfies this.
type PredictionWriter interface {
	SetMany(ctx context.Context, preds []riskmodel.RiskPrediction, ttl time.Duration) error
}

// Job runs the nightly fan-out scoring pass over every route.
type Job struct {
	routes   RouteSource
	scorer   Scorer
	weather  WeatherSource
	locStats LocationStatsSource
	cache    PredictionWriter
	bulkTTL  time.Duration
	config   Config
	logger   zerolog.Logger
	metrics  *Metrics
}

// Metrics tracks cumulative nightly-run statistics, mirroring the
// teacher's refresh-job counters.
type Metrics struct {
	mu                sync.RWMutex
	TotalRuns         int64
	RoutesScored      int64
	RoutesFailed      int64
	LastRunAt         time.Time
	LastRunDuration   time.Duration
	LastRunRouteCount int
}

// NewJob constructs a Job. bulkTTL is the TTL predictions are written with
// (internal/resultcache.BulkPredictionTTL in production). weather and
// locStats are prefetched once per ~1km coordinate bucket rather than once
// per route, so a nightly run over the full route set issues one forecast
// and one LocationStats lookup per bucket instead of one per route.
func NewJob(routes RouteSource, scorer Scorer, weather WeatherSource, locStats LocationStatsSource, cache PredictionWriter, bulkTTL time.Duration, config Config, logger zerolog.Logger) *Job {
	return &Job{
		routes:   routes,
		scorer:   scorer,
		weather:  weather,
		locStats: locStats,
		cache:    cache,
		bulkTTL:  bulkTTL,
		config:   config,
		logger:   logger,
		metrics:  &Metrics{},
	}
}

// Result summarizes one Run.
type Result struct {
	StartTime   time.Time
	EndTime     time.Time
	Duration    time.Duration
	TotalRoutes int
	Successful  int
	Failed      int
	Errors      []RouteError
}

// RouteError records a single route's scoring failure.
type RouteError struct {
	RouteID string
	Error   string
}

// routeBucket groups routes that round to the same ~1km coordinate, so the
// forecast window and LocationStats for that coordinate are fetched once
// and reused across every route in the bucket.
type routeBucket struct {
	coord  riskmodel.Coordinate
	routes []riskmodel.Route
}

// Run enumerates every route matching filter, buckets them by rounded
// (~1km) coordinate, and scores each bucket with Concurrency workers: the
// forecast window and LocationStats for a bucket are fetched once and
// reused for every route inside it, rather than once per route, which is
// what keeps a ~170k-route nightly run to one forecast-provider call per
// bucket instead of one per route. Computed predictions are flushed to the
// cache in BatchSize-sized pipelined writes.
func (j *Job) Run(ctx context.Context, date time.Time, filter riskmodel.RouteFilter) *Result {
	startTime := time.Now()
	result := &Result{StartTime: startTime}

	var routes []riskmodel.Route
	if err := j.routes.RoutesBulk(ctx, filter, func(r riskmodel.Route) error {
		routes = append(routes, r)
		return nil
	}); err != nil {
		j.logger.Error().Err(err).Msg("scheduler: route enumeration failed")
		result.EndTime = time.Now()
		result.Duration = result.EndTime.Sub(startTime)
		return result
	}
	result.TotalRoutes = len(routes)

	buckets := bucketRoutes(routes)

	j.logger.Info().
		Int("total_routes", len(routes)).
		Int("buckets", len(buckets)).
		Int("concurrency", j.config.Concurrency).
		Time("date", date).
		Msg("scheduler: starting nightly fan-out")

	bucketsCh := make(chan routeBucket, len(buckets))
	for _, b := range buckets {
		bucketsCh <- b
	}
	close(bucketsCh)

	var mu sync.Mutex
	var batch []riskmodel.RiskPrediction

	concurrency := j.config.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range bucketsCh {
				preds, errs := j.scoreBucket(ctx, b, date)

				mu.Lock()
				result.Successful += len(preds)
				result.Failed += len(errs)
				result.Errors = append(result.Errors, errs...)
				batch = append(batch, preds...)
				var flush []riskmodel.RiskPrediction
				if len(batch) >= j.config.BatchSize {
					flush = batch
					batch = nil
				}
				mu.Unlock()

				if flush != nil {
					j.flush(ctx, flush)
				}
			}
		}()
	}
	wg.Wait()

	if len(batch) > 0 {
		j.flush(ctx, batch)
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(startTime)
	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("scheduler: nightly fan-out completed")

	return result
}

// bucketRoutes groups routes by their rounded-to-1km coordinate, preserving
// each route's original position within its bucket.
func bucketRoutes(routes []riskmodel.Route) []routeBucket {
	index := make(map[riskmodel.Coordinate]int)
	var buckets []routeBucket
	for _, r := range routes {
		key := riskmodel.Coordinate(geo.RoundTo1Km(geo.Coordinate(r.Coordinate)))
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, routeBucket{coord: key})
		}
		buckets[i].routes = append(buckets[i].routes, r)
	}
	return buckets
}

// scoreBucket prefetches the forecast window and LocationStats once for the
// bucket's coordinate, using the first route's elevation as representative
// of every route in the bucket, then scores each route against those
// shared inputs.
func (j *Job) scoreBucket(ctx context.Context, b routeBucket, date time.Time) ([]riskmodel.RiskPrediction, []RouteError) {
	bucketCtx := ctx
	if j.config.RouteTimeout > 0 {
		var cancel context.CancelFunc
		bucketCtx, cancel = context.WithTimeout(ctx, j.config.RouteTimeout)
		defer cancel()
	}

	planningWindow, err := j.weather.ForecastWindow(bucketCtx, b.coord, date)
	if err != nil {
		planningWindow = riskmodel.WeatherWindow{}
	}

	locStats, err := j.locStats.Get(bucketCtx, b.coord, routeElevationOrZero(b.routes[0]), date)
	if err != nil {
		locStats = riskmodel.LocationStats{Unavailable: true}
	}

	preds := make([]riskmodel.RiskPrediction, 0, len(b.routes))
	var errs []RouteError
	for _, route := range b.routes {
		pred, err := j.scorer.ScoreWithWeather(bucketCtx, route, date, planningWindow, locStats)
		if err != nil {
			errs = append(errs, RouteError{RouteID: route.ID, Error: err.Error()})
			continue
		}
		preds = append(preds, pred)
	}
	return preds, errs
}

func routeElevationOrZero(r riskmodel.Route) float64 {
	if r.Elevation == nil {
		return 0
	}
	return *r.Elevation
}

func (j *Job) flush(ctx context.Context, preds []riskmodel.RiskPrediction) {
	if err := j.cache.SetMany(ctx, preds, j.bulkTTL); err != nil {
		j.logger.Error().Err(err).Int("batch_size", len(preds)).Msg("scheduler: bulk cache write failed")
	}
}

func (j *Job) updateMetrics(result *Result) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.RoutesScored += int64(result.Successful)
	j.metrics.RoutesFailed += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.LastRunRouteCount = result.TotalRoutes
}

// Snapshot returns a copy of the current cumulative metrics.
func (j *Job) Snapshot() Metrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()
	return Metrics{
		TotalRuns:         j.metrics.TotalRuns,
		RoutesScored:      j.metrics.RoutesScored,
		RoutesFailed:      j.metrics.RoutesFailed,
		LastRunAt:         j.metrics.LastRunAt,
		LastRunDuration:   j.metrics.LastRunDuration,
		LastRunRouteCount: j.metrics.LastRunRouteCount,
	}
}
