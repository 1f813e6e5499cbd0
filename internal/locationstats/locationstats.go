// Package locationstats derives the climatology (C4) used by the
// extreme-weather penalty in internal/kernel: the mean and standard
// deviation of each weather variable for a (rounded coordinate, elevation
// band, season, reference month) cell, built from several years of daily
// archive data and weighted toward samples from months close to the
// reference month.
package locationstats

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alpinerisk/alpinerisk/internal/geo"
	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
)

// Source supplies the raw daily history a Service aggregates into stats.
type Source interface {
	History(ctx context.Context, coord riskmodel.Coordinate, start, end time.Time) (riskmodel.WeatherWindow, error)
}

// Store is the cache a Service reads through. internal/resultcache
// implements this for both its keyspaces; Service only needs the
// single-key get/set shape.
type Store interface {
	Get(ctx context.Context, key string) (riskmodel.LocationStats, bool, error)
	Set(ctx context.Context, key string, stats riskmodel.LocationStats, ttl time.Duration) error
}

// Config tunes how climatology is computed and cached.
type Config struct {
	// YearsOfHistory is how far back History is asked to look.
	YearsOfHistory int
	// MonthDistanceDecayBase weights a sample at cyclical month-distance d
	// from the reference month by base^d. Samples more than 2 months from
	// the reference month are skipped, so 1.0 would weight the reference
	// month and its two neighbors on each side equally (not recommended);
	// values near 0.5-0.8 concentrate weight on the reference month.
	MonthDistanceDecayBase float64
	// StdDevFloor is the minimum standard deviation used in z-scoring,
	// avoiding divide-by-zero for a climatologically very stable variable.
	StdDevFloor float64
	// TTL is how long a successfully computed LocationStats is cached.
	TTL time.Duration
	// UnavailableTTL is the (much shorter) TTL used when the source
	// failed, so a provider outage doesn't get amplified into a 24-hour
	// blackout once the provider recovers.
	UnavailableTTL time.Duration
}

// DefaultConfig returns the climatology configuration from the spec: 5
// years of history, 24-hour success TTL, 10-minute failure TTL.
func DefaultConfig() Config {
	return Config{
		YearsOfHistory:         5,
		MonthDistanceDecayBase: 0.75,
		StdDevFloor:            0.5,
		TTL:                    24 * time.Hour,
		UnavailableTTL:         10 * time.Minute,
	}
}

// Service computes and caches LocationStats, coalescing concurrent
// requests for the same cell with singleflight so a cache-cold burst of
// map_bulk requests for the same area doesn't fan out into redundant
// multi-year history fetches.
type Service struct {
	source Source
	store  Store
	config Config
	group  singleflight.Group
}

// NewService constructs a Service.
func NewService(source Source, store Store, config Config) *Service {
	return &Service{source: source, store: store, config: config}
}

// Key formats the cache key for a climatology cell, matching the shape
// `stats:locstats:{lat2}:{lon2}:{eband}:{season}:{refmonth}`.
func Key(coord riskmodel.Coordinate, elevationBand int, season riskmodel.Season, refMonth int) string {
	rounded := geo.RoundTo1Km(geo.Coordinate{Lat: coord.Lat, Lon: coord.Lon})
	return fmt.Sprintf("stats:locstats:%.2f:%.2f:%d:%s:%d", rounded.Lat, rounded.Lon, elevationBand, season, refMonth)
}

// Get returns the climatology for coord/elevation at the season and month
// implied by date, computing and caching it on a miss. A source failure
// never returns an error: it returns an Unavailable LocationStats, cached
// briefly, so callers (the extreme-weather penalty) can treat it as "no
// signal" rather than failing the whole prediction.
func (s *Service) Get(ctx context.Context, coord riskmodel.Coordinate, elevationMeters float64, date time.Time) (riskmodel.LocationStats, error) {
	season := riskmodel.SeasonOf(date)
	refMonth := int(date.Month())
	elevationBand := riskmodel.ElevationBand(elevationMeters)
	key := Key(coord, elevationBand, season, refMonth)

	if stats, hit, err := s.store.Get(ctx, key); err == nil && hit {
		return stats, nil
	}

	result, err, _ := s.group.Do(key, func() (interface{}, error) {
		stats := s.compute(ctx, coord, refMonth)
		ttl := s.config.TTL
		if stats.Unavailable {
			ttl = s.config.UnavailableTTL
		}
		_ = s.store.Set(ctx, key, stats, ttl) // best-effort: a cache-write failure must not fail the read
		return stats, nil
	})
	if err != nil {
		return riskmodel.LocationStats{Unavailable: true, ComputedAt: time.Now()}, nil
	}
	return result.(riskmodel.LocationStats), nil
}

func (s *Service) compute(ctx context.Context, coord riskmodel.Coordinate, refMonth int) riskmodel.LocationStats {
	now := time.Now()
	start := now.AddDate(-s.config.YearsOfHistory, 0, 0)
	window, err := s.source.History(ctx, coord, start, now)
	if err != nil || len(window.Samples) == 0 {
		return riskmodel.LocationStats{Unavailable: true, ComputedAt: now}
	}

	var temps, precs, winds, viz, weights []float64
	for _, d := range window.Samples {
		dist := geo.CyclicalMonthDistance(int(d.Date.Month()), refMonth)
		if dist > 2 {
			continue // keep only the reference month and its near neighbors
		}
		w := weight(s.config.MonthDistanceDecayBase, dist)
		temps = append(temps, d.TemperatureMean)
		precs = append(precs, d.PrecipTotal)
		winds = append(winds, d.WindMean)
		viz = append(viz, d.VisibilityMean)
		weights = append(weights, w)
	}

	if len(temps) == 0 {
		return riskmodel.LocationStats{Unavailable: true, ComputedAt: now}
	}

	eps := s.config.StdDevFloor
	return riskmodel.LocationStats{
		TemperatureMean: geo.WeightedMean(temps, weights),
		TemperatureStd:  geo.WeightedStdDev(temps, weights, eps),
		PrecipMean:      geo.WeightedMean(precs, weights),
		PrecipStd:       geo.WeightedStdDev(precs, weights, eps),
		WindMean:        geo.WeightedMean(winds, weights),
		WindStd:         geo.WeightedStdDev(winds, weights, eps),
		VisibilityMean:  geo.WeightedMean(viz, weights),
		VisibilityStd:   geo.WeightedStdDev(viz, weights, eps),
		ComputedAt:      now,
	}
}

func weight(base float64, monthDistance int) float64 {
	w := 1.0
	for i := 0; i < monthDistance; i++ {
		w *= base
	}
	return w
}
