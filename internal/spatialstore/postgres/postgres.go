// Package postgres is the pgx-backed implementation of spatialstore.Store.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alpinerisk/alpinerisk/internal/geo"
	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
	"github.com/alpinerisk/alpinerisk/internal/spatialstore"
)

// Store is a PostgreSQL implementation of spatialstore.Store.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store bound to pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// boundingBoxDegrees converts a radius in kilometers to a generous lat/lon
// bounding box around center, used as a cheap index-friendly pre-filter
// before the exact haversine distance check. 1 degree of latitude is
// ~111km everywhere; longitude shrinks with latitude, so the box is widened
// by 1/cos(lat) to stay a superset of the true circle.
func boundingBoxDegrees(center riskmodel.Coordinate, radiusKm float64) (minLat, maxLat, minLon, maxLon float64) {
	const kmPerDegreeLat = 111.0
	latDelta := radiusKm / kmPerDegreeLat
	lonDelta := latDelta
	if cos := math.Cos(center.Lat * math.Pi / 180); cos > 0.01 {
		lonDelta = latDelta / cos
	}
	return center.Lat - latDelta, center.Lat + latDelta, center.Lon - lonDelta, center.Lon + lonDelta
}

// AccidentsWithin pre-filters with a lat/lon bounding box in SQL (cheap,
// index-friendly) and then applies the exact haversine distance check in
// Go, the same two-phase approach woulder's heat-map query uses for its
// bounding-box filter, generalized from an equality box to a true radius.
func (s *Store) AccidentsWithin(ctx context.Context, center riskmodel.Coordinate, radiusKm float64, since *time.Time) ([]riskmodel.Accident, error) {
	minLat, maxLat, minLon, maxLon := boundingBoxDegrees(center, radiusKm)

	query := `
		SELECT id, occurred_at, latitude, longitude, elevation_m, activity, severity
		FROM accidents
		WHERE latitude BETWEEN $1 AND $2
			AND longitude BETWEEN $3 AND $4
			AND ($5::timestamptz IS NULL OR occurred_at >= $5)
	`

	var sinceParam interface{}
	if since != nil {
		sinceParam = *since
	}

	rows, err := s.pool.Query(ctx, query, minLat, maxLat, minLon, maxLon, sinceParam)
	if err != nil {
		return nil, fmt.Errorf("query accidents: %w", err)
	}
	defer rows.Close()

	var out []riskmodel.Accident
	for rows.Next() {
		var a riskmodel.Accident
		var elevation *float64
		var severity *string
		if err := rows.Scan(&a.ID, &a.Date, &a.Coordinate.Lat, &a.Coordinate.Lon, &elevation, &a.Activity, &severity); err != nil {
			return nil, fmt.Errorf("scan accident: %w", err)
		}
		a.Elevation = elevation
		a.Severity = riskmodel.SeverityUnknown
		if severity != nil {
			a.Severity = riskmodel.Severity(*severity)
		}

		dist := geo.HaversineKm(geo.Coordinate(center), geo.Coordinate(a.Coordinate))
		if dist <= radiusKm {
			out = append(out, a)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accidents: %w", err)
	}
	return out, nil
}

// WeatherWindowsFor bulk-fetches archived weather windows keyed by
// accident ID, in the shape internal/scorer needs to attach a window to
// each candidate accident without an N+1 query per accident.
func (s *Store) WeatherWindowsFor(ctx context.Context, accidentIDs []string) (map[string]riskmodel.WeatherWindow, error) {
	if len(accidentIDs) == 0 {
		return map[string]riskmodel.WeatherWindow{}, nil
	}

	query := `
		SELECT accident_id, day_offset, temperature_mean, temperature_min, temperature_max,
			precip_total, wind_mean, visibility_mean, cloud_cover_mean
		FROM accident_weather_windows
		WHERE accident_id = ANY($1)
		ORDER BY accident_id, day_offset
	`

	rows, err := s.pool.Query(ctx, query, accidentIDs)
	if err != nil {
		return nil, fmt.Errorf("query weather windows: %w", err)
	}
	defer rows.Close()

	result := make(map[string]riskmodel.WeatherWindow, len(accidentIDs))
	for rows.Next() {
		var accidentID string
		var dayOffset int
		var sample riskmodel.DailySample
		if err := rows.Scan(&accidentID, &dayOffset,
			&sample.TemperatureMean, &sample.TemperatureMin, &sample.TemperatureMax,
			&sample.PrecipTotal, &sample.WindMean, &sample.VisibilityMean, &sample.CloudCoverMean,
		); err != nil {
			return nil, fmt.Errorf("scan weather window row: %w", err)
		}
		w := result[accidentID]
		w.Samples = append(w.Samples, sample)
		result[accidentID] = w
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate weather window rows: %w", err)
	}
	return result, nil
}

// RoutesBulk streams routes matching filter, applying the bounding-box
// filter in SQL and the season filter (route type implies a climbing
// season) in Go, since season is a derived concept rather than a stored
// column.
func (s *Store) RoutesBulk(ctx context.Context, filter riskmodel.RouteFilter, each func(riskmodel.Route) error) error {
	query := `
		SELECT id, name, latitude, longitude, elevation_m, route_type, area_id
		FROM routes
		WHERE ($1::float IS NULL OR (latitude BETWEEN $1 AND $2 AND longitude BETWEEN $3 AND $4))
	`

	var minLat, maxLat, minLon, maxLon interface{}
	if filter.BoundingBox != nil {
		minLat, maxLat = filter.BoundingBox.MinLat, filter.BoundingBox.MaxLat
		minLon, maxLon = filter.BoundingBox.MinLon, filter.BoundingBox.MaxLon
	}

	rows, err := s.pool.Query(ctx, query, minLat, maxLat, minLon, maxLon)
	if err != nil {
		return fmt.Errorf("query routes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r riskmodel.Route
		var elevation *float64
		if err := rows.Scan(&r.ID, &r.Name, &r.Coordinate.Lat, &r.Coordinate.Lon, &elevation, &r.Type, &r.AreaID); err != nil {
			return fmt.Errorf("scan route: %w", err)
		}
		r.Elevation = elevation

		if !matchesSeason(r.Type, filter.Season) {
			continue
		}
		if err := each(r); err != nil {
			return err
		}
	}
	return rows.Err()
}

// RouteByID fetches a single route for the predict_one on-demand path,
// returning spatialstore.ErrRouteNotFound when no row matches.
func (s *Store) RouteByID(ctx context.Context, id string) (riskmodel.Route, error) {
	query := `
		SELECT id, name, latitude, longitude, elevation_m, route_type, area_id
		FROM routes
		WHERE id = $1
	`

	var r riskmodel.Route
	var elevation *float64
	err := s.pool.QueryRow(ctx, query, id).Scan(&r.ID, &r.Name, &r.Coordinate.Lat, &r.Coordinate.Lon, &elevation, &r.Type, &r.AreaID)
	if errors.Is(err, pgx.ErrNoRows) {
		return riskmodel.Route{}, spatialstore.ErrRouteNotFound
	}
	if err != nil {
		return riskmodel.Route{}, fmt.Errorf("query route %s: %w", id, err)
	}
	r.Elevation = elevation
	return r, nil
}

func matchesSeason(routeType riskmodel.RouteType, season string) bool {
	if season == "" || season == "any" {
		return true
	}
	switch season {
	case "ice":
		return routeType == riskmodel.RouteTypeIce || routeType == riskmodel.RouteTypeMixed
	case "rock":
		return routeType == riskmodel.RouteTypeSport || routeType == riskmodel.RouteTypeTrad || routeType == riskmodel.RouteTypeAid
	default:
		return true
	}
}
