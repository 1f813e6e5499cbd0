// Package spatialstore defines the historical-data access contract (C2):
// spatial radius queries over accidents, bulk weather-window lookup, and
// filtered route enumeration. internal/spatialstore/postgres is the
// production implementation; scorer and scheduler tests use an in-memory
// fake built directly against this interface.
package spatialstore

import (
	"context"
	"errors"
	"time"

	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
)

// Store is the read interface the scoring core depends on. It never
// mutates historical data — accidents and routes are ingested out of band.
type Store interface {
	// AccidentsWithin returns every accident within radiusKm of center,
	// optionally restricted to accidents on or after since.
	AccidentsWithin(ctx context.Context, center riskmodel.Coordinate, radiusKm float64, since *time.Time) ([]riskmodel.Accident, error)

	// WeatherWindowsFor bulk-fetches the archive weather window for each
	// given accident ID, keyed by accident ID. Accidents with no stored
	// window are simply absent from the result, not an error.
	WeatherWindowsFor(ctx context.Context, accidentIDs []string) (map[string]riskmodel.WeatherWindow, error)

	// RoutesBulk streams every route matching filter to the given
	// callback. The callback's error aborts enumeration and is returned
	// to the caller unwrapped except for context.
	RoutesBulk(ctx context.Context, filter riskmodel.RouteFilter, each func(riskmodel.Route) error) error

	// RouteByID fetches a single route for the on-demand predict_one path.
	RouteByID(ctx context.Context, id string) (riskmodel.Route, error)
}

// ErrRouteNotFound is returned by RouteByID when no route matches id.
var ErrRouteNotFound = errors.New("spatialstore: route not found")
