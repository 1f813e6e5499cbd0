// Package weatherprovider defines the provider-facing contract (C3) for
// weather data: a forecast window around a planning date, and an archive
// window around a historical accident date. Two concrete providers
// implement Provider — openmeteo (public, always available) and
// commercialarchive (paid, archive-only, used for higher-fidelity historical
// reconstruction when configured) — composed through Fallback so a
// commercial outage degrades to the public provider rather than failing the
// whole prediction.
package weatherprovider

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
)

// Provider fetches weather windows for a coordinate.
type Provider interface {
	// ForecastWindow returns the daily samples for the 7 days surrounding
	// date (3 before, the day itself, 3 after), used when scoring a
	// planning date.
	ForecastWindow(ctx context.Context, coord riskmodel.Coordinate, date time.Time) (riskmodel.WeatherWindow, error)

	// ArchiveWindow returns the daily samples for the 7 days up to and
	// including date (days -6..0), used to reconstruct conditions around a
	// historical accident.
	ArchiveWindow(ctx context.Context, coord riskmodel.Coordinate, date time.Time) (riskmodel.WeatherWindow, error)

	// Name identifies the provider for logging and the ops status
	// endpoint.
	Name() string
}

// Fallback wraps a primary provider (typically the commercial archive,
// which has a deeper and more accurate historical record) and a secondary
// provider (the public forecaster, always available) so a primary failure
// degrades gracefully instead of failing the whole prediction.
//
// The secondary provider never receives the commercial API key: Fallback
// only ever calls primary.ArchiveWindow/ForecastWindow or
// secondary.ArchiveWindow/ForecastWindow directly, each already constructed
// with its own credentials — there is no code path through which one
// provider's configuration can leak into the other's request.
type Fallback struct {
	Primary   Provider
	Secondary Provider
	Logger    zerolog.Logger
}

// Name reports both providers' names joined as "primary+secondary"; it does
// not identify which provider answered a given call.
func (f Fallback) Name() string {
	return f.Primary.Name() + "+" + f.Secondary.Name()
}

// ArchiveWindow tries the primary provider first and falls back to the
// secondary on any error.
func (f Fallback) ArchiveWindow(ctx context.Context, coord riskmodel.Coordinate, date time.Time) (riskmodel.WeatherWindow, error) {
	w, err := f.Primary.ArchiveWindow(ctx, coord, date)
	if err == nil {
		return w, nil
	}
	f.Logger.Warn().Err(err).Str("provider", f.Primary.Name()).Msg("archive window fetch failed, falling back")
	return f.Secondary.ArchiveWindow(ctx, coord, date)
}

// ForecastWindow tries the primary provider first and falls back to the
// secondary on any error.
func (f Fallback) ForecastWindow(ctx context.Context, coord riskmodel.Coordinate, date time.Time) (riskmodel.WeatherWindow, error) {
	w, err := f.Primary.ForecastWindow(ctx, coord, date)
	if err == nil {
		return w, nil
	}
	f.Logger.Warn().Err(err).Str("provider", f.Primary.Name()).Msg("forecast window fetch failed, falling back")
	return f.Secondary.ForecastWindow(ctx, coord, date)
}
