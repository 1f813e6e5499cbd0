package kernel

import (
	"math"

	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
)

// Temporal returns the temporal decay weight for an accident that occurred
// daysAgo days before the prediction date, combined with a seasonal-match
// nudge.
//
// The base decay is a damped exponential rather than a pure exponential:
// w_base = 1 - IMPACT*(1 - (λ^daysAgo)^SHAPE). This keeps very recent
// accidents near 1.0 and lets the curve flatten instead of collapsing to 0
// for old accidents, matching the spec's "damped" behavior.
//
// accidentSeason and predictionSeason being equal applies a seasonal boost:
// w = w_base * (1 + SEASONAL_IMPACT*(BOOST-1)), so an accident from the same
// meteorological season as the date being scored is weighted up relative to
// an off-season one at the same age.
func (c Config) Temporal(daysAgo int, routeType riskmodel.RouteType, accidentSeason, predictionSeason riskmodel.Season) float64 {
	if daysAgo < 0 {
		daysAgo = 0
	}
	lambda := c.temporalLambda(routeType)
	decay := math.Pow(lambda, float64(daysAgo))
	base := 1 - c.TemporalImpact*(1-math.Pow(decay, c.TemporalShape))

	if accidentSeason == predictionSeason {
		base *= 1 + c.TemporalSeasonImpact*(c.TemporalSeasonBoost-1)
	}
	return base
}
