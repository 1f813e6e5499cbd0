// Package kernel implements the weight kernels of the risk-scoring engine
// (C5): spatial Gaussian, damped-exponential temporal decay, asymmetric
// route-type compatibility, severity multiplier, asymmetric elevation
// decay, and weather-pattern similarity. Each kernel is a pure function of
// its inputs and the process-wide Config; none suspend on I/O and none
// raise errors for statistical edge cases — every edge case resolves to a
// defined neutral value, per §7 of the spec.
package kernel

import "github.com/alpinerisk/alpinerisk/internal/riskmodel"

// Config holds every tunable constant the kernels use. It is loaded once at
// startup (see internal/config) and treated as immutable for the process
// lifetime — spec.md §5 requires this explicitly for weights, bandwidths,
// decay constants, and the normalization constant K.
type Config struct {
	// SpatialBandwidthKm maps route type to the spatial Gaussian bandwidth b.
	SpatialBandwidthKm map[riskmodel.RouteType]float64

	// TemporalDecayLambda maps route type to the per-day damped-exponential
	// decay constant λ.
	TemporalDecayLambda map[riskmodel.RouteType]float64
	TemporalImpact       float64 // IMPACT in w_t_base = 1 - IMPACT*(1-base^SHAPE), base = λ^daysAgo
	TemporalShape        float64 // SHAPE
	TemporalSeasonBoost  float64 // BOOST
	TemporalSeasonImpact float64 // SEASONAL_IMPACT

	// RouteTypeMatrix[planning][accident] is the asymmetric compatibility
	// weight. Missing pairs fall back to RouteTypeNeutral.
	RouteTypeMatrix  map[riskmodel.RouteType]map[riskmodel.RouteType]float64
	RouteTypeNeutral float64

	// SeverityMultiplier maps severity to its multiplicative weight.
	SeverityMultiplier map[riskmodel.Severity]float64

	// ElevationDecayUp/Down map route type to the asymmetric elevation
	// decay constant (meters) used when the accident is above (Up) or
	// below (Down) the route.
	ElevationDecayUp   map[riskmodel.RouteType]float64
	ElevationDecayDown map[riskmodel.RouteType]float64

	// WeatherDayDecay is the within-window day-recency decay (the spec's
	// "pending backtesting" 0.85 constant — kept configurable, not
	// hardcoded, per §9).
	WeatherDayDecay float64

	// ExtremeZThreshold is the z-score above which a weather variable
	// starts contributing to the extreme-weather penalty (2.0 in the
	// normative spec).
	ExtremeZThreshold float64
	// ExtremePenaltySlope is the per-unit-z penalty slope for wind,
	// precipitation, and temperature (0.2 in the normative spec).
	ExtremePenaltySlope float64
	// ExtremeVisibilitySlope is the separate, larger slope used for visibility,
	// since visibility penalizes low values rather than high ones (0.25).
	ExtremeVisibilitySlope float64
}

const defaultBandwidth = 50.0
const defaultLambda = 0.9996

// DefaultConfig returns the kernel configuration with every default from
// §4.4 of the spec.
func DefaultConfig() Config {
	return Config{
		SpatialBandwidthKm: map[riskmodel.RouteType]float64{
			riskmodel.RouteTypeAlpine: 75,
			riskmodel.RouteTypeMixed:  60,
			riskmodel.RouteTypeIce:    50,
			riskmodel.RouteTypeTrad:   40,
			riskmodel.RouteTypeAid:    30,
			riskmodel.RouteTypeSport:  25,
		},
		TemporalDecayLambda: map[riskmodel.RouteType]float64{
			riskmodel.RouteTypeAlpine: 0.9998,
			riskmodel.RouteTypeIce:    0.9997,
			riskmodel.RouteTypeMixed:  0.9997,
			riskmodel.RouteTypeTrad:   0.9995,
			riskmodel.RouteTypeAid:    0.9995,
			riskmodel.RouteTypeSport:  0.999,
		},
		TemporalImpact:       0.35,
		TemporalShape:        1.5,
		TemporalSeasonBoost:  1.5,
		TemporalSeasonImpact: 0.10,

		RouteTypeMatrix: map[riskmodel.RouteType]map[riskmodel.RouteType]float64{
			riskmodel.RouteTypeSport: {
				riskmodel.RouteTypeSport:  1.0,
				riskmodel.RouteTypeTrad:   0.7,
				riskmodel.RouteTypeAlpine: 0.3,
			},
			riskmodel.RouteTypeTrad: {
				riskmodel.RouteTypeSport:  0.6,
				riskmodel.RouteTypeTrad:   1.0,
				riskmodel.RouteTypeAlpine: 0.6,
			},
			riskmodel.RouteTypeAlpine: {
				riskmodel.RouteTypeSport:  0.9,
				riskmodel.RouteTypeTrad:   0.8,
				riskmodel.RouteTypeAlpine: 1.0,
			},
		},
		RouteTypeNeutral: 0.5,

		SeverityMultiplier: map[riskmodel.Severity]float64{
			riskmodel.SeverityFatal:   1.3,
			riskmodel.SeveritySerious: 1.1,
			riskmodel.SeverityMinor:   1.0,
			riskmodel.SeverityUnknown: 1.0,
		},

		ElevationDecayUp: map[riskmodel.RouteType]float64{
			riskmodel.RouteTypeAlpine: 800,
		},
		ElevationDecayDown: map[riskmodel.RouteType]float64{
			riskmodel.RouteTypeAlpine: 1200,
		},

		WeatherDayDecay:        0.85,
		ExtremeZThreshold:      2.0,
		ExtremePenaltySlope:    0.2,
		ExtremeVisibilitySlope: 0.25,
	}
}

func (c Config) spatialBandwidth(rt riskmodel.RouteType) float64 {
	if b, ok := c.SpatialBandwidthKm[rt]; ok {
		return b
	}
	return defaultBandwidth
}

func (c Config) temporalLambda(rt riskmodel.RouteType) float64 {
	if l, ok := c.TemporalDecayLambda[rt]; ok {
		return l
	}
	return defaultLambda
}

func (c Config) elevationDecay(rt riskmodel.RouteType, accidentAboveRoute bool) float64 {
	if accidentAboveRoute {
		if d, ok := c.ElevationDecayUp[rt]; ok {
			return d
		}
		return 800
	}
	if d, ok := c.ElevationDecayDown[rt]; ok {
		return d
	}
	return 1200
}
