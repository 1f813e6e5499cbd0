package kernel

import (
	"math"

	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
)

// Spatial returns the Gaussian spatial weight for an accident distanceKm
// away from the route being scored, using the route-type-specific
// bandwidth b: w = exp(-distanceKm^2 / (2*b^2)).
func (c Config) Spatial(distanceKm float64, routeType riskmodel.RouteType) float64 {
	b := c.spatialBandwidth(routeType)
	return math.Exp(-(distanceKm * distanceKm) / (2 * b * b))
}
