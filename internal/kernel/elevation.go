package kernel

import (
	"math"

	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
)

// ElevationNeutral is the weight used when either the route's or the
// accident's elevation is unknown — elevation gives no signal, so it should
// neither reward nor penalize the accident's contribution.
const ElevationNeutral = 1.0

// Elevation returns the asymmetric elevation-decay weight between a route
// at routeElevation and an accident at accidentElevation (meters). The
// decay constant differs depending on whether the accident sits above or
// below the route: ElevationDecayUp applies to an accident above the route
// and ElevationDecayDown to one below it. ElevationDecayDown is typically
// larger (slower decay), so an accident below the route keeps more weight
// than one the same height above it (alpine: 800m up, 1200m down).
func (c Config) Elevation(routeElevation, accidentElevation *float64, routeType riskmodel.RouteType) float64 {
	if routeElevation == nil || accidentElevation == nil {
		return ElevationNeutral
	}
	delta := *accidentElevation - *routeElevation
	accidentAbove := delta > 0
	decay := c.elevationDecay(routeType, accidentAbove)
	return math.Exp(-math.Abs(delta) / decay)
}
