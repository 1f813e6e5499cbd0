package kernel

import "github.com/alpinerisk/alpinerisk/internal/riskmodel"

// RouteTypeCompat returns the asymmetric compatibility weight between the
// route being planned (planning) and the type of route an accident
// occurred on (accident). The matrix is intentionally asymmetric: an
// alpine-route planner should weight a sport-route accident fairly highly
// (alpine climbers' mistakes often look like sport-climbing mistakes), but
// a sport-route planner should weight an alpine accident low (the failure
// modes rarely transfer the other way). Missing pairs fall back to
// RouteTypeNeutral rather than 0, so an unmodeled route type still
// contributes some signal instead of being silently dropped.
func (c Config) RouteTypeCompat(planning, accident riskmodel.RouteType) float64 {
	if row, ok := c.RouteTypeMatrix[planning]; ok {
		if w, ok := row[accident]; ok {
			return w
		}
	}
	return c.RouteTypeNeutral
}
