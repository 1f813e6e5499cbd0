package kernel

import "github.com/alpinerisk/alpinerisk/internal/riskmodel"

// Severity returns the multiplicative weight for an accident's severity.
// SeverityUnknown defaults to the same weight as SeverityMinor (1.0) — an
// unrecorded severity is not evidence of a minor incident, but treating it
// as a neutral baseline keeps an unscored accident from silently dominating
// or vanishing from the top-K ranking (see DESIGN.md Open Question).
func (c Config) Severity(severity riskmodel.Severity) float64 {
	if w, ok := c.SeverityMultiplier[severity]; ok {
		return w
	}
	return c.SeverityMultiplier[riskmodel.SeverityUnknown]
}
