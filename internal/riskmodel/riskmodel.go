// Package riskmodel defines the domain types shared across the risk-scoring
// engine: accidents, routes, weather windows, location statistics, and the
// cached prediction result. These types are read-only to the scoring core
// except for RiskPrediction and LocationStats, which the core creates.
package riskmodel

import (
	"time"
)

// Severity classifies the outcome of an accident.
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeveritySerious Severity = "serious"
	SeverityMinor   Severity = "minor"
	SeverityUnknown Severity = "unknown"
)

// RouteType classifies the style of climbing a route supports.
type RouteType string

const (
	RouteTypeAlpine RouteType = "alpine"
	RouteTypeTrad   RouteType = "trad"
	RouteTypeSport  RouteType = "sport"
	RouteTypeIce    RouteType = "ice"
	RouteTypeMixed  RouteType = "mixed"
	RouteTypeAid    RouteType = "aid"
	RouteTypeOther  RouteType = "other"
)

// Coordinate is a WGS84 lat/lon pair in decimal degrees.
type Coordinate struct {
	Lat float64
	Lon float64
}

// Accident is an immutable historical climbing incident record.
//
// Coordinate and Date are required for the accident to participate in
// scoring; a missing Severity is represented as SeverityUnknown, not as an
// error — §3 of the spec treats "unknown" as a first-class value (18.5% of
// real records), not an input defect.
type Accident struct {
	ID         string
	Date       time.Time
	Coordinate Coordinate
	Elevation  *float64 // meters; nil if unknown
	Activity   string
	Severity   Severity
}

// HasElevation reports whether the accident's elevation is known.
func (a Accident) HasElevation() bool {
	return a.Elevation != nil
}

// DailySample is one day of weather observation or forecast.
type DailySample struct {
	Date            time.Time
	TemperatureMean float64 // Celsius
	TemperatureMin  float64
	TemperatureMax  float64
	PrecipTotal     float64 // mm
	WindMean        float64 // m/s
	VisibilityMean  float64 // km
	CloudCoverMean  float64 // percent
}

// IsFreezeThaw reports whether the day's min/max straddles 0°C — a proxy
// for rockfall/ice-weakening conditions (the "freeze-thaw day" concept).
func (d DailySample) IsFreezeThaw() bool {
	return d.TemperatureMin <= 0 && d.TemperatureMax >= 0
}

// WeatherWindow is an ordered sequence of daily samples, either aligned to
// an accident (days −6…0) or to a planning date (days −3…+3 or −6…0,
// depending on configuration). Both alignments share this schema.
type WeatherWindow struct {
	Samples []DailySample
}

// Usable reports whether the window has enough days to contribute to
// scoring. Fewer than 3 days means the accident must be treated with a
// neutral weather weight, or excluded, per policy (see kernel package).
func (w WeatherWindow) Usable() bool {
	return len(w.Samples) >= 3
}

// Truncated returns the first n samples, or all samples if there are fewer
// than n. Used to align a forecast window and an accident window to their
// common length before computing pattern similarity.
func (w WeatherWindow) Truncated(n int) []DailySample {
	if n > len(w.Samples) {
		n = len(w.Samples)
	}
	return w.Samples[:n]
}

// Route is a named climbable feature.
type Route struct {
	ID         string
	Name       string
	Coordinate Coordinate
	Elevation  *float64
	Type       RouteType
	AreaID     string
}

// HasElevation reports whether the route's elevation is known.
func (r Route) HasElevation() bool {
	return r.Elevation != nil
}

// ContributionFactor is the per-kernel breakdown for one accident's
// contribution to a RiskPrediction, retained for the top-K explanation.
type ContributionFactor struct {
	AccidentID    string
	Influence     float64
	Spatial       float64
	Temporal      float64
	Weather       float64
	RouteType     float64
	Severity      float64
	Elevation     float64
	DistanceKm    float64
	DaysAgo       int
}

// RiskPrediction is the result of scoring one (route, date) pair: the
// normalized risk score, the confidence in that score, the top
// contributing accidents, and when the prediction was computed.
type RiskPrediction struct {
	RouteID       string
	Date          time.Time
	Risk          float64
	Confidence    float64
	Contributions []ContributionFactor
	ComputedAt    time.Time
}

// ConfidenceBand maps a numeric confidence to a UI-facing label, per the
// bands in §4.6 of the spec.
func ConfidenceBand(confidence float64) string {
	switch {
	case confidence >= 0.75:
		return "Very High"
	case confidence >= 0.55:
		return "High"
	case confidence >= 0.35:
		return "Moderate"
	default:
		return "Low"
	}
}

// Season is a Northern-Hemisphere meteorological season.
type Season string

const (
	SeasonDJF Season = "DJF" // winter
	SeasonMAM Season = "MAM" // spring
	SeasonJJA Season = "JJA" // summer
	SeasonSON Season = "SON" // autumn
)

// SeasonOf returns the meteorological season for a date (Northern
// Hemisphere convention: Dec/Jan/Feb = winter, and so on).
func SeasonOf(t time.Time) Season {
	switch t.Month() {
	case time.December, time.January, time.February:
		return SeasonDJF
	case time.March, time.April, time.May:
		return SeasonMAM
	case time.June, time.July, time.August:
		return SeasonJJA
	default:
		return SeasonSON
	}
}

// ElevationBand quantizes an elevation in meters into a coarse band used as
// part of the LocationStats cache key.
func ElevationBand(elevationMeters float64) int {
	const bandWidth = 300.0
	return int(elevationMeters / bandWidth)
}

// LocationStats bundles the mean/std of each weather variable for a
// (rounded coordinate, elevation band, season, reference month), derived
// from ~5 years of daily archive data.
type LocationStats struct {
	TemperatureMean, TemperatureStd float64
	PrecipMean, PrecipStd           float64
	WindMean, WindStd               float64
	VisibilityMean, VisibilityStd   float64
	Unavailable                     bool // sentinel: provider failed, cached briefly
	ComputedAt                      time.Time
}

// RouteFilter narrows routes_bulk enumeration (C2).
type RouteFilter struct {
	Season      string // "rock", "ice", or "any"
	BoundingBox *BoundingBox
}

// BoundingBox is a geographic bounding box in decimal degrees.
type BoundingBox struct {
	MinLat, MinLon, MaxLat, MaxLon float64
}

// Contains reports whether a coordinate falls within the box.
func (b BoundingBox) Contains(c Coordinate) bool {
	return c.Lat >= b.MinLat && c.Lat <= b.MaxLat && c.Lon >= b.MinLon && c.Lon <= b.MaxLon
}
