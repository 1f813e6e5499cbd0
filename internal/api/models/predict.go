package models

import "github.com/alpinerisk/alpinerisk/internal/riskmodel"

// Contribution is the wire shape of a riskmodel.ContributionFactor.
type Contribution struct {
	AccidentID string  `json:"accidentId"`
	Influence  float64 `json:"influence"`
	Spatial    float64 `json:"spatial"`
	Temporal   float64 `json:"temporal"`
	Weather    float64 `json:"weather"`
	RouteType  float64 `json:"routeType"`
	Severity   float64 `json:"severity"`
	Elevation  float64 `json:"elevation"`
	DistanceKm float64 `json:"distanceKm"`
	DaysAgo    int     `json:"daysAgo"`
}

// Prediction is the wire shape of a riskmodel.RiskPrediction.
type Prediction struct {
	RouteID        string         `json:"routeId"`
	Date           string         `json:"date"`
	Risk           float64        `json:"risk"`
	Confidence     float64        `json:"confidence"`
	ConfidenceBand string         `json:"confidenceBand"`
	Contributions  []Contribution `json:"contributions"`
	ComputedAt     Timestamp      `json:"computedAt"`
}

// FromRiskPrediction converts a domain RiskPrediction to its wire shape.
func FromRiskPrediction(p riskmodel.RiskPrediction) Prediction {
	contributions := make([]Contribution, len(p.Contributions))
	for i, c := range p.Contributions {
		contributions[i] = Contribution{
			AccidentID: c.AccidentID,
			Influence:  c.Influence,
			Spatial:    c.Spatial,
			Temporal:   c.Temporal,
			Weather:    c.Weather,
			RouteType:  c.RouteType,
			Severity:   c.Severity,
			Elevation:  c.Elevation,
			DistanceKm: c.DistanceKm,
			DaysAgo:    c.DaysAgo,
		}
	}
	return Prediction{
		RouteID:        p.RouteID,
		Date:           p.Date.Format("2006-01-02"),
		Risk:           p.Risk,
		Confidence:     p.Confidence,
		ConfidenceBand: riskmodel.ConfidenceBand(p.Confidence),
		Contributions:  contributions,
		ComputedAt:     Timestamp(p.ComputedAt),
	}
}

// MapBulkRequest is the payload for POST /v1/map.
type MapBulkRequest struct {
	RouteIDs []string `json:"routeIds"`
	Date     string   `json:"date"`
}

// MapBulkResponse is the cached-only bulk prediction response. RouteIDs
// with no cached prediction are simply absent, matching query.MapBulk's
// no-compute-on-miss contract.
type MapBulkResponse struct {
	Predictions []Prediction `json:"predictions"`
}

// RecomputeRequest is the payload for POST /v1/recompute.
type RecomputeRequest struct {
	Date string `json:"date"`
}

// RecomputeResponse acknowledges a recompute request.
type RecomputeResponse struct {
	Date      string `json:"date"`
	Requested bool   `json:"requested"`
}
