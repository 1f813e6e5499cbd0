// Package confidence computes how much a RiskPrediction should be trusted,
// combining five independent indicators into a single score in [0,1]:
// sample size, match quality of the contributing accidents, spatial
// coverage, temporal recency, and weather data quality. Each indicator is
// normalized to [0,1] before being combined, so the weights in Config sum
// to 1 by convention (not enforced — a caller who wants to experiment with
// unnormalized weights is free to).
package confidence

import (
	"math"

	"github.com/alpinerisk/alpinerisk/internal/geo"
	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
)

// Config holds the weight given to each indicator and the thresholds used
// to normalize them.
type Config struct {
	SampleSizeWeight   float64
	MatchQualityWeight float64
	SpatialWeight      float64
	TemporalWeight     float64
	WeatherWeight      float64

	// SampleSizeSaturation is the accident count at which the sample-size
	// indicator reaches 1.0 (diminishing returns beyond it).
	SampleSizeSaturation float64

	// SpatialBearingStdCeilingDeg is the bearing spread at or above which
	// the bearing sub-score is 1.0 (accidents surrounding the route from
	// every direction); below it the sub-score scales linearly down to 0.0
	// at std=0 (all accidents in one direction). SpatialDistanceStdCeilingKm
	// is the distance spread at or above which the distance sub-score is
	// 0.0; below it the sub-score scales linearly up to 1.0 at std=0 (all
	// accidents at a similar distance).
	SpatialBearingStdCeilingDeg float64
	SpatialDistanceStdCeilingKm float64

	// TemporalRecencyStepsDays are the day-count breakpoints for the
	// recency step function, most-recent accident's age in days mapped to
	// a score; see Temporal.
	TemporalRecencyStepsDays [4]float64
	TemporalRecencyScores    [5]float64
}

// DefaultConfig returns the confidence weighting from §4.6 of the spec:
// equal-ish emphasis on sample size and match quality, with spatial,
// temporal, and weather data quality as secondary correctives.
func DefaultConfig() Config {
	return Config{
		SampleSizeWeight:     0.30,
		MatchQualityWeight:   0.30,
		SpatialWeight:        0.20,
		TemporalWeight:       0.10,
		WeatherWeight:        0.10,
		SampleSizeSaturation: 20,

		SpatialBearingStdCeilingDeg: 120,
		SpatialDistanceStdCeilingKm: 60,

		TemporalRecencyStepsDays: [4]float64{365, 1095, 1825, 3650},
		TemporalRecencyScores:    [5]float64{1.0, 0.8, 0.6, 0.4, 0.2},
	}
}

// SampleSize scores how many accidents contributed, saturating at
// SampleSizeSaturation so a route with hundreds of historical accidents
// doesn't get an unbounded advantage over one with merely "enough".
func (c Config) SampleSize(n int) float64 {
	if n <= 0 {
		return 0
	}
	score := float64(n) / c.SampleSizeSaturation
	if score > 1 {
		return 1
	}
	return score
}

// MatchQuality scores the average per-accident influence (the product of
// all kernel weights) across the contributing set — a prediction built
// from accidents that all scored highly on every kernel is more trustworthy
// than one scraped together from marginal matches.
func (c Config) MatchQuality(influences []float64) float64 {
	if len(influences) == 0 {
		return 0
	}
	return geo.Mean(influences)
}

// SpatialCoverage scores how well the contributing accidents surround the
// route (high bearing spread) without being scattered across wildly
// different distances (low distance spread). Both sub-scores are averaged.
func (c Config) SpatialCoverage(bearingStdDeg, distanceStdKm float64) float64 {
	bearingScore := bearingStdDeg / c.SpatialBearingStdCeilingDeg
	if bearingScore < 0 {
		bearingScore = 0
	}
	if bearingScore > 1 {
		bearingScore = 1
	}

	distanceScore := 1 - distanceStdKm/c.SpatialDistanceStdCeilingKm
	if distanceScore < 0 {
		distanceScore = 0
	}
	if distanceScore > 1 {
		distanceScore = 1
	}

	return (bearingScore + distanceScore) / 2
}

// Temporal scores recency of the single most recent contributing accident
// using a step function rather than a continuous decay: confidence in
// "this still reflects current conditions" drops in discrete bands (within
// one year, within three years, within five years, within ten years, older)
// rather than smoothly, matching how the spec's indicator is defined.
func (c Config) Temporal(mostRecentDaysAgo float64) float64 {
	steps := c.TemporalRecencyStepsDays
	scores := c.TemporalRecencyScores
	switch {
	case mostRecentDaysAgo <= steps[0]:
		return scores[0]
	case mostRecentDaysAgo <= steps[1]:
		return scores[1]
	case mostRecentDaysAgo <= steps[2]:
		return scores[2]
	case mostRecentDaysAgo <= steps[3]:
		return scores[3]
	default:
		return scores[4]
	}
}

// WeatherQuality scores how many of the contributing accidents had a
// usable weather window (at least 3 days of data) versus falling back to
// the neutral weather weight.
func (c Config) WeatherQuality(windows []riskmodel.WeatherWindow) float64 {
	if len(windows) == 0 {
		return 0
	}
	var usable int
	for _, w := range windows {
		if w.Usable() {
			usable++
		}
	}
	return float64(usable) / float64(len(windows))
}

// Indicators bundles the five raw indicator values (already normalized to
// [0,1]) before combination, useful for surfacing an explanation alongside
// the final score.
type Indicators struct {
	SampleSize     float64
	MatchQuality   float64
	SpatialCover   float64
	Temporal       float64
	WeatherQuality float64
}

// Combine weights and sums the five indicators into a single confidence
// value, clamped to [0,1].
func (c Config) Combine(ind Indicators) float64 {
	score := c.SampleSizeWeight*ind.SampleSize +
		c.MatchQualityWeight*ind.MatchQuality +
		c.SpatialWeight*ind.SpatialCover +
		c.TemporalWeight*ind.Temporal +
		c.WeatherWeight*ind.WeatherQuality

	return math.Min(1, math.Max(0, score))
}
