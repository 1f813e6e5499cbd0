package kernel

import (
	"math"

	"github.com/alpinerisk/alpinerisk/internal/geo"
	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
)

// WeatherNeutral is returned when either window is too short to compare
// (fewer than 3 overlapping days) — weather pattern gives no signal, so it
// should not move the final risk up or down.
const WeatherNeutral = 0.5

type weatherVariable struct {
	name    string
	extract func(riskmodel.DailySample) float64
}

var weatherVariables = []weatherVariable{
	{"temperature", func(d riskmodel.DailySample) float64 { return d.TemperatureMean }},
	{"precipitation", func(d riskmodel.DailySample) float64 { return d.PrecipTotal }},
	{"wind", func(d riskmodel.DailySample) float64 { return d.WindMean }},
	{"visibility", func(d riskmodel.DailySample) float64 { return d.VisibilityMean }},
	{"cloudcover", func(d riskmodel.DailySample) float64 { return d.CloudCoverMean }},
}

// dayWeights returns n decay weights, most-recent day (index n-1, the last
// sample in a window ordered oldest-to-newest) weighted 1.0 and each day
// further back weighted by an additional factor of WeatherDayDecay.
func (c Config) dayWeights(n int) []float64 {
	ws := make([]float64, n)
	for i := 0; i < n; i++ {
		stepsBack := n - 1 - i
		ws[i] = math.Pow(c.WeatherDayDecay, float64(stepsBack))
	}
	return ws
}

// WeatherSimilarity scores how closely the weather in the days leading up
// to a past accident matches the weather in the days around the date being
// scored, combining:
//  1. per-day recency weighting within each window (more recent days count
//     more toward the pattern match),
//  2. a weighted Pearson correlation across temperature, precipitation,
//     wind, visibility, and cloud cover, each contributing an equally
//     weighted sub-score alongside a freeze-thaw-day alignment term,
//  3. an extreme-weather penalty that discounts the match when the
//     planning window itself is statistically unusual for the location
//     (per stats), since an ordinary accident pattern is weak evidence for
//     an extreme day.
//
// The result is in [0,1], where 1 means the two windows describe
// essentially the same conditions.
func (c Config) WeatherSimilarity(accidentWindow, planningWindow riskmodel.WeatherWindow, stats riskmodel.LocationStats) float64 {
	n := len(accidentWindow.Samples)
	if len(planningWindow.Samples) < n {
		n = len(planningWindow.Samples)
	}
	if n < 3 {
		return WeatherNeutral
	}

	accidentDays := accidentWindow.Truncated(n)
	planningDays := planningWindow.Truncated(n)
	weights := c.dayWeights(n)

	var subScoreSum float64
	for _, v := range weatherVariables {
		xs := make([]float64, n)
		ys := make([]float64, n)
		for i := 0; i < n; i++ {
			xs[i] = v.extract(accidentDays[i])
			ys[i] = v.extract(planningDays[i])
		}
		corr := geo.WeightedPearson(xs, ys, weights)
		// Map correlation [-1,1] to a similarity score [0,1].
		subScoreSum += (corr + 1) / 2
	}
	subScoreSum += freezeThawAlignment(accidentDays, planningDays)

	// Equal-weighted mean of the five correlation-based sub-scores and the
	// freeze-thaw alignment sub-score.
	pattern := subScoreSum / float64(len(weatherVariables)+1)

	penalty := c.extremeWeatherPenalty(planningDays, weights, stats)

	similarity := pattern * penalty
	if similarity < 0 {
		similarity = 0
	}
	if similarity > 1 {
		similarity = 1
	}
	return similarity
}

// freezeThawAlignment returns 1 - |aFrac - pFrac|, where each fraction is
// the unweighted share of a window's days with freeze-thaw conditions:
// 1.0 when the two shares match, 0.0 when one window has freeze-thaw on
// every day and the other on none, and 0.5 for an empty window.
func freezeThawAlignment(accidentDays, planningDays []riskmodel.DailySample) float64 {
	n := len(accidentDays)
	if n == 0 {
		return 0.5
	}
	var aFrac, pFrac float64
	for i := 0; i < n; i++ {
		if accidentDays[i].IsFreezeThaw() {
			aFrac++
		}
		if planningDays[i].IsFreezeThaw() {
			pFrac++
		}
	}
	aFrac /= float64(n)
	pFrac /= float64(n)
	return 1 - math.Abs(aFrac-pFrac)
}

// extremeWeatherPenalty discounts the similarity score when the planning
// window's weighted-mean conditions are statistically extreme relative to
// the location's climatology. A day-recency-weighted mean is used so the
// penalty reflects the conditions nearest the date being scored.
func (c Config) extremeWeatherPenalty(planningDays []riskmodel.DailySample, weights []float64, stats riskmodel.LocationStats) float64 {
	if stats.Unavailable {
		return 1
	}

	temps := extractAll(planningDays, func(d riskmodel.DailySample) float64 { return d.TemperatureMean })
	precs := extractAll(planningDays, func(d riskmodel.DailySample) float64 { return d.PrecipTotal })
	winds := extractAll(planningDays, func(d riskmodel.DailySample) float64 { return d.WindMean })
	viz := extractAll(planningDays, func(d riskmodel.DailySample) float64 { return d.VisibilityMean })

	tempZ := math.Abs(geo.ZScore(geo.WeightedMean(temps, weights), stats.TemperatureMean, stats.TemperatureStd))
	precZ := geo.ZScore(geo.WeightedMean(precs, weights), stats.PrecipMean, stats.PrecipStd)
	windZ := geo.ZScore(geo.WeightedMean(winds, weights), stats.WindMean, stats.WindStd)
	// Low visibility is the extreme direction, so invert before comparing
	// against the threshold.
	vizZ := -geo.ZScore(geo.WeightedMean(viz, weights), stats.VisibilityMean, stats.VisibilityStd)

	penalty := 1.0
	penalty -= c.extremeTerm(tempZ, c.ExtremePenaltySlope)
	penalty -= c.extremeTerm(precZ, c.ExtremePenaltySlope)
	penalty -= c.extremeTerm(windZ, c.ExtremePenaltySlope)
	penalty -= c.extremeTerm(vizZ, c.ExtremeVisibilitySlope)

	if penalty < 0 {
		return 0
	}
	return penalty
}

func (c Config) extremeTerm(z, slope float64) float64 {
	if z <= c.ExtremeZThreshold {
		return 0
	}
	return slope * (z - c.ExtremeZThreshold)
}

func extractAll(days []riskmodel.DailySample, extract func(riskmodel.DailySample) float64) []float64 {
	out := make([]float64, len(days))
	for i, d := range days {
		out[i] = extract(d)
	}
	return out
}
