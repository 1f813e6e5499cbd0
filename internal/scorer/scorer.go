// Package scorer is the scoring core (C6): it selects the historical
// accidents that can plausibly inform a (route, date) prediction, weighs
// each one through every kernel in internal/kernel, and assembles the
// normalized RiskPrediction the rest of the system reads and caches.
package scorer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/alpinerisk/alpinerisk/internal/confidence"
	"github.com/alpinerisk/alpinerisk/internal/geo"
	"github.com/alpinerisk/alpinerisk/internal/kernel"
	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
	"github.com/alpinerisk/alpinerisk/internal/spatialstore"
	"github.com/alpinerisk/alpinerisk/internal/weatherprovider"
)

// LocationStatsSource supplies climatology for the extreme-weather
// penalty; internal/locationstats.Service satisfies this.
type LocationStatsSource interface {
	Get(ctx context.Context, coord riskmodel.Coordinate, elevationMeters float64, date time.Time) (riskmodel.LocationStats, error)
}

// Config tunes candidate selection and score normalization.
type Config struct {
	// CandidateRadiusKm bounds the initial spatial_store.AccidentsWithin
	// query. It must be generous enough that the widest spatial bandwidth
	// (alpine routes) still sees a meaningful tail of near-zero-weight
	// accidents beyond it, not a hard cliff.
	CandidateRadiusKm float64
	// TopK is how many of the highest-influence accidents are retained as
	// explanation contributions on the RiskPrediction. It does not bound
	// which accidents contribute to the normalized score itself — every
	// candidate within CandidateRadiusKm contributes to S.
	TopK int
	// NormalizationK maps the summed influence S to a 0-100 risk score:
	// risk = min(100, S*NormalizationK).
	NormalizationK float64
	// WeatherPower is the exponent P applied to the weather-similarity
	// kernel in the influence product (I = w_s*w_t*w_w^P*w_rt*w_sev*w_e),
	// letting weather similarity dominate or recede relative to the other
	// kernels without changing the kernel itself.
	WeatherPower float64
}

// DefaultConfig returns the normalization default of 7.0 the spec settled
// on (see DESIGN.md Open Questions) and a 250km candidate radius, well
// beyond the widest (alpine, 75km) spatial bandwidth's effective range.
func DefaultConfig() Config {
	return Config{
		CandidateRadiusKm: 250,
		TopK:              50,
		NormalizationK:    7.0,
		WeatherPower:      2.0,
	}
}

// Scorer computes RiskPredictions. It holds no mutable state; a single
// instance is safe for concurrent use by the scheduler's worker pool and
// the on-demand query path alike.
type Scorer struct {
	store      spatialstore.Store
	weather    weatherprovider.Provider
	locStats   LocationStatsSource
	kernel     kernel.Config
	confidence confidence.Config
	config     Config
}

// New constructs a Scorer.
func New(store spatialstore.Store, weather weatherprovider.Provider, locStats LocationStatsSource, kernelConfig kernel.Config, confidenceConfig confidence.Config, config Config) *Scorer {
	return &Scorer{
		store:      store,
		weather:    weather,
		locStats:   locStats,
		kernel:     kernelConfig,
		confidence: confidenceConfig,
		config:     config,
	}
}

type candidate struct {
	accident   riskmodel.Accident
	influence  float64
	factor     riskmodel.ContributionFactor
	window     riskmodel.WeatherWindow
	distanceKm float64
	bearingDeg float64
}

// Score computes the RiskPrediction for route on date, fetching the
// planning weather window and location climatology itself. Callers scoring
// many routes that share a ~1km bucket (the scheduler's nightly fan-out)
// should prefetch both once per bucket and call ScoreWithWeather instead,
// so the weather provider and LocationStats builder each see one call per
// bucket rather than one per route.
func (s *Scorer) Score(ctx context.Context, route riskmodel.Route, date time.Time) (riskmodel.RiskPrediction, error) {
	planningWindow, err := s.weather.ForecastWindow(ctx, route.Coordinate, date)
	if err != nil {
		// A weather-provider outage should degrade the prediction, not
		// fail it: every weather kernel call below treats a window
		// shorter than 3 days as neutral.
		planningWindow = riskmodel.WeatherWindow{}
	}

	locStats, err := s.locStats.Get(ctx, route.Coordinate, routeElevationOrZero(route), date)
	if err != nil {
		locStats = riskmodel.LocationStats{Unavailable: true}
	}

	return s.ScoreWithWeather(ctx, route, date, planningWindow, locStats)
}

// ScoreWithWeather computes the RiskPrediction for route on date using an
// already-fetched planning weather window and location climatology,
// skipping the per-route provider/LocationStats calls Score would otherwise
// make.
func (s *Scorer) ScoreWithWeather(ctx context.Context, route riskmodel.Route, date time.Time, planningWindow riskmodel.WeatherWindow, locStats riskmodel.LocationStats) (riskmodel.RiskPrediction, error) {
	accidents, err := s.store.AccidentsWithin(ctx, route.Coordinate, s.config.CandidateRadiusKm, nil)
	if err != nil {
		return riskmodel.RiskPrediction{}, fmt.Errorf("scorer: fetch candidates: %w", err)
	}

	if len(accidents) == 0 {
		return riskmodel.RiskPrediction{
			RouteID:       route.ID,
			Date:          date,
			Risk:          0,
			Confidence:    0,
			Contributions: []riskmodel.ContributionFactor{},
			ComputedAt:    time.Now(),
		}, nil
	}

	accidentIDs := make([]string, len(accidents))
	for i, a := range accidents {
		accidentIDs[i] = a.ID
	}
	windows, err := s.store.WeatherWindowsFor(ctx, accidentIDs)
	if err != nil {
		return riskmodel.RiskPrediction{}, fmt.Errorf("scorer: fetch weather windows: %w", err)
	}

	candidates := make([]candidate, 0, len(accidents))
	predictionSeason := riskmodel.SeasonOf(date)
	for _, a := range accidents {
		c := s.weighAccident(a, route, date, predictionSeason, windows[a.ID], planningWindow, locStats)
		candidates = append(candidates, c)
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].influence != candidates[j].influence {
			return candidates[i].influence > candidates[j].influence
		}
		return candidates[i].accident.ID < candidates[j].accident.ID
	})

	var sumInfluence float64
	for _, c := range candidates {
		sumInfluence += c.influence
	}
	risk := math.Min(100, sumInfluence*s.config.NormalizationK)

	topK := candidates
	if len(topK) > s.config.TopK {
		topK = topK[:s.config.TopK]
	}

	contributions := make([]riskmodel.ContributionFactor, len(topK))
	influences := make([]float64, len(topK))
	usableWindows := make([]riskmodel.WeatherWindow, len(topK))
	for i, c := range topK {
		contributions[i] = c.factor
		influences[i] = c.influence
		usableWindows[i] = c.window
	}

	ind := confidence.Indicators{
		SampleSize:     s.confidence.SampleSize(len(accidents)),
		MatchQuality:   s.confidence.MatchQuality(influences),
		SpatialCover:   s.confidence.SpatialCoverage(bearingStdDeg(topK), distanceStdKm(topK)),
		Temporal:       s.confidence.Temporal(mostRecentDaysAgo(topK, date)),
		WeatherQuality: s.confidence.WeatherQuality(usableWindows),
	}

	return riskmodel.RiskPrediction{
		RouteID:       route.ID,
		Date:          date,
		Risk:          risk,
		Confidence:    s.confidence.Combine(ind),
		Contributions: contributions,
		ComputedAt:    time.Now(),
	}, nil
}

func (s *Scorer) weighAccident(a riskmodel.Accident, route riskmodel.Route, date time.Time, predictionSeason riskmodel.Season, accidentWindow, planningWindow riskmodel.WeatherWindow, locStats riskmodel.LocationStats) candidate {
	distanceKm := geo.HaversineKm(geo.Coordinate(route.Coordinate), geo.Coordinate(a.Coordinate))
	bearingDeg := geo.BearingDegrees(geo.Coordinate(route.Coordinate), geo.Coordinate(a.Coordinate))
	daysAgo := int(date.Sub(a.Date).Hours() / 24)

	spatialW := s.kernel.Spatial(distanceKm, route.Type)
	temporalW := s.kernel.Temporal(daysAgo, route.Type, riskmodel.SeasonOf(a.Date), predictionSeason)
	routeTypeW := s.kernel.RouteTypeCompat(route.Type, classifyAccidentRouteType(a))
	severityW := s.kernel.Severity(a.Severity)
	elevationW := s.kernel.Elevation(route.Elevation, a.Elevation, route.Type)
	weatherW := s.kernel.WeatherSimilarity(accidentWindow, planningWindow, locStats)

	influence := spatialW * temporalW * math.Pow(weatherW, s.config.WeatherPower) * routeTypeW * severityW * elevationW

	return candidate{
		accident:   a,
		influence:  influence,
		window:     accidentWindow,
		distanceKm: distanceKm,
		bearingDeg: bearingDeg,
		factor: riskmodel.ContributionFactor{
			AccidentID: a.ID,
			Influence:  influence,
			Spatial:    spatialW,
			Temporal:   temporalW,
			Weather:    weatherW,
			RouteType:  routeTypeW,
			Severity:   severityW,
			Elevation:  elevationW,
			DistanceKm: distanceKm,
			DaysAgo:    daysAgo,
		},
	}
}

// classifyAccidentRouteType resolves the route type an accident should be
// compared against. Accidents are recorded against the activity they
// occurred during, which in this data model is already the route type the
// affected route carried at the time — a direct passthrough, kept as a
// named function so a future data model where activity and route type
// diverge has a single place to change the mapping.
func classifyAccidentRouteType(a riskmodel.Accident) riskmodel.RouteType {
	switch riskmodel.RouteType(a.Activity) {
	case riskmodel.RouteTypeAlpine, riskmodel.RouteTypeTrad, riskmodel.RouteTypeSport,
		riskmodel.RouteTypeIce, riskmodel.RouteTypeMixed, riskmodel.RouteTypeAid:
		return riskmodel.RouteType(a.Activity)
	default:
		return riskmodel.RouteTypeOther
	}
}

func routeElevationOrZero(r riskmodel.Route) float64 {
	if r.Elevation == nil {
		return 0
	}
	return *r.Elevation
}

func bearingStdDeg(cs []candidate) float64 {
	if len(cs) == 0 {
		return 0
	}
	bearings := make([]float64, len(cs))
	for i, c := range cs {
		bearings[i] = c.bearingDeg
	}
	return geo.StdDev(bearings, 1e-6)
}

func distanceStdKm(cs []candidate) float64 {
	if len(cs) == 0 {
		return 0
	}
	distances := make([]float64, len(cs))
	for i, c := range cs {
		distances[i] = c.distanceKm
	}
	return geo.StdDev(distances, 1e-6)
}

func mostRecentDaysAgo(cs []candidate, date time.Time) float64 {
	if len(cs) == 0 {
		return math.Inf(1)
	}
	best := math.Inf(1)
	for _, c := range cs {
		daysAgo := date.Sub(c.accident.Date).Hours() / 24
		if daysAgo < best {
			best = daysAgo
		}
	}
	return best
}
