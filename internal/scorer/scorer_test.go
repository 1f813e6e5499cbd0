package scorer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpinerisk/alpinerisk/internal/confidence"
	"github.com/alpinerisk/alpinerisk/internal/kernel"
	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
)

type fakeStore struct {
	accidents []riskmodel.Accident
	windows   map[string]riskmodel.WeatherWindow
}

func (f *fakeStore) AccidentsWithin(ctx context.Context, center riskmodel.Coordinate, radiusKm float64, since *time.Time) ([]riskmodel.Accident, error) {
	return f.accidents, nil
}

func (f *fakeStore) WeatherWindowsFor(ctx context.Context, accidentIDs []string) (map[string]riskmodel.WeatherWindow, error) {
	return f.windows, nil
}

func (f *fakeStore) RoutesBulk(ctx context.Context, filter riskmodel.RouteFilter, each func(riskmodel.Route) error) error {
	return nil
}

func (f *fakeStore) RouteByID(ctx context.Context, id string) (riskmodel.Route, error) {
	return riskmodel.Route{}, nil
}

type fakeWeather struct {
	window riskmodel.WeatherWindow
	err    error
}

func (f fakeWeather) Name() string { return "fake" }
func (f fakeWeather) ForecastWindow(ctx context.Context, coord riskmodel.Coordinate, date time.Time) (riskmodel.WeatherWindow, error) {
	return f.window, f.err
}
func (f fakeWeather) ArchiveWindow(ctx context.Context, coord riskmodel.Coordinate, date time.Time) (riskmodel.WeatherWindow, error) {
	return f.window, f.err
}

type fakeLocStats struct {
	stats riskmodel.LocationStats
}

func (f fakeLocStats) Get(ctx context.Context, coord riskmodel.Coordinate, elevationMeters float64, date time.Time) (riskmodel.LocationStats, error) {
	return f.stats, nil
}

func elevPtr(v float64) *float64 { return &v }

func TestScore_NoAccidentsYieldsZeroRisk(t *testing.T) {
	store := &fakeStore{}
	sc := New(store, fakeWeather{}, fakeLocStats{}, kernel.DefaultConfig(), confidence.DefaultConfig(), DefaultConfig())

	route := riskmodel.Route{ID: "r1", Coordinate: riskmodel.Coordinate{Lat: 46, Lon: 7}, Type: riskmodel.RouteTypeSport}
	pred, err := sc.Score(context.Background(), route, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0.0, pred.Risk)
	assert.Equal(t, 0.0, pred.Confidence)
	assert.Empty(t, pred.Contributions)
}

func TestScore_NearRecentAccidentRaisesRisk(t *testing.T) {
	route := riskmodel.Route{ID: "r1", Coordinate: riskmodel.Coordinate{Lat: 46, Lon: 7}, Type: riskmodel.RouteTypeSport, Elevation: elevPtr(1000)}
	now := time.Now()
	near := riskmodel.Accident{
		ID:         "a1",
		Date:       now.AddDate(0, 0, -5),
		Coordinate: riskmodel.Coordinate{Lat: 46.001, Lon: 7.001},
		Activity:   "sport",
		Severity:   riskmodel.SeverityFatal,
		Elevation:  elevPtr(1010),
	}
	store := &fakeStore{accidents: []riskmodel.Accident{near}, windows: map[string]riskmodel.WeatherWindow{}}
	sc := New(store, fakeWeather{}, fakeLocStats{}, kernel.DefaultConfig(), confidence.DefaultConfig(), DefaultConfig())

	pred, err := sc.Score(context.Background(), route, now)
	require.NoError(t, err)
	assert.Greater(t, pred.Risk, 0.0)
	require.Len(t, pred.Contributions, 1)
	assert.Equal(t, "a1", pred.Contributions[0].AccidentID)
}

func TestScore_RiskNeverExceeds100(t *testing.T) {
	route := riskmodel.Route{ID: "r1", Coordinate: riskmodel.Coordinate{Lat: 46, Lon: 7}, Type: riskmodel.RouteTypeAlpine}
	now := time.Now()
	var accidents []riskmodel.Accident
	for i := 0; i < 500; i++ {
		accidents = append(accidents, riskmodel.Accident{
			ID:         "a",
			Date:       now,
			Coordinate: route.Coordinate,
			Activity:   "alpine",
			Severity:   riskmodel.SeverityFatal,
		})
	}
	store := &fakeStore{accidents: accidents, windows: map[string]riskmodel.WeatherWindow{}}
	sc := New(store, fakeWeather{}, fakeLocStats{}, kernel.DefaultConfig(), confidence.DefaultConfig(), DefaultConfig())

	pred, err := sc.Score(context.Background(), route, now)
	require.NoError(t, err)
	assert.LessOrEqual(t, pred.Risk, 100.0)
}

func TestScore_CanaryAsymmetryAffectsRisk(t *testing.T) {
	now := time.Now()
	accident := riskmodel.Accident{
		ID:         "a1",
		Date:       now.AddDate(0, 0, -10),
		Coordinate: riskmodel.Coordinate{Lat: 46.001, Lon: 7.001},
		Activity:   "sport",
		Severity:   riskmodel.SeverityMinor,
	}
	store := &fakeStore{accidents: []riskmodel.Accident{accident}, windows: map[string]riskmodel.WeatherWindow{}}

	alpineRoute := riskmodel.Route{ID: "alpine", Coordinate: riskmodel.Coordinate{Lat: 46, Lon: 7}, Type: riskmodel.RouteTypeAlpine}
	sportRoute := riskmodel.Route{ID: "sport", Coordinate: riskmodel.Coordinate{Lat: 46, Lon: 7}, Type: riskmodel.RouteTypeSport}

	scAlpine := New(store, fakeWeather{}, fakeLocStats{}, kernel.DefaultConfig(), confidence.DefaultConfig(), DefaultConfig())
	scSport := New(store, fakeWeather{}, fakeLocStats{}, kernel.DefaultConfig(), confidence.DefaultConfig(), DefaultConfig())

	alpinePred, err := scAlpine.Score(context.Background(), alpineRoute, now)
	require.NoError(t, err)
	sportPred, err := scSport.Score(context.Background(), sportRoute, now)
	require.NoError(t, err)

	// Alpine planner sees a sport accident at 0.9 compatibility; a sport
	// planner sees an alpine-classified accident at 0.3 (canary
	// asymmetry), but here the accident is itself sport-classified, so
	// compatibility is 1.0 vs sport and 0.9 vs alpine planner - this
	// assertion instead checks the scores differ, which the asymmetric
	// matrix guarantees whenever planning and accident route types
	// differ.
	assert.NotEqual(t, alpinePred.Risk, sportPred.Risk)
}

func TestScore_WeatherProviderFailureDegradesGracefully(t *testing.T) {
	now := time.Now()
	accident := riskmodel.Accident{ID: "a1", Date: now, Coordinate: riskmodel.Coordinate{Lat: 46, Lon: 7}, Activity: "sport"}
	store := &fakeStore{accidents: []riskmodel.Accident{accident}, windows: map[string]riskmodel.WeatherWindow{}}
	route := riskmodel.Route{ID: "r1", Coordinate: riskmodel.Coordinate{Lat: 46, Lon: 7}, Type: riskmodel.RouteTypeSport}

	sc := New(store, fakeWeather{err: assertErr{}}, fakeLocStats{}, kernel.DefaultConfig(), confidence.DefaultConfig(), DefaultConfig())
	pred, err := sc.Score(context.Background(), route, now)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, pred.Risk, 0.0)
}

type assertErr struct{}

func (assertErr) Error() string { return "provider down" }
