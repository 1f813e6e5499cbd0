// Package commercialarchive implements weatherprovider.Provider against a
// paid historical-weather API with denser station coverage than the public
// archive. It is archive-only: ForecastWindow always returns an error so a
// weatherprovider.Fallback immediately defers to the public provider for
// planning-date lookups, which don't benefit from the commercial archive's
// historical density anyway.
package commercialarchive

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/alpinerisk/alpinerisk/internal/provider/resilience"
	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
)

// ErrForecastUnsupported is returned by ForecastWindow; this provider only
// serves historical archive data.
var ErrForecastUnsupported = fmt.Errorf("commercialarchive: forecast windows are not supported, use the public provider")

// Client fetches historical weather windows from the commercial archive
// API.
type Client struct {
	http    *resilience.Client
	baseURL string
	apiKey  string
}

// NewClient constructs a Client bound to apiKey. The key is held only by
// this client and is never passed to any other provider.
func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		http:    resilience.NewClient(resilience.DefaultClientConfig("commercialarchive")),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

// Name identifies this provider.
func (c *Client) Name() string { return "commercialarchive" }

// ForecastWindow always fails; see package doc.
func (c *Client) ForecastWindow(ctx context.Context, coord riskmodel.Coordinate, date time.Time) (riskmodel.WeatherWindow, error) {
	return riskmodel.WeatherWindow{}, ErrForecastUnsupported
}

type archiveResponse struct {
	Days []struct {
		Date             string  `json:"date"`
		TemperatureMean  float64 `json:"temp_mean_c"`
		TemperatureMin   float64 `json:"temp_min_c"`
		TemperatureMax   float64 `json:"temp_max_c"`
		PrecipitationMM  float64 `json:"precip_mm"`
		WindSpeedMS      float64 `json:"wind_ms"`
		VisibilityKm     float64 `json:"visibility_km"`
		CloudCoverPct    float64 `json:"cloud_cover_pct"`
	} `json:"days"`
}

// ArchiveWindow fetches the 7-day window (6 days before through date).
func (c *Client) ArchiveWindow(ctx context.Context, coord riskmodel.Coordinate, date time.Time) (riskmodel.WeatherWindow, error) {
	start := date.AddDate(0, 0, -6)
	return c.History(ctx, coord, start, date)
}

// History fetches daily samples for an arbitrary [start,end] range, used by
// internal/locationstats to build multi-year climatology.
func (c *Client) History(ctx context.Context, coord riskmodel.Coordinate, start, end time.Time) (riskmodel.WeatherWindow, error) {
	url := fmt.Sprintf("%s/v1/history/daily?lat=%f&lon=%f&start=%s&end=%s",
		c.baseURL, coord.Lat, coord.Lon, start.Format("2006-01-02"), end.Format("2006-01-02"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return riskmodel.WeatherWindow{}, fmt.Errorf("commercialarchive: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return riskmodel.WeatherWindow{}, fmt.Errorf("commercialarchive: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return riskmodel.WeatherWindow{}, fmt.Errorf("commercialarchive: unexpected status %d", resp.StatusCode)
	}

	var parsed archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return riskmodel.WeatherWindow{}, fmt.Errorf("commercialarchive: decode response: %w", err)
	}

	samples := make([]riskmodel.DailySample, 0, len(parsed.Days))
	for _, d := range parsed.Days {
		date, err := time.Parse("2006-01-02", d.Date)
		if err != nil {
			return riskmodel.WeatherWindow{}, fmt.Errorf("commercialarchive: parse date %q: %w", d.Date, err)
		}
		samples = append(samples, riskmodel.DailySample{
			Date:            date,
			TemperatureMean: d.TemperatureMean,
			TemperatureMin:  d.TemperatureMin,
			TemperatureMax:  d.TemperatureMax,
			PrecipTotal:     d.PrecipitationMM,
			WindMean:        d.WindSpeedMS,
			VisibilityMean:  d.VisibilityKm,
			CloudCoverMean:  d.CloudCoverPct,
		})
	}
	return riskmodel.WeatherWindow{Samples: samples}, nil
}
