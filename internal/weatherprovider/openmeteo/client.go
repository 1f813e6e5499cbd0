// Package openmeteo implements weatherprovider.Provider against the public
// Open-Meteo forecast and historical-archive APIs. It requires no API key
// and is always configured, making it the secondary provider in a
// weatherprovider.Fallback chain.
package openmeteo

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/alpinerisk/alpinerisk/internal/provider/resilience"
	"github.com/alpinerisk/alpinerisk/internal/riskmodel"
)

const (
	forecastBaseURL = "https://api.open-meteo.com/v1/forecast"
	archiveBaseURL  = "https://archive-api.open-meteo.com/v1/archive"

	dailyParams = "temperature_2m_mean,temperature_2m_min,temperature_2m_max," +
		"precipitation_sum,wind_speed_10m_max,visibility_mean,cloud_cover_mean"
)

// Client fetches weather windows from Open-Meteo.
type Client struct {
	http          *resilience.Client
	forecastURL   string
	archiveURL    string
}

// NewClient constructs a Client using the resilient HTTP wrapper shared by
// every external provider call.
func NewClient() *Client {
	return &Client{
		http:        resilience.NewClient(resilience.DefaultClientConfig("openmeteo")),
		forecastURL: forecastBaseURL,
		archiveURL:  archiveBaseURL,
	}
}

// Name identifies this provider.
func (c *Client) Name() string { return "openmeteo" }

type dailyResponse struct {
	Daily struct {
		Time            []string  `json:"time"`
		TemperatureMean []float64 `json:"temperature_2m_mean"`
		TemperatureMin  []float64 `json:"temperature_2m_min"`
		TemperatureMax  []float64 `json:"temperature_2m_max"`
		PrecipitationSum []float64 `json:"precipitation_sum"`
		WindSpeedMax    []float64 `json:"wind_speed_10m_max"`
		VisibilityMean  []float64 `json:"visibility_mean"`
		CloudCoverMean  []float64 `json:"cloud_cover_mean"`
	} `json:"daily"`
}

// ForecastWindow fetches the 7-day window (3 days before through 3 days
// after date) from the forecast endpoint.
func (c *Client) ForecastWindow(ctx context.Context, coord riskmodel.Coordinate, date time.Time) (riskmodel.WeatherWindow, error) {
	start := date.AddDate(0, 0, -3)
	end := date.AddDate(0, 0, 3)
	return c.fetch(ctx, c.forecastURL, coord, start, end)
}

// ArchiveWindow fetches the 7-day window (6 days before through date) from
// the historical-archive endpoint.
func (c *Client) ArchiveWindow(ctx context.Context, coord riskmodel.Coordinate, date time.Time) (riskmodel.WeatherWindow, error) {
	start := date.AddDate(0, 0, -6)
	return c.fetch(ctx, c.archiveURL, coord, start, date)
}

// History fetches daily samples for an arbitrary [start,end] range from the
// historical-archive endpoint, used by internal/locationstats to build
// multi-year climatology rather than a single accident/planning window.
func (c *Client) History(ctx context.Context, coord riskmodel.Coordinate, start, end time.Time) (riskmodel.WeatherWindow, error) {
	return c.fetch(ctx, c.archiveURL, coord, start, end)
}

func (c *Client) fetch(ctx context.Context, baseURL string, coord riskmodel.Coordinate, start, end time.Time) (riskmodel.WeatherWindow, error) {
	url := fmt.Sprintf("%s?latitude=%f&longitude=%f&start_date=%s&end_date=%s&daily=%s&timezone=UTC",
		baseURL, coord.Lat, coord.Lon, start.Format("2006-01-02"), end.Format("2006-01-02"), dailyParams)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return riskmodel.WeatherWindow{}, fmt.Errorf("openmeteo: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return riskmodel.WeatherWindow{}, fmt.Errorf("openmeteo: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return riskmodel.WeatherWindow{}, fmt.Errorf("openmeteo: unexpected status %d", resp.StatusCode)
	}

	var parsed dailyResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return riskmodel.WeatherWindow{}, fmt.Errorf("openmeteo: decode response: %w", err)
	}

	return toWindow(parsed)
}

func toWindow(r dailyResponse) (riskmodel.WeatherWindow, error) {
	n := len(r.Daily.Time)
	samples := make([]riskmodel.DailySample, 0, n)
	for i := 0; i < n; i++ {
		date, err := time.Parse("2006-01-02", r.Daily.Time[i])
		if err != nil {
			return riskmodel.WeatherWindow{}, fmt.Errorf("openmeteo: parse date %q: %w", r.Daily.Time[i], err)
		}
		samples = append(samples, riskmodel.DailySample{
			Date:            date,
			TemperatureMean: valueAt(r.Daily.TemperatureMean, i),
			TemperatureMin:  valueAt(r.Daily.TemperatureMin, i),
			TemperatureMax:  valueAt(r.Daily.TemperatureMax, i),
			PrecipTotal:     valueAt(r.Daily.PrecipitationSum, i),
			WindMean:        valueAt(r.Daily.WindSpeedMax, i),
			VisibilityMean:  valueAt(r.Daily.VisibilityMean, i) / 1000, // meters to km
			CloudCoverMean:  valueAt(r.Daily.CloudCoverMean, i),
		})
	}
	return riskmodel.WeatherWindow{Samples: samples}, nil
}

func valueAt(xs []float64, i int) float64 {
	if i >= len(xs) {
		return 0
	}
	return xs[i]
}
