package external

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"weathernow/internal/types"
)

// DefaultForecastBaseURL is the public Open-Meteo forecast API.
const DefaultForecastBaseURL = "https://api.open-meteo.com/v1"

// Hourly and daily variables requested from the forecast endpoint.
const (
	HourlyVariables = "temperature_2m,relativehumidity_2m,pressure_msl"
	DailyVariables  = "sunrise,sunset"
)

// ForecastPayload is the decoded forecast response. Sections are pointers so
// that a missing section can be told apart from an empty one.
type ForecastPayload struct {
	Latitude         float64         `json:"latitude"`
	Longitude        float64         `json:"longitude"`
	Timezone         string          `json:"timezone"`
	UTCOffsetSeconds int             `json:"utc_offset_seconds"`
	CurrentWeather   *CurrentWeather `json:"current_weather"`
	Hourly           *HourlyPayload  `json:"hourly"`
	Daily            *DailyPayload   `json:"daily"`
}

// CurrentWeather is the current_weather=true block. Time is zone-less local
// time in the payload's timezone.
type CurrentWeather struct {
	Time          string  `json:"time"`
	Temperature   float64 `json:"temperature"`
	WindSpeed     float64 `json:"windspeed"`
	WindDirection float64 `json:"winddirection"`
	WeatherCode   int     `json:"weathercode"`
	IsDay         int     `json:"is_day"`
}

// HourlyPayload holds parallel, time-indexed arrays.
type HourlyPayload struct {
	Time               []string  `json:"time"`
	Temperature2m      []float64 `json:"temperature_2m"`
	RelativeHumidity2m []float64 `json:"relativehumidity_2m"`
	PressureMSL        []float64 `json:"pressure_msl"`
}

// DailyPayload holds one element per requested day.
type DailyPayload struct {
	Time    []string `json:"time"`
	Sunrise []string `json:"sunrise"`
	Sunset  []string `json:"sunset"`
}

// ForecastClient fetches current conditions, sunrise/sunset and hourly series
// for a coordinate pair.
type ForecastClient struct {
	*BaseClient
	baseURL string
}

// NewForecastClient creates a forecast client rooted at baseURL.
func NewForecastClient(base *BaseClient, baseURL string) *ForecastClient {
	if baseURL == "" {
		baseURL = DefaultForecastBaseURL
	}
	return &ForecastClient{BaseClient: base, baseURL: baseURL}
}

// Fetch issues one combined forecast request with automatic time zone
// resolution. Any transport or status failure is reported as
// upstream_forecast_unavailable; an undecodable body as
// internal_forecast_malformed.
func (c *ForecastClient) Fetch(ctx context.Context, lat, lon float64) (*ForecastPayload, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("current_weather", "true")
	q.Set("hourly", HourlyVariables)
	q.Set("daily", DailyVariables)
	q.Set("timezone", "auto")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/forecast?"+q.Encode(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build forecast request", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamForecast, "forecast request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamForecast,
			fmt.Sprintf("forecast API returned %d", resp.StatusCode),
			nil,
			map[string]any{"status": resp.StatusCode},
		)
	}

	var payload ForecastPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalForecastMalformed, "failed to decode forecast response", err)
	}
	return &payload, nil
}
