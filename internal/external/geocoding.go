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

// DefaultGeocodingBaseURL is the public Open-Meteo geocoding API.
const DefaultGeocodingBaseURL = "https://geocoding-api.open-meteo.com/v1"

// geocodingResponse is the wire shape of GET /search. "results" is absent
// when nothing matched.
type geocodingResponse struct {
	Results []geocodingResult `json:"results"`
}

type geocodingResult struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Country     string  `json:"country"`
	CountryCode string  `json:"country_code"`
	Admin1      string  `json:"admin1"`
	Timezone    string  `json:"timezone"`
}

// GeocodingClient resolves free-text city names via Open-Meteo.
type GeocodingClient struct {
	*BaseClient
	baseURL string
}

// NewGeocodingClient creates a geocoding client rooted at baseURL.
func NewGeocodingClient(base *BaseClient, baseURL string) *GeocodingClient {
	if baseURL == "" {
		baseURL = DefaultGeocodingBaseURL
	}
	return &GeocodingClient{BaseClient: base, baseURL: baseURL}
}

// Search issues one lookup and returns matches in the upstream's ranking
// order. An empty slice with a nil error means nothing matched.
//
// Transport failures keep the upstream_network_error code; every other
// failure is reported as upstream_geocoding_unavailable.
func (c *GeocodingClient) Search(ctx context.Context, name string, count int, language string) ([]types.Location, error) {
	q := url.Values{}
	q.Set("name", name)
	q.Set("count", strconv.Itoa(count))
	q.Set("language", language)
	q.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to build geocoding request", err)
	}

	resp, err := c.Do(req)
	if err != nil {
		if IsTransportError(err) {
			return nil, err
		}
		return nil, types.NewAppError(types.ErrCodeUpstreamGeocoding, "geocoding request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeUpstreamGeocoding,
			fmt.Sprintf("geocoding API returned %d", resp.StatusCode),
			nil,
			map[string]any{"status": resp.StatusCode},
		)
	}

	var body geocodingResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamGeocoding, "failed to decode geocoding response", err)
	}

	locations := make([]types.Location, 0, len(body.Results))
	for _, r := range body.Results {
		country := r.Country
		if country == "" {
			country = r.CountryCode
		}
		locations = append(locations, types.Location{
			Name:      r.Name,
			Country:   country,
			Admin1:    r.Admin1,
			Latitude:  r.Latitude,
			Longitude: r.Longitude,
			Timezone:  r.Timezone,
		})
	}
	return locations, nil
}
