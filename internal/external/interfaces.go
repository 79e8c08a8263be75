package external

import (
	"context"

	"weathernow/internal/types"
)

// Geocoder abstracts the city search provider.
type Geocoder interface {
	// Search returns up to count matches for name, best match first.
	Search(ctx context.Context, name string, count int, language string) ([]types.Location, error)
}

// ForecastProvider abstracts the forecast-by-coordinates provider.
type ForecastProvider interface {
	// Fetch returns the combined current/daily/hourly payload for a point.
	Fetch(ctx context.Context, lat, lon float64) (*ForecastPayload, error)
}

var (
	_ Geocoder         = (*GeocodingClient)(nil)
	_ ForecastProvider = (*ForecastClient)(nil)
)
