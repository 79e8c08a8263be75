package external

import (
	"log/slog"
	"net/http"

	"weathernow/internal/config"
)

// ClientRegistry holds the Open-Meteo clients built from configuration. It is
// the single place the binaries get their upstream access from.
type ClientRegistry struct {
	Geocoding *GeocodingClient
	Forecast  *ForecastClient

	geocodingBase *BaseClient
	forecastBase  *BaseClient
}

// RegistryOption is a functional option for configuring a ClientRegistry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	httpClient *http.Client
}

// WithHTTPClient replaces the shared outbound http.Client, e.g. to point both
// clients at an httptest server transport.
func WithHTTPClient(c *http.Client) RegistryOption {
	return func(rc *registryConfig) {
		rc.httpClient = c
	}
}

// NewClientRegistry builds the geocoding and forecast clients. Each upstream
// gets its own circuit breaker and rate limiter so a failing forecast API does
// not block city search.
func NewClientRegistry(cfg *config.Config, logger *slog.Logger, opts ...RegistryOption) *ClientRegistry {
	if logger == nil {
		logger = slog.Default()
	}

	rc := &registryConfig{}
	for _, opt := range opts {
		opt(rc)
	}
	if rc.httpClient == nil {
		rc.httpClient = &http.Client{Timeout: cfg.Upstream.Timeout}
	}

	settings := func(name string) ClientSettings {
		return ClientSettings{
			BreakerName:   name,
			UserAgent:     cfg.Upstream.UserAgent,
			RatePerSecond: cfg.Upstream.RateLimit,
			Burst:         cfg.Upstream.RateBurst,
		}
	}

	geoBase := NewBaseClient(rc.httpClient, settings("geocoding"))
	fcBase := NewBaseClient(rc.httpClient, settings("forecast"))

	logger.Info("initializing upstream clients",
		"geocoding_url", cfg.Geocoding.BaseURL,
		"forecast_url", cfg.Forecast.BaseURL,
		"timeout", cfg.Upstream.Timeout,
	)

	return &ClientRegistry{
		Geocoding:     NewGeocodingClient(geoBase, cfg.Geocoding.BaseURL),
		Forecast:      NewForecastClient(fcBase, cfg.Forecast.BaseURL),
		geocodingBase: geoBase,
		forecastBase:  fcBase,
	}
}

// Probes returns the base clients in a fixed order. Each one reports unhealthy
// while its circuit breaker is open.
func (r *ClientRegistry) Probes() []*BaseClient {
	return []*BaseClient{r.geocodingBase, r.forecastBase}
}
