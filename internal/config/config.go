// Package config defines the process configuration for WeatherNow.
// Configuration is loaded once at startup and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> struct defaults (Lowest)
//
// Any invalid value causes LoadConfig to fail before the process serves
// traffic.
package config

import (
	"time"
)

// Config is the top-level configuration struct.
// Sub-components receive only the config subsets they require.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	Service     string `envconfig:"SERVICE_NAME" default:"weathernow"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server    ServerConfig
	Geocoding GeocodingConfig
	Forecast  ForecastConfig
	Upstream  UpstreamConfig
	Metrics   MetricsConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"29s" validate:"gt=0"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
	// ClientRateLimit is requests per minute per client IP on /v1; 0 disables.
	ClientRateLimit int `envconfig:"CLIENT_RATE_LIMIT" default:"120" validate:"min=0"`
	ClientRateBurst int `envconfig:"CLIENT_RATE_BURST" default:"20" validate:"min=1"`
	// TrustProxyHeaders keys clients on X-Forwarded-For. Enable only behind a
	// proxy that overwrites the header.
	TrustProxyHeaders bool `envconfig:"TRUST_PROXY_HEADERS" default:"false"`
}

// GeocodingConfig holds the city search endpoint and query shaping.
type GeocodingConfig struct {
	BaseURL     string `envconfig:"GEOCODING_BASE_URL" default:"https://geocoding-api.open-meteo.com/v1" validate:"required,url"`
	ResultCount int    `envconfig:"GEOCODING_RESULT_COUNT" default:"3" validate:"min=1,max=100"`
	Language    string `envconfig:"GEOCODING_LANGUAGE" default:"en" validate:"required,alpha,len=2"`
}

// ForecastConfig holds the forecast endpoint and windowing parameters.
type ForecastConfig struct {
	BaseURL     string `envconfig:"FORECAST_BASE_URL" default:"https://api.open-meteo.com/v1" validate:"required,url"`
	WindowHours int    `envconfig:"FORECAST_WINDOW_HOURS" default:"12" validate:"min=1,max=168"`
}

// UpstreamConfig tunes the shared outbound HTTP client.
type UpstreamConfig struct {
	Timeout   time.Duration `envconfig:"UPSTREAM_TIMEOUT" default:"10s"`
	RateLimit float64       `envconfig:"UPSTREAM_RATE_LIMIT" default:"5" validate:"gt=0"`
	RateBurst int           `envconfig:"UPSTREAM_RATE_BURST" default:"5" validate:"min=1"`
	UserAgent string        `envconfig:"UPSTREAM_USER_AGENT" default:"WeatherNow/1.0"`
}

// MetricsConfig selects where request and lookup metrics go.
type MetricsConfig struct {
	Backend       string        `envconfig:"METRICS_BACKEND" default:"none" validate:"oneof=none log cloudwatch"`
	Namespace     string        `envconfig:"METRIC_NAMESPACE" default:"WeatherNow"`
	FlushInterval time.Duration `envconfig:"METRICS_FLUSH_INTERVAL" default:"60s" validate:"gt=0"`
	AWSRegion     string        `envconfig:"AWS_REGION" default:"us-east-1"`
	EndpointURL   string        `envconfig:"AWS_ENDPOINT_URL"` // LocalStack support; empty in prod
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
