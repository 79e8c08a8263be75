package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// noDotenv keeps tests independent of any .env in the working directory.
func noDotenv() loaderDeps {
	return loaderDeps{loadDotenv: func(...string) error { return os.ErrNotExist }}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "local")

	cfg, err := loadConfigWithDeps(noDotenv())
	require.NoError(t, err)

	assert.Equal(t, "weathernow", cfg.Service)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 29*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, []string{"*"}, cfg.Server.CorsAllowedOrigins)
	assert.Equal(t, 120, cfg.Server.ClientRateLimit)
	assert.Equal(t, 20, cfg.Server.ClientRateBurst)
	assert.False(t, cfg.Server.TrustProxyHeaders)

	assert.Equal(t, "https://geocoding-api.open-meteo.com/v1", cfg.Geocoding.BaseURL)
	assert.Equal(t, 3, cfg.Geocoding.ResultCount)
	assert.Equal(t, "en", cfg.Geocoding.Language)

	assert.Equal(t, "https://api.open-meteo.com/v1", cfg.Forecast.BaseURL)
	assert.Equal(t, 12, cfg.Forecast.WindowHours)

	assert.Equal(t, 10*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, "none", cfg.Metrics.Backend)
	assert.Equal(t, 60*time.Second, cfg.Metrics.FlushInterval)
	assert.Equal(t, "dev", cfg.Build.Version)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("APP_ENV", "prod")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("PORT", "9090")
	t.Setenv("GEOCODING_RESULT_COUNT", "5")
	t.Setenv("GEOCODING_LANGUAGE", "fr")
	t.Setenv("FORECAST_WINDOW_HOURS", "24")
	t.Setenv("UPSTREAM_TIMEOUT", "3s")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example,https://b.example")
	t.Setenv("METRICS_BACKEND", "cloudwatch")

	cfg, err := loadConfigWithDeps(noDotenv())
	require.NoError(t, err)

	assert.Equal(t, "prod", cfg.Environment)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 5, cfg.Geocoding.ResultCount)
	assert.Equal(t, "fr", cfg.Geocoding.Language)
	assert.Equal(t, 24, cfg.Forecast.WindowHours)
	assert.Equal(t, 3*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CorsAllowedOrigins)
	assert.Equal(t, "cloudwatch", cfg.Metrics.Backend)
}

func TestLoadConfigValidationFailures(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"unknown environment", "APP_ENV", "qa"},
		{"unknown log level", "LOG_LEVEL", "trace"},
		{"zero result count", "GEOCODING_RESULT_COUNT", "0"},
		{"non-url geocoder", "GEOCODING_BASE_URL", "not a url"},
		{"window too large", "FORECAST_WINDOW_HOURS", "500"},
		{"unknown metrics backend", "METRICS_BACKEND", "statsd"},
		{"zero client burst", "CLIENT_RATE_BURST", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("APP_ENV", "local")
			t.Setenv(tt.key, tt.value)

			_, err := loadConfigWithDeps(noDotenv())
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, ErrValidation, cfgErr.Type)
		})
	}
}

func TestLoadConfigParsingFailure(t *testing.T) {
	t.Setenv("APP_ENV", "local")
	t.Setenv("UPSTREAM_TIMEOUT", "soon")

	_, err := loadConfigWithDeps(noDotenv())
	require.Error(t, err)

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrParsing, cfgErr.Type)
	assert.NotNil(t, cfgErr.Unwrap())
}

func TestLoadConfigDotenvFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("FORECAST_WINDOW_HOURS=6\nGEOCODING_LANGUAGE=de\n"), 0o600))

	t.Setenv("APP_ENV", "local")
	// Pre-set so the dotenv value must not win.
	t.Setenv("GEOCODING_LANGUAGE", "it")
	// t.Setenv registers cleanup; unset so the dotenv file can supply it.
	t.Setenv("FORECAST_WINDOW_HOURS", "")
	require.NoError(t, os.Unsetenv("FORECAST_WINDOW_HOURS"))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Forecast.WindowHours)
	assert.Equal(t, "it", cfg.Geocoding.Language)
}

func TestConfigErrorFormatting(t *testing.T) {
	withCause := &ConfigError{Type: ErrParsing, Message: "bad", Err: errors.New("boom")}
	assert.Equal(t, "[PARSING_FAILED] bad: boom", withCause.Error())

	bare := &ConfigError{Type: ErrValidation, Message: "bad"}
	assert.Equal(t, "[VALIDATION_FAILED] bad", bare.Error())
	assert.Nil(t, bare.Unwrap())
}
