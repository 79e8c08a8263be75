package forecasts

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weathernow/internal/external"
	"weathernow/internal/types"
)

// --- Mock Dependencies ---

type fakeProvider struct {
	payload *external.ForecastPayload
	err     error

	gotLat, gotLon float64
	calls          int
}

func (f *fakeProvider) Fetch(_ context.Context, lat, lon float64) (*external.ForecastPayload, error) {
	f.calls++
	f.gotLat, f.gotLon = lat, lon
	return f.payload, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var paris = types.Location{Name: "Paris", Country: "France", Latitude: 48.85, Longitude: 2.35}

// parisPayload returns 48 hourly points from 2024-01-01T00:00 Europe/Paris.
func parisPayload() *external.ForecastPayload {
	h := &external.HourlyPayload{}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 48; i++ {
		h.Time = append(h.Time, start.Add(time.Duration(i)*time.Hour).Format("2006-01-02T15:04"))
		h.Temperature2m = append(h.Temperature2m, 10+float64(i)/10)
		h.RelativeHumidity2m = append(h.RelativeHumidity2m, 80)
		h.PressureMSL = append(h.PressureMSL, 1012)
	}
	return &external.ForecastPayload{
		Timezone:         "Europe/Paris",
		UTCOffsetSeconds: 3600,
		CurrentWeather: &external.CurrentWeather{
			Time:        "2024-01-01T10:00",
			Temperature: 14.2,
			WindSpeed:   11.3,
			WeatherCode: 3,
		},
		Hourly: h,
		Daily: &external.DailyPayload{
			Time:    []string{"2024-01-01"},
			Sunrise: []string{"2024-01-01T07:45"},
			Sunset:  []string{"2024-01-01T16:04"},
		},
	}
}

func parisZone(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Paris")
	if err != nil {
		return time.FixedZone("Europe/Paris", 3600)
	}
	return loc
}

func TestForecast_Success(t *testing.T) {
	zone := parisZone(t)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, zone)
	provider := &fakeProvider{payload: parisPayload()}
	svc := NewService(provider, types.FixedClock{At: now}, 12, discardLogger())

	report, err := svc.Forecast(context.Background(), paris)
	require.NoError(t, err)

	assert.Equal(t, 48.85, provider.gotLat)
	assert.Equal(t, 2.35, provider.gotLon)

	assert.Equal(t, paris, report.Location)
	assert.Equal(t, "Paris", report.Snapshot.LocationName)
	assert.Equal(t, 14.2, report.Snapshot.TemperatureC)
	assert.Equal(t, 11.3, report.Snapshot.WindSpeedKmh)
	assert.Equal(t, 3, report.Snapshot.WeatherCode)
	assert.True(t, report.Snapshot.Sunrise.Equal(time.Date(2024, 1, 1, 7, 45, 0, 0, zone)))
	assert.True(t, report.Snapshot.Sunset.Equal(time.Date(2024, 1, 1, 16, 4, 0, 0, zone)))

	require.Len(t, report.Window, 12)
	assert.True(t, report.Window[0].Time.Equal(now), "window starts at the hour-10 entry")
	assert.Equal(t, 11.0, report.Window[0].TemperatureC)
	assert.Equal(t, now, report.GeneratedAt)
}

func TestForecast_ComparesInstantsAcrossZones(t *testing.T) {
	// 09:30 UTC is 10:30 in Paris, so the first point at or after now is 11:00 local.
	now := time.Date(2024, 1, 1, 9, 30, 0, 0, time.UTC)
	svc := NewService(&fakeProvider{payload: parisPayload()}, types.FixedClock{At: now}, 12, discardLogger())

	report, err := svc.Forecast(context.Background(), paris)
	require.NoError(t, err)
	require.NotEmpty(t, report.Window)
	assert.Equal(t, 11, report.Window[0].Time.Hour())
}

func TestForecast_FixedOffsetFallback(t *testing.T) {
	payload := parisPayload()
	payload.Timezone = "Not/AZone"
	payload.UTCOffsetSeconds = 2 * 3600

	now := time.Date(2024, 1, 1, 8, 0, 0, 0, time.UTC) // 10:00 at +02:00
	svc := NewService(&fakeProvider{payload: payload}, types.FixedClock{At: now}, 12, discardLogger())

	report, err := svc.Forecast(context.Background(), paris)
	require.NoError(t, err)
	require.NotEmpty(t, report.Window)
	assert.True(t, report.Window[0].Time.Equal(now))
	assert.Equal(t, "Not/AZone", report.Snapshot.Timezone)
}

func TestForecast_AllPointsInPast(t *testing.T) {
	now := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	svc := NewService(&fakeProvider{payload: parisPayload()}, types.FixedClock{At: now}, 12, discardLogger())

	report, err := svc.Forecast(context.Background(), paris)
	require.NoError(t, err)
	assert.Equal(t, 14.2, report.Snapshot.TemperatureC, "snapshot still shown")
	assert.Empty(t, report.Window)
}

func TestForecast_ProviderFailure(t *testing.T) {
	upstream := types.NewAppError(types.ErrCodeUpstreamForecast, "forecast request failed", errors.New("connection refused"))
	svc := NewService(&fakeProvider{err: upstream}, nil, 12, discardLogger())

	report, err := svc.Forecast(context.Background(), paris)
	require.Error(t, err)
	assert.Nil(t, report)

	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeUpstreamForecast, appErr.Code)
	assert.Equal(t, types.MsgForecastFailed, appErr.Message)
	assert.ErrorIs(t, err, upstream)
}

func TestForecast_PlainErrorBecomesUpstreamFailure(t *testing.T) {
	svc := NewService(&fakeProvider{err: errors.New("boom")}, nil, 12, discardLogger())

	_, err := svc.Forecast(context.Background(), paris)
	assert.Equal(t, types.ErrCodeUpstreamForecast, types.CodeOf(err))
}

func TestForecast_MalformedPayloads(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(p *external.ForecastPayload)
	}{
		{"missing current weather", func(p *external.ForecastPayload) { p.CurrentWeather = nil }},
		{"missing hourly", func(p *external.ForecastPayload) { p.Hourly = nil }},
		{"missing hourly time", func(p *external.ForecastPayload) { p.Hourly.Time = nil }},
		{"short temperature array", func(p *external.ForecastPayload) { p.Hourly.Temperature2m = p.Hourly.Temperature2m[:5] }},
		{"missing pressure array", func(p *external.ForecastPayload) { p.Hourly.PressureMSL = nil }},
		{"bad hourly timestamp", func(p *external.ForecastPayload) { p.Hourly.Time[3] = "yesterday" }},
		{"bad sunrise", func(p *external.ForecastPayload) { p.Daily.Sunrise[0] = "dawn" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := parisPayload()
			tt.mutate(payload)
			svc := NewService(&fakeProvider{payload: payload}, nil, 12, discardLogger())

			report, err := svc.Forecast(context.Background(), paris)
			require.Error(t, err)
			assert.Nil(t, report)

			var appErr *types.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, types.ErrCodeInternalForecastMalformed, appErr.Code)
			assert.Equal(t, types.MsgForecastFailed, appErr.Message)
		})
	}
}

func TestForecast_MissingDailyIsTolerated(t *testing.T) {
	payload := parisPayload()
	payload.Daily = nil
	now := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	svc := NewService(&fakeProvider{payload: payload}, types.FixedClock{At: now}, 12, discardLogger())

	report, err := svc.Forecast(context.Background(), paris)
	require.NoError(t, err)
	assert.True(t, report.Snapshot.Sunrise.IsZero())
	assert.True(t, report.Snapshot.Sunset.IsZero())
}

func TestForecast_InvalidCoordinates(t *testing.T) {
	provider := &fakeProvider{payload: parisPayload()}
	svc := NewService(provider, nil, 12, discardLogger())

	_, err := svc.Forecast(context.Background(), types.Location{Name: "Nowhere", Latitude: 91})
	assert.Equal(t, types.ErrCodeValidationInvalidLat, types.CodeOf(err))
	assert.Zero(t, provider.calls)
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService(&fakeProvider{}, nil, 0, nil)
	assert.Equal(t, DefaultWindowSize, svc.windowSize)
	assert.IsType(t, types.RealClock{}, svc.clock)
}
