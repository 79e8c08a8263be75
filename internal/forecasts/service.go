// Package forecasts turns a resolved location into a weather report: the
// current-conditions snapshot plus a short look-ahead window sliced from the
// provider's hourly series.
package forecasts

import (
	"context"
	"log/slog"
	"time"

	"weathernow/internal/external"
	"weathernow/internal/types"
)

// Report is the result of one forecast lookup.
type Report struct {
	Location    types.Location        `json:"location"`
	Snapshot    types.WeatherSnapshot `json:"current"`
	Window      []types.ForecastPoint `json:"forecast"`
	GeneratedAt time.Time             `json:"generated_at"`
}

// Service fetches and shapes forecasts.
type Service struct {
	provider   external.ForecastProvider
	clock      types.Clock
	windowSize int
	logger     *slog.Logger
}

// NewService creates a forecast Service. A windowSize <= 0 falls back to
// DefaultWindowSize; a nil clock uses the system clock.
func NewService(provider external.ForecastProvider, clock types.Clock, windowSize int, logger *slog.Logger) *Service {
	if clock == nil {
		clock = types.RealClock{}
	}
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		provider:   provider,
		clock:      clock,
		windowSize: windowSize,
		logger:     logger.With("component", "forecast-service"),
	}
}

// Forecast fetches conditions for loc and derives the forecast window
// relative to the service clock.
//
// Every failure is returned as an AppError whose message is the user-facing
// forecast failure text; the code tells upstream failures
// (upstream_forecast_unavailable) apart from unusable payloads
// (internal_forecast_malformed).
func (s *Service) Forecast(ctx context.Context, loc types.Location) (*Report, error) {
	if err := types.ValidateCoordinates(loc.Latitude, loc.Longitude); err != nil {
		return nil, err
	}

	payload, err := s.provider.Fetch(ctx, loc.Latitude, loc.Longitude)
	if err != nil {
		return nil, s.fail(ctx, loc, err)
	}

	zone := payloadLocation(payload)

	snap, err := snapshot(loc.Name, payload, zone)
	if err != nil {
		return nil, s.fail(ctx, loc, err)
	}

	series, err := hourlySeries(payload, zone)
	if err != nil {
		return nil, s.fail(ctx, loc, err)
	}

	now := s.clock.Now()
	window := BuildWindow(series, now, s.windowSize)
	if len(window) == 0 && series.Len() > 0 {
		s.logger.WarnContext(ctx, "hourly series lies entirely in the past",
			"location", loc.Name,
			"last_point", series.Times[series.Len()-1],
			"now", now,
		)
	}

	return &Report{
		Location:    loc,
		Snapshot:    snap,
		Window:      window,
		GeneratedAt: now,
	}, nil
}

// fail logs the diagnostic cause and rewrites the message for display.
func (s *Service) fail(ctx context.Context, loc types.Location, err error) error {
	code := types.CodeOf(err)
	if code == "" || code == types.ErrCodeInternalUnexpected {
		code = types.ErrCodeUpstreamForecast
	}

	s.logger.ErrorContext(ctx, "forecast fetch failed",
		"location", loc.Name,
		"latitude", loc.Latitude,
		"longitude", loc.Longitude,
		"code", string(code),
		"error", err,
	)

	return types.NewAppError(code, types.MsgForecastFailed, err)
}
