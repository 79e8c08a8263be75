package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"weathernow/internal/core"
	"weathernow/internal/forecasts"
	"weathernow/internal/types"
)

// ForecastService produces the weather report for a resolved location.
type ForecastService interface {
	Forecast(ctx context.Context, loc types.Location) (*forecasts.Report, error)
}

type weatherQuery struct {
	Latitude  *float64 `query:"latitude" validate:"required,latitude"`
	Longitude *float64 `query:"longitude" validate:"required,longitude"`
	Name      string   `query:"name" validate:"max=200"`
}

// WeatherHandler serves current conditions plus the forecast window.
type WeatherHandler struct {
	service   ForecastService
	validator *core.Validator
	logger    *slog.Logger
}

// NewWeatherHandler creates a WeatherHandler.
func NewWeatherHandler(svc ForecastService, val *core.Validator, logger *slog.Logger) *WeatherHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WeatherHandler{
		service:   svc,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the weather endpoints.
func (h *WeatherHandler) RegisterRoutes(r chi.Router) {
	r.Get("/weather", h.HandleGetWeather)
}

// HandleGetWeather handles GET /v1/weather?latitude=&longitude=&name=.
//
// The name only labels the snapshot; it defaults to the coordinates.
func (h *WeatherHandler) HandleGetWeather(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	lat, err := parseCoordinate(q, "latitude", types.ErrCodeValidationInvalidLat)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	lon, err := parseCoordinate(q, "longitude", types.ErrCodeValidationInvalidLon)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	req := weatherQuery{
		Latitude:  lat,
		Longitude: lon,
		Name:      strings.TrimSpace(q.Get("name")),
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	loc := types.Location{
		Name:      req.Name,
		Latitude:  *req.Latitude,
		Longitude: *req.Longitude,
	}
	if loc.Name == "" {
		loc.Name = fmt.Sprintf("%.2f, %.2f", loc.Latitude, loc.Longitude)
	}

	report, err := h.service.Forecast(r.Context(), loc)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	if len(report.Window) == 0 {
		types.LoggerFromContext(r.Context(), h.logger).InfoContext(r.Context(), "serving snapshot without forecast rows",
			"location", loc.Name,
		)
	}

	w.Header().Set("Cache-Control", "private, max-age=300")
	if !report.GeneratedAt.IsZero() {
		w.Header().Set("Last-Modified", report.GeneratedAt.UTC().Format(http.TimeFormat))
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: report})
}

// parseCoordinate returns nil for an absent parameter so that the validator
// reports it as missing.
func parseCoordinate(q url.Values, name string, code types.ErrorCode) (*float64, error) {
	raw := strings.TrimSpace(q.Get(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, types.NewAppErrorWithDetails(
			code,
			name+" must be a valid number",
			err,
			map[string]any{"field": name},
		)
	}
	return &v, nil
}
