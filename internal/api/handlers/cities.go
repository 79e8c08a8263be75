// Package handlers contains the HTTP handlers of the WeatherNow API:
//   - City search (GET /v1/cities)
//   - Weather for a resolved location (GET /v1/weather)
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"weathernow/internal/core"
	"weathernow/internal/types"
)

// CitySearchService resolves a typed name to ranked candidates. It is defined
// here rather than imported so handlers can be tested with a local fake.
type CitySearchService interface {
	Search(ctx context.Context, query string) ([]types.Location, error)
}

// CitySearchResponse lists every candidate and names the provisional
// selection, which is always the first match.
type CitySearchResponse struct {
	Query    string           `json:"query"`
	Results  []types.Location `json:"results"`
	Selected types.Location   `json:"selected"`
}

type citySearchQuery struct {
	Name string `query:"name" validate:"max=200"`
}

// CityHandler serves city search.
type CityHandler struct {
	service   CitySearchService
	validator *core.Validator
	logger    *slog.Logger
}

// NewCityHandler creates a CityHandler.
func NewCityHandler(svc CitySearchService, val *core.Validator, logger *slog.Logger) *CityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CityHandler{
		service:   svc,
		validator: val,
		logger:    logger,
	}
}

// RegisterRoutes mounts the city endpoints.
func (h *CityHandler) RegisterRoutes(r chi.Router) {
	r.Get("/cities", h.HandleSearch)
}

// HandleSearch handles GET /v1/cities?name=.
//
// 200 with candidates; 400 for a blank or oversized name; 404 when nothing
// matches; 502 when the geocoder fails.
func (h *CityHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	req := citySearchQuery{Name: strings.TrimSpace(r.URL.Query().Get("name"))}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	results, err := h.service.Search(r.Context(), req.Name)
	if err == nil && len(results) == 0 {
		err = types.NewAppError(types.ErrCodeNotFoundCity, types.MsgNoCitiesFound, nil)
	}
	if err != nil {
		types.LoggerFromContext(r.Context(), h.logger).DebugContext(r.Context(), "city search failed",
			"query", req.Name,
			"code", string(types.CodeOf(err)),
		)
		core.Error(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=300")
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: CitySearchResponse{
		Query:    req.Name,
		Results:  results,
		Selected: results[0],
	}})
}
