// Package geocoding resolves a typed city name to a short ranked list of
// candidate locations and classifies the ways that can fail.
package geocoding

import (
	"context"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/singleflight"

	"weathernow/internal/external"
	"weathernow/internal/types"
)

// Defaults matching the public widget: three candidates, English names.
const (
	DefaultResultCount = 3
	DefaultLanguage    = "en"
)

// Service wraps a Geocoder with query normalization, in-flight de-duplication
// and the user-facing error taxonomy.
type Service struct {
	geocoder external.Geocoder
	count    int
	language string
	logger   *slog.Logger

	group singleflight.Group
}

// NewService creates a geocoding Service. Zero count or empty language fall
// back to the defaults.
func NewService(geocoder external.Geocoder, count int, language string, logger *slog.Logger) *Service {
	if count <= 0 {
		count = DefaultResultCount
	}
	if language == "" {
		language = DefaultLanguage
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		geocoder: geocoder,
		count:    count,
		language: language,
		logger:   logger.With("component", "geocoding-service"),
	}
}

// Search returns the candidates for query, best match first. The returned
// slice is owned by the caller.
//
// Errors (all *types.AppError):
//   - validation_missing_required_field: query is blank
//   - not_found_city: the lookup succeeded with zero matches
//   - upstream_network_error: no response was received
//   - upstream_geocoding_unavailable: the geocoder answered with a failure
//
// Concurrent calls for the same normalized query share one upstream request.
// A caller whose context ends stops waiting; the shared request carries on
// for the others.
func (s *Service) Search(ctx context.Context, query string) ([]types.Location, error) {
	name := strings.TrimSpace(query)
	if name == "" {
		return nil, types.NewAppError(types.ErrCodeValidationMissingField, types.MsgMissingCityQuery, nil)
	}

	key := strings.ToLower(name)
	ch := s.group.DoChan(key, func() (any, error) {
		return s.geocoder.Search(context.WithoutCancel(ctx), name, s.count, s.language)
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res = <-ch:
	}

	if res.Err != nil {
		return nil, s.classify(ctx, name, res.Err)
	}

	locations, _ := res.Val.([]types.Location)
	if len(locations) == 0 {
		s.logger.DebugContext(ctx, "no cities matched", "query", name)
		return nil, types.NewAppError(types.ErrCodeNotFoundCity, types.MsgNoCitiesFound, nil)
	}

	s.logger.DebugContext(ctx, "cities resolved",
		"query", name,
		"count", len(locations),
		"shared", res.Shared,
	)
	return slices.Clone(locations), nil
}

func (s *Service) classify(ctx context.Context, name string, err error) error {
	s.logger.WarnContext(ctx, "geocoding lookup failed", "query", name, "error", err)

	if external.IsTransportError(err) {
		return types.NewAppError(types.ErrCodeUpstreamNetwork, types.MsgNetworkError, err)
	}
	return types.NewAppError(types.ErrCodeUpstreamGeocoding, types.MsgGeocodingFailed, err)
}
