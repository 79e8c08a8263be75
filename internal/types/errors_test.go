package types

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestAppErrorErrorFormat(t *testing.T) {
	appErr := NewAppError(ErrCodeNotFoundCity, MsgNoCitiesFound, nil)

	want := "not_found_city: No cities found."
	if appErr.Error() != want {
		t.Errorf("Error() = %q, want %q", appErr.Error(), want)
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	underlying := errors.New("dial tcp: connection refused")
	appErr := NewAppError(ErrCodeUpstreamNetwork, MsgNetworkError, underlying)

	if !errors.Is(appErr, underlying) {
		t.Error("errors.Is should find the cause through Unwrap")
	}
	if NewAppError(ErrCodeNotFoundCity, MsgNoCitiesFound, nil).Unwrap() != nil {
		t.Error("Unwrap should return nil without a cause")
	}
}

func TestAppErrorErrorsAs(t *testing.T) {
	wrapped := fmt.Errorf("forecast lookup: %w", NewAppError(ErrCodeUpstreamForecast, MsgForecastFailed, nil))

	var target *AppError
	if !errors.As(wrapped, &target) {
		t.Fatal("errors.As should find AppError in the chain")
	}
	if target.Code != ErrCodeUpstreamForecast {
		t.Errorf("Code = %q, want %q", target.Code, ErrCodeUpstreamForecast)
	}
}

func TestCodeOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{"nil", nil, ""},
		{"plain", errors.New("boom"), ""},
		{"direct", NewAppError(ErrCodeNotFoundCity, "x", nil), ErrCodeNotFoundCity},
		{"wrapped", fmt.Errorf("ctx: %w", NewAppError(ErrCodeUpstreamNetwork, "x", nil)), ErrCodeUpstreamNetwork},
		{
			"outermost wins",
			NewAppError(ErrCodeUpstreamForecast, "x", NewAppError(ErrCodeUpstreamNetwork, "y", nil)),
			ErrCodeUpstreamForecast,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CodeOf(tt.err); got != tt.want {
				t.Errorf("CodeOf = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAppErrorWithDetails(t *testing.T) {
	original := NewAppErrorWithDetails(ErrCodeValidationSelection, "bad pick", nil, map[string]any{"index": 4})
	merged := original.WithDetails(map[string]any{"count": 3, "index": 5})

	if merged == original {
		t.Fatal("WithDetails should return a copy")
	}
	if original.Details["index"] != 4 {
		t.Errorf("original details mutated: %v", original.Details)
	}
	if merged.Details["index"] != 5 || merged.Details["count"] != 3 {
		t.Errorf("merged details = %v", merged.Details)
	}
	if merged.Code != original.Code || merged.Message != original.Message {
		t.Error("code and message must be preserved")
	}
}

func TestErrorCodeHTTPStatusMapping(t *testing.T) {
	tests := []struct {
		code       ErrorCode
		wantStatus int
	}{
		{ErrCodeValidationMissingField, http.StatusBadRequest},
		{ErrCodeValidationInvalidLat, http.StatusBadRequest},
		{ErrCodeValidationInvalidLon, http.StatusBadRequest},
		{ErrCodeValidationSelection, http.StatusBadRequest},
		{ErrCodeValidationInvalidField, http.StatusBadRequest},
		{ErrCodeNotFoundCity, http.StatusNotFound},
		{ErrCodeConflictNoCandidates, http.StatusConflict},
		{ErrCodeConflictSuperseded, http.StatusConflict},
		{ErrCodeRateLimited, http.StatusTooManyRequests},
		{ErrCodeUpstreamRateLimited, http.StatusServiceUnavailable},
		{ErrCodeUpstreamNetwork, http.StatusBadGateway},
		{ErrCodeUpstreamGeocoding, http.StatusBadGateway},
		{ErrCodeUpstreamForecast, http.StatusBadGateway},
		{ErrCodeUpstreamUnavailable, http.StatusBadGateway},
		{ErrCodeInternalUnexpected, http.StatusInternalServerError},
		{ErrCodeInternalForecastMalformed, http.StatusInternalServerError},
		{ErrorCode("something_else"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			if got := tt.code.HTTPStatus(); got != tt.wantStatus {
				t.Errorf("HTTPStatus() = %d, want %d", got, tt.wantStatus)
			}
			if got := NewAppError(tt.code, "x", nil).HTTPStatus(); got != tt.wantStatus {
				t.Errorf("AppError.HTTPStatus() = %d, want %d", got, tt.wantStatus)
			}
		})
	}
}

// The widget shows these strings verbatim.
func TestUserFacingMessages(t *testing.T) {
	tests := map[string]string{
		MsgNoCitiesFound:   "No cities found.",
		MsgNetworkError:    "Network error. Check your connection.",
		MsgGeocodingFailed: "An error occurred while fetching weather.",
		MsgForecastFailed:  "Failed to fetch weather from Open-Meteo.",
	}
	for got, want := range tests {
		if got != want {
			t.Errorf("message = %q, want %q", got, want)
		}
	}
}
