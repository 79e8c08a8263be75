package core

import (
	"errors"
	"testing"

	"weathernow/internal/types"
)

type testCoordinateQuery struct {
	Latitude  *float64 `query:"latitude" validate:"required,latitude"`
	Longitude *float64 `query:"longitude" validate:"required,longitude"`
	Name      string   `query:"name" validate:"max=10"`
}

func ptr(f float64) *float64 { return &f }

func TestNewValidator(t *testing.T) {
	v := NewValidator(testLogger())
	if v.validate == nil || v.logger == nil {
		t.Fatal("expected validator to be fully initialized")
	}
}

func TestValidateStruct_Success(t *testing.T) {
	v := NewValidator(testLogger())
	q := testCoordinateQuery{Latitude: ptr(0), Longitude: ptr(-180), Name: "Quito"}
	if err := v.ValidateStruct(q); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestValidateStruct_Failures(t *testing.T) {
	tests := []struct {
		name      string
		query     testCoordinateQuery
		wantCode  types.ErrorCode
		wantField string
		wantCount int
	}{
		{
			name:      "missing latitude",
			query:     testCoordinateQuery{Longitude: ptr(2.35)},
			wantCode:  types.ErrCodeValidationMissingField,
			wantField: "latitude",
			wantCount: 1,
		},
		{
			name:      "latitude out of range",
			query:     testCoordinateQuery{Latitude: ptr(91), Longitude: ptr(2.35)},
			wantCode:  types.ErrCodeValidationInvalidLat,
			wantField: "latitude",
			wantCount: 1,
		},
		{
			name:      "longitude out of range",
			query:     testCoordinateQuery{Latitude: ptr(48.85), Longitude: ptr(-180.5)},
			wantCode:  types.ErrCodeValidationInvalidLon,
			wantField: "longitude",
			wantCount: 1,
		},
		{
			name:      "name too long and both missing",
			query:     testCoordinateQuery{Name: "Llanfairpwllgwyngyll"},
			wantCode:  types.ErrCodeValidationMissingField,
			wantField: "latitude",
			wantCount: 3,
		},
	}

	v := NewValidator(testLogger())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateStruct(tt.query)

			var appErr *types.AppError
			if !errors.As(err, &appErr) {
				t.Fatalf("expected *types.AppError, got %T: %v", err, err)
			}
			if appErr.Code != tt.wantCode {
				t.Errorf("expected code %s, got %s", tt.wantCode, appErr.Code)
			}
			errs, ok := appErr.Details["validation_errors"].([]ValidationError)
			if !ok {
				t.Fatalf("expected []ValidationError in details, got %T", appErr.Details["validation_errors"])
			}
			if len(errs) != tt.wantCount {
				t.Errorf("expected %d validation errors, got %d: %+v", tt.wantCount, len(errs), errs)
			}
			if errs[0].Field != tt.wantField {
				t.Errorf("expected first field %q, got %q", tt.wantField, errs[0].Field)
			}
		})
	}
}

func TestValidateStruct_NonStruct(t *testing.T) {
	v := NewValidator(testLogger())
	err := v.ValidateStruct(42)
	if types.CodeOf(err) != types.ErrCodeInternalUnexpected {
		t.Errorf("expected internal error for non-struct input, got %v", err)
	}
}
