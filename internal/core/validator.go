package core

import (
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"weathernow/internal/types"
)

// ValidationError describes one failed field rule.
type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Validator wraps go-playground/validator and reports failures as
// *types.AppError values. Field names come from the `query` tag when present,
// so messages name the parameter the client actually sent.
type Validator struct {
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator creates a Validator.
func NewValidator(logger *slog.Logger) *Validator {
	if logger == nil {
		logger = slog.Default()
	}
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		for _, tag := range []string{"query", "json"} {
			name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return f.Name
	})
	return &Validator{validate: v, logger: logger}
}

// ValidateStruct validates s. On failure the AppError code is that of the
// first failing field, and details carry every failure under
// "validation_errors".
func (v *Validator) ValidateStruct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		v.logger.Error("validator misuse", "error", err)
		return types.NewAppError(types.ErrCodeInternalUnexpected, "request could not be validated", err)
	}

	errs := make([]ValidationError, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		errs = append(errs, toValidationError(fe))
	}

	return types.NewAppErrorWithDetails(
		types.ErrorCode(errs[0].Code),
		errs[0].Message,
		err,
		map[string]any{"validation_errors": errs},
	)
}

func toValidationError(fe validator.FieldError) ValidationError {
	field := fe.Field()
	ve := ValidationError{Field: field}

	switch fe.Tag() {
	case "required":
		ve.Code = string(types.ErrCodeValidationMissingField)
		ve.Message = fmt.Sprintf("%s is required", field)
	case "latitude":
		ve.Code = string(types.ErrCodeValidationInvalidLat)
		ve.Message = fmt.Sprintf("%s must be between %g and %g", field, types.MinLat, types.MaxLat)
	case "longitude":
		ve.Code = string(types.ErrCodeValidationInvalidLon)
		ve.Message = fmt.Sprintf("%s must be between %g and %g", field, types.MinLon, types.MaxLon)
	case "max":
		ve.Code = string(types.ErrCodeValidationInvalidField)
		ve.Message = fmt.Sprintf("%s must be at most %s characters", field, fe.Param())
	default:
		ve.Code = string(types.ErrCodeValidationInvalidField)
		ve.Message = fmt.Sprintf("%s failed the %s rule", field, fe.Tag())
	}
	return ve
}
