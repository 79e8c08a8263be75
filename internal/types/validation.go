package types

// Validation constraint constants.
const (
	MinLat = -90.0
	MaxLat = 90.0
	MinLon = -180.0
	MaxLon = 180.0
)

// ValidateCoordinates checks that lat/lon fall inside the WGS84 range. NaN is
// out of range.
func ValidateCoordinates(lat, lon float64) error {
	if !(lat >= MinLat && lat <= MaxLat) {
		return NewAppError(ErrCodeValidationInvalidLat, "latitude must be between -90 and 90", nil)
	}
	if !(lon >= MinLon && lon <= MaxLon) {
		return NewAppError(ErrCodeValidationInvalidLon, "longitude must be between -180 and 180", nil)
	}
	return nil
}
