package forecasts

import (
	"time"

	"weathernow/internal/types"
)

// DefaultWindowSize is the number of hourly points shown after "now".
const DefaultWindowSize = 12

// FirstIndexAtOrAfter returns the smallest index i with times[i] >= now, or -1
// when every timestamp is earlier than now. times must be ascending.
func FirstIndexAtOrAfter(times []time.Time, now time.Time) int {
	for i, t := range times {
		if !t.Before(now) {
			return i
		}
	}
	return -1
}

// BuildWindow slices up to size consecutive points from series, starting at
// the first timestamp not earlier than now. Each timestamp is paired with the
// same-index temperature, humidity and pressure. The result is never nil and
// never reads past the shortest of the parallel arrays.
func BuildWindow(series types.HourlySeries, now time.Time, size int) []types.ForecastPoint {
	start := FirstIndexAtOrAfter(series.Times, now)
	if start < 0 || size <= 0 {
		return []types.ForecastPoint{}
	}

	end := min(
		start+size,
		len(series.Times),
		len(series.TemperatureC),
		len(series.HumidityPct),
		len(series.PressureHPa),
	)
	if end <= start {
		return []types.ForecastPoint{}
	}

	window := make([]types.ForecastPoint, 0, end-start)
	for i := start; i < end; i++ {
		window = append(window, types.ForecastPoint{
			Time:         series.Times[i],
			TemperatureC: series.TemperatureC[i],
			HumidityPct:  series.HumidityPct[i],
			PressureHPa:  series.PressureHPa[i],
		})
	}
	return window
}
