package forecasts

import (
	"fmt"
	"time"

	"weathernow/internal/external"
	"weathernow/internal/types"
)

// Open-Meteo returns zone-less local timestamps, minute precision by default.
var timestampLayouts = []string{
	"2006-01-02T15:04",
	"2006-01-02T15:04:05",
}

// payloadLocation resolves the zone the payload's local timestamps are in:
// the IANA name when it loads, otherwise a fixed offset.
func payloadLocation(p *external.ForecastPayload) *time.Location {
	if p.Timezone != "" {
		if loc, err := time.LoadLocation(p.Timezone); err == nil {
			return loc
		}
	}
	name := p.Timezone
	if name == "" {
		name = "UTC"
	}
	return time.FixedZone(name, p.UTCOffsetSeconds)
}

func parseLocalTime(s string, loc *time.Location) (time.Time, error) {
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, s, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

func malformed(msg string, err error) *types.AppError {
	return types.NewAppError(types.ErrCodeInternalForecastMalformed, msg, err)
}

// hourlySeries converts the hourly block into a typed series. The block must
// be present and its arrays must all have the same length.
func hourlySeries(p *external.ForecastPayload, loc *time.Location) (types.HourlySeries, error) {
	h := p.Hourly
	if h == nil || h.Time == nil {
		return types.HourlySeries{}, malformed("forecast response has no hourly series", nil)
	}

	series := types.HourlySeries{
		Times:        make([]time.Time, len(h.Time)),
		TemperatureC: h.Temperature2m,
		HumidityPct:  h.RelativeHumidity2m,
		PressureHPa:  h.PressureMSL,
	}
	if !series.Consistent() {
		return types.HourlySeries{}, types.NewAppErrorWithDetails(
			types.ErrCodeInternalForecastMalformed,
			"hourly arrays have mismatched lengths",
			nil,
			map[string]any{
				"time":        len(h.Time),
				"temperature": len(h.Temperature2m),
				"humidity":    len(h.RelativeHumidity2m),
				"pressure":    len(h.PressureMSL),
			},
		)
	}

	for i, raw := range h.Time {
		t, err := parseLocalTime(raw, loc)
		if err != nil {
			return types.HourlySeries{}, malformed(fmt.Sprintf("invalid hourly timestamp at index %d", i), err)
		}
		series.Times[i] = t
	}
	return series, nil
}

// snapshot builds the current-conditions view. current_weather is required;
// the daily sunrise/sunset pair is optional and left zero when absent.
func snapshot(name string, p *external.ForecastPayload, loc *time.Location) (types.WeatherSnapshot, error) {
	cw := p.CurrentWeather
	if cw == nil {
		return types.WeatherSnapshot{}, malformed("forecast response has no current weather", nil)
	}

	snap := types.WeatherSnapshot{
		LocationName: name,
		TemperatureC: cw.Temperature,
		WindSpeedKmh: cw.WindSpeed,
		WeatherCode:  cw.WeatherCode,
		Timezone:     loc.String(),
	}

	var err error
	if cw.Time != "" {
		if snap.ObservedAt, err = parseLocalTime(cw.Time, loc); err != nil {
			return types.WeatherSnapshot{}, malformed("invalid current weather timestamp", err)
		}
	}
	if d := p.Daily; d != nil {
		if len(d.Sunrise) > 0 && d.Sunrise[0] != "" {
			if snap.Sunrise, err = parseLocalTime(d.Sunrise[0], loc); err != nil {
				return types.WeatherSnapshot{}, malformed("invalid sunrise timestamp", err)
			}
		}
		if len(d.Sunset) > 0 && d.Sunset[0] != "" {
			if snap.Sunset, err = parseLocalTime(d.Sunset[0], loc); err != nil {
				return types.WeatherSnapshot{}, malformed("invalid sunset timestamp", err)
			}
		}
	}
	return snap, nil
}
